package database

import "time"

type Config struct {
	FileName string        `envconfig:"ELENS_DB_FILE_NAME" default:"elens.db"`
	Timeout  time.Duration `envconfig:"ELENS_DB_LOCK_TIMEOUT" default:"5s"`
}

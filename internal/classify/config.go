package classify

import "time"

type Config struct {
	RequestTimeout time.Duration `envconfig:"ELENS_CLASSIFY_REQUEST_TIMEOUT" default:"30s"`
	MaxSeries      int           `envconfig:"ELENS_CLASSIFY_MAX_SERIES" default:"64"`
	Parallelism    int           `envconfig:"ELENS_CLASSIFY_PARALLELISM" default:"4"`
}

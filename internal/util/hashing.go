package util

import (
	"crypto/sha256"
	"strconv"
)

// HashSeries digests labelled rows in order. Every value is written at full
// precision and separated, so different row splits never collide. labels may
// be nil.
func HashSeries(rows [][]float64, labels []int) [32]byte {
	buffer := GetBytesBuffer()
	defer PutBytesBuffer(buffer)
	var scratch []byte
	for i := range rows {
		if labels != nil {
			scratch = strconv.AppendInt(scratch[:0], int64(labels[i]), 10)
			buffer.Write(scratch)
		}
		buffer.WriteByte(':')
		for j := range rows[i] {
			scratch = strconv.AppendFloat(scratch[:0], rows[i][j], 'g', -1, 64)
			buffer.Write(scratch)
			buffer.WriteByte(',')
		}
		buffer.WriteByte('\n')
	}
	return sha256.Sum256(buffer.Bytes())
}

package series

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
)

var ErrMalformedLine = errors.New("series: malformed line")

// LoadUCR reads the UCR archive text files of one problem. Every line holds
// the label followed by the values, separated by commas, tabs or spaces.
// Labels of all splits are mapped together onto [0, k) in ascending order.
func LoadUCR(relation string, paths ...string) ([]*Dataset, error) {
	readers := make([]io.Reader, len(paths))
	for i, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		defer f.Close()
		readers[i] = f
	}
	return ReadUCR(relation, readers...)
}

// ReadUCR parses one dataset per reader with a shared label mapping.
func ReadUCR(relation string, readers ...io.Reader) ([]*Dataset, error) {
	type row struct {
		label  float64
		values []float64
	}
	var (
		splits = make([][]row, len(readers))
		labels = map[float64]int{}
	)
	for i, r := range readers {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
		line := 0
		for scanner.Scan() {
			line++
			text := strings.TrimSpace(scanner.Text())
			if text == "" || strings.HasPrefix(text, "#") {
				continue
			}
			fields := strings.FieldsFunc(text, func(r rune) bool {
				return r == ',' || r == ' ' || r == '\t'
			})
			if len(fields) < 2 {
				return nil, fmt.Errorf("split %d line %d: %w: want a label and at least one value", i, line, ErrMalformedLine)
			}
			label, err := strconv.ParseFloat(fields[0], 64)
			if err != nil {
				return nil, fmt.Errorf("split %d line %d: %w: label %q", i, line, ErrMalformedLine, fields[0])
			}
			values := make([]float64, len(fields)-1)
			for j, field := range fields[1:] {
				if field == "?" {
					return nil, fmt.Errorf("split %d line %d: %w", i, line, ErrMissingValue)
				}
				if values[j], err = strconv.ParseFloat(field, 64); err != nil {
					return nil, fmt.Errorf("split %d line %d: %w: value %q", i, line, ErrMalformedLine, field)
				}
			}
			labels[label] = 0
			splits[i] = append(splits[i], row{label: label, values: values})
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read split %d: %w", i, err)
		}
	}

	keys := make([]float64, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Float64s(keys)
	for i, k := range keys {
		labels[k] = i
	}

	datasets := make([]*Dataset, len(splits))
	for i, rows := range splits {
		ds := &Dataset{Relation: relation, NumClasses: len(keys), Labels: keys, Sequences: make([]Sequence, len(rows))}
		for j, r := range rows {
			ds.Sequences[j] = New(r.values, labels[r.label])
		}
		if err := ds.Validate(); err != nil {
			return nil, fmt.Errorf("split %d: %w", i, err)
		}
		datasets[i] = ds
	}
	return datasets, nil
}

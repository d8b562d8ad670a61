package classify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-sod/elens/internal/series"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// threshold puts series with a positive first value in class 1.
type threshold struct {
	fail bool
}

func (t threshold) Distribution(_ context.Context, seq series.Sequence) ([]float64, error) {
	if t.fail {
		return nil, errors.New("broken")
	}
	if seq.Values[0] > 0 {
		return []float64{0, 1}, nil
	}
	return []float64{1, 0}, nil
}

func (threshold) Seed() int64 { return 0 }

func newHandler(t *testing.T, clf Classifier) http.Handler {
	t.Helper()
	train := &series.Dataset{
		Relation:   "toy",
		NumClasses: 2,
		Labels:     []float64{-1, 1},
		Sequences:  []series.Sequence{series.New([]float64{-1, -1}, 0), series.New([]float64{1, 1}, 1)},
	}
	h, err := NewHandler(&Config{RequestTimeout: time.Second, MaxSeries: 3, Parallelism: 2}, clf, train)
	require.NoError(t, err)
	return h
}

func TestHandler(t *testing.T) {
	t.Parallel()
	h := newHandler(t, threshold{})
	body := `{"series": [{"id": "a", "values": [2, 3]}, {"id": "b", "values": [-2, 0]}]}`
	req := httptest.NewRequest(http.MethodPost, "/classify", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "toy", resp.Relation)
	require.Len(t, resp.Predictions, 2)
	assert.Equal(t, prediction{ID: "a", Class: 1, Label: 1, Distribution: []float64{0, 1}}, resp.Predictions[0])
	assert.Equal(t, prediction{ID: "b", Class: 0, Label: -1, Distribution: []float64{1, 0}}, resp.Predictions[1])
}

func TestHandler_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name        string
		method      string
		contentType string
		body        string
		clf         Classifier
		code        int
	}{
		{name: "method", method: http.MethodGet, contentType: "application/json", code: http.StatusMethodNotAllowed},
		{name: "content_type", method: http.MethodPost, contentType: "text/plain", body: "{}", code: http.StatusUnsupportedMediaType},
		{name: "malformed", method: http.MethodPost, contentType: "application/json", body: `{"series": [`, code: http.StatusBadRequest},
		{name: "unknown_field", method: http.MethodPost, contentType: "application/json", body: `{"rows": []}`, code: http.StatusBadRequest},
		{name: "empty", method: http.MethodPost, contentType: "application/json", body: `{"series": []}`, code: http.StatusBadRequest},
		{name: "too_many", method: http.MethodPost, contentType: "application/json", body: `{"series": [{"values": [1, 1]}, {"values": [1, 1]}, {"values": [1, 1]}, {"values": [1, 1]}]}`, code: http.StatusBadRequest},
		{name: "length", method: http.MethodPost, contentType: "application/json", body: `{"series": [{"values": [1]}]}`, code: http.StatusBadRequest},
		{name: "classifier_failure", method: http.MethodPost, contentType: "application/json", body: `{"series": [{"values": [1, 1]}]}`, clf: threshold{fail: true}, code: http.StatusInternalServerError},
	}
	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			clf := test.clf
			if clf == nil {
				clf = threshold{}
			}
			req := httptest.NewRequest(test.method, "/classify", strings.NewReader(test.body))
			req.Header.Set("Content-Type", test.contentType)
			rec := httptest.NewRecorder()
			newHandler(t, clf).ServeHTTP(rec, req)
			assert.Equal(t, test.code, rec.Code, rec.Body.String())
		})
	}
}

func TestNewHandler_Errors(t *testing.T) {
	t.Parallel()
	_, err := NewHandler(&Config{}, nil, series.NewDataset("x", 1, series.New([]float64{1}, 0)))
	assert.Error(t, err)
	_, err = NewHandler(&Config{}, threshold{}, series.NewDataset("x", 1))
	assert.True(t, errors.Is(err, series.ErrEmptyDataset))
}

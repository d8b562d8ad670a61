// Package classify serves the classification of posted series by a built
// classifier.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-sod/elens/internal/httputil"
	"github.com/go-sod/elens/internal/logging"
	"github.com/go-sod/elens/internal/series"
	"github.com/go-sod/elens/pkg/xrand"
	"golang.org/x/sync/errgroup"
)

const maxBodyBytes = 64 * 1024 * 1024

// Classifier is a built classifier answering distributions over the classes
// of Train.
type Classifier interface {
	Distribution(ctx context.Context, seq series.Sequence) ([]float64, error)
	Seed() int64
}

type request struct {
	Series []struct {
		ID     string    `json:"id"`
		Values []float64 `json:"values"`
	} `json:"series"`
}

type prediction struct {
	ID           string    `json:"id,omitempty"`
	Class        int       `json:"class"`
	Label        float64   `json:"label"`
	Distribution []float64 `json:"distribution"`
}

type response struct {
	Relation    string       `json:"relation"`
	Predictions []prediction `json:"predictions"`
}

// NewHandler returns the handler classifying posted series with clf. train
// is the data clf was built on; posted series must match its length.
func NewHandler(cfg *Config, clf Classifier, train *series.Dataset) (http.Handler, error) {
	if clf == nil {
		return nil, fmt.Errorf("classify: nil classifier")
	}
	if train == nil || train.Len() == 0 {
		return nil, fmt.Errorf("classify: %w", series.ErrEmptyDataset)
	}
	parallelism := cfg.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}
	return &handler{
		cfg:         cfg,
		clf:         clf,
		train:       train,
		parallelism: parallelism,
	}, nil
}

type handler struct {
	cfg         *Config
	clf         Classifier
	train       *series.Dataset
	parallelism int
}

func (h *handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req request
	ctx, cancel := context.WithTimeout(r.Context(), h.cfg.RequestTimeout)
	defer cancel()

	if !httputil.RequireJSON(ctx, w, r) {
		return
	}

	defer r.Body.Close()

	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	d := json.NewDecoder(r.Body)
	d.DisallowUnknownFields()
	if err := d.Decode(&req); err != nil {
		httputil.DecodeErr(ctx, w, err)
		return
	}

	if len(req.Series) == 0 {
		httputil.RespBadRequest(ctx, w, `{"error": "no series to classify"}`)
		return
	}
	if len(req.Series) > h.cfg.MaxSeries {
		httputil.RespBadRequest(ctx, w, `{"error": "too many series, max allowed is %d"}`, h.cfg.MaxSeries)
		return
	}
	length := h.train.Length()
	for i, s := range req.Series {
		if len(s.Values) != length {
			httputil.RespBadRequest(ctx, w, `{"error": "series %d has length %d, want %d"}`, i, len(s.Values), length)
			return
		}
	}

	preds := make([]prediction, len(req.Series))
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(h.parallelism)
	for i, s := range req.Series {
		i, s := i, s
		grp.Go(func() error {
			seq := series.Sequence{Values: s.Values, Class: series.NoClass, Missing: true}
			dist, err := h.clf.Distribution(gctx, seq)
			if err != nil {
				return fmt.Errorf("series %d: %w", i, err)
			}
			c := xrand.ArgMax(dist, h.clf.Seed())
			preds[i] = prediction{ID: s.ID, Class: c, Label: h.train.Label(c), Distribution: dist}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		httputil.RespInternalError(ctx, w, `{"error": "classify processing error, %v"}`, err)
		return
	}

	logging.FromContext(ctx).Debugf("classify: answered %d series", len(preds))
	httputil.RespJSON(ctx, w, http.StatusOK, response{Relation: h.train.Relation, Predictions: preds})
}

package results

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Key identifies one result set in a sink.
type Key struct {
	Classifier string `json:"classifier"`
	Dataset    string `json:"dataset"`
	Split      string `json:"split"`
	Fold       int    `json:"fold"`
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s/%d", k.Classifier, k.Dataset, k.Split, k.Fold)
}

func (r *Results) Key() Key {
	return Key{Classifier: r.Classifier, Dataset: r.Dataset, Split: r.Split, Fold: r.Fold}
}

// Record is one prediction appended to a sink.
type Record struct {
	RunID      uuid.UUID  `json:"runId"`
	Key        Key        `json:"key"`
	Index      int        `json:"index"`
	Prediction Prediction `json:"prediction"`
}

// Meta closes a result set in a sink.
type Meta struct {
	RunID      uuid.UUID     `json:"runId"`
	Key        Key           `json:"key"`
	Params     string        `json:"params,omitempty"`
	NumClasses int           `json:"numClasses"`
	Regression bool          `json:"regression,omitempty"`
	Count      int           `json:"count"`
	BuildTime  time.Duration `json:"buildTime"`
	TimeUnit   string        `json:"timeUnit"`
	Accuracy   float64       `json:"accuracy"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// Sink persists predictions. Append is called once per prediction in index
// order and Finalize once after the last one.
type Sink interface {
	Append(ctx context.Context, record Record) error
	Finalize(ctx context.Context, meta Meta) error
}

// Write streams r into sink under runID.
func Write(ctx context.Context, sink Sink, runID uuid.UUID, r *Results) error {
	key := r.Key()
	for i, p := range r.Predictions {
		if err := sink.Append(ctx, Record{RunID: runID, Key: key, Index: i, Prediction: p}); err != nil {
			return fmt.Errorf("append %s prediction %d: %w", key, i, err)
		}
	}
	meta := Meta{
		RunID:      runID,
		Key:        key,
		Params:     r.Params,
		NumClasses: r.NumClasses,
		Regression: r.Regression,
		Count:      r.Len(),
		BuildTime:  r.BuildTime,
		TimeUnit:   "NANOSECONDS",
		Accuracy:   r.Accuracy(),
		CreatedAt:  time.Now().UTC(),
	}
	if err := sink.Finalize(ctx, meta); err != nil {
		return fmt.Errorf("finalize %s: %w", key, err)
	}
	return nil
}

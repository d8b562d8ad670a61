package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opencensus.io/stats/view"
)

func TestRecordSearch(t *testing.T) {
	require.NoError(t, view.Register(Views...))
	defer view.Unregister(Views...)

	ctx := context.Background()
	RecordSearch(ctx, "DTW_1NN", 10, 4, 2)
	RecordSearch(ctx, "DTW_1NN", 5, 1, 0)
	RecordStage(ctx, "DTW_1NN", "fold", 20*time.Millisecond)
	RecordClassify(ctx, "CAWPE")

	rows, err := view.RetrieveData("elens/distance_count")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	sum, ok := rows[0].Data.(*view.SumData)
	require.True(t, ok)
	assert.Equal(t, 15.0, sum.Value)

	rows, err = view.RetrieveData("elens/stage_latency")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	dist, ok := rows[0].Data.(*view.DistributionData)
	require.True(t, ok)
	assert.Equal(t, int64(1), dist.Count)

	rows, err = view.RetrieveData("elens/classify_count")
	require.NoError(t, err)
	require.Len(t, rows, 1)
}

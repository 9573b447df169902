package filesink

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/hms-wildfire-etl/internal/domain"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fireRecord(date time.Time, points ...orb.Point) domain.Record {
	ds := domain.Dataset{CRS: domain.WGS84}
	for _, p := range points {
		ds.Features = append(ds.Features, geojson.NewFeature(p))
	}
	return domain.Record{Product: domain.Fire, Date: date, Dataset: ds}
}

func TestWriter_Load(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, slog.Default())
	date := time.Date(2024, time.August, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, w.Load(context.Background(), []domain.Record{
		fireRecord(date, orb.Point{-100, 40}, orb.Point{-101, 41}),
	}))

	path := filepath.Join(dir, "fire", "2024-08-10.geojson")
	assert.Equal(t, path, w.Path(fireRecord(date)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	fc, err := geojson.UnmarshalFeatureCollection(data)
	require.NoError(t, err)
	assert.Len(t, fc.Features, 2)
	assert.Equal(t, "fire", fc.ExtraMembers["product"])

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestWriter_Load_Replaces(t *testing.T) {
	dir := t.TempDir()
	w := NewWriter(dir, slog.Default())
	date := time.Date(2024, time.August, 10, 0, 0, 0, 0, time.UTC)

	require.NoError(t, w.Load(context.Background(), []domain.Record{fireRecord(date, orb.Point{1, 1}, orb.Point{2, 2})}))
	require.NoError(t, w.Load(context.Background(), []domain.Record{fireRecord(date, orb.Point{3, 3})}))

	data, err := os.ReadFile(w.Path(fireRecord(date)))
	require.NoError(t, err)

	var body struct {
		Features []json.RawMessage `json:"features"`
	}
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Len(t, body.Features, 1)
}

func TestWriter_Load_CanceledContext(t *testing.T) {
	w := NewWriter(t.TempDir(), slog.Default())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := w.Load(ctx, []domain.Record{fireRecord(time.Now())})
	assert.ErrorIs(t, err, context.Canceled)
}

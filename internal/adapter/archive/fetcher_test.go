package archive

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/couchcryptid/hms-wildfire-etl/internal/domain"
	"github.com/couchcryptid/hms-wildfire-etl/internal/fixture"
	"github.com/couchcryptid/hms-wildfire-etl/internal/observability"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testDate = time.Date(2024, time.August, 10, 0, 0, 0, 0, time.UTC)

func smokeZip(t *testing.T) []byte {
	t.Helper()
	data, err := fixture.SmokeLayer(testDate, []fixture.Plume{
		{Shape: fixture.Square(-100, 40, 2), Density: "Heavy"},
		{Shape: fixture.Square(-90, 35, 1), Density: "Light"},
	}).Zip()
	require.NoError(t, err)
	return data
}

func serveFiles(t *testing.T, files map[string][]byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestFetcher(t *testing.T, opts Options) (*Fetcher, *observability.Metrics) {
	t.Helper()
	if opts.TempDir == "" {
		opts.TempDir = t.TempDir()
	}
	metrics := observability.NewMetricsForTesting()
	src := NewResolver(LocalSource{}, NewRemoteSource(5*time.Second, slog.Default()))
	return NewFetcher(src, opts, slog.Default(), metrics), metrics
}

func smokeRef(location string) domain.ArchiveReference {
	return domain.ArchiveReference{Product: domain.Smoke, Date: testDate, Location: location}
}

func assertTempDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "temporary storage should be removed")
}

func TestFetcher_Remote(t *testing.T) {
	srv := serveFiles(t, map[string][]byte{"/2024/08/hms_smoke20240810.zip": smokeZip(t)})
	tmp := t.TempDir()
	f, metrics := newTestFetcher(t, Options{TempDir: tmp})

	ds, err := f.Fetch(context.Background(), smokeRef(srv.URL+"/2024/08/hms_smoke20240810.zip"))
	require.NoError(t, err)

	assert.Equal(t, domain.WGS84, ds.CRS)
	assert.Equal(t, []string{"Satellite", "Start", "End", "Density"}, ds.Fields)
	require.Equal(t, 2, ds.Len())
	assert.Equal(t, "Heavy", ds.Features[0].Properties["Density"])
	assert.Equal(t, "Light", ds.Features[1].Properties["Density"])

	poly, ok := ds.Features[0].Geometry.(orb.Polygon)
	require.True(t, ok, "expected polygon, got %T", ds.Features[0].Geometry)
	assert.Equal(t, orb.Bound{Min: orb.Point{-100, 40}, Max: orb.Point{-98, 42}}, poly.Bound())

	assertTempDirEmpty(t, tmp)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ArchivesFetched.WithLabelValues("smoke")), 0)
	assert.Positive(t, testutil.ToFloat64(metrics.ArchiveBytes.WithLabelValues("smoke")))
}

func TestFetcher_LocalPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hms_smoke20240810.zip")
	require.NoError(t, os.WriteFile(path, smokeZip(t), 0o600))
	f, _ := newTestFetcher(t, Options{})

	ds, err := f.Fetch(context.Background(), smokeRef(path))
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
}

func TestFetcher_FirePoints(t *testing.T) {
	data, err := fixture.FireLayer(testDate, []fixture.Detection{
		{Lon: -120.5, Lat: 38.25, Satellite: "GOES-WEST", FRP: 12.5},
	}).Zip()
	require.NoError(t, err)
	srv := serveFiles(t, map[string][]byte{"/fire.zip": data})
	f, _ := newTestFetcher(t, Options{})

	ds, err := f.Fetch(context.Background(), domain.ArchiveReference{Product: domain.Fire, Date: testDate, Location: srv.URL + "/fire.zip"})
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())
	assert.Equal(t, orb.Point{-120.5, 38.25}, ds.Features[0].Geometry)
	assert.InDelta(t, 12.5, ds.Features[0].Properties["FRP"], 1e-9)
	assert.Equal(t, "GOES-WEST", ds.Features[0].Properties["Satellite"])
}

func TestFetcher_WebMercatorSource(t *testing.T) {
	layer := fixture.SmokeLayer(testDate, []fixture.Plume{
		{Shape: orb.Polygon{orb.Ring{{0, 0}, {111319.49, 0}, {111319.49, 111325.14}, {0, 111325.14}, {0, 0}}}, Density: "Medium"},
	})
	layer.PRJ = fixture.PRJWebMercator
	data, err := layer.Zip()
	require.NoError(t, err)
	srv := serveFiles(t, map[string][]byte{"/merc.zip": data})
	f, _ := newTestFetcher(t, Options{})

	ds, err := f.Fetch(context.Background(), smokeRef(srv.URL+"/merc.zip"))
	require.NoError(t, err)
	assert.Equal(t, domain.WGS84, ds.CRS)

	b := ds.Features[0].Geometry.Bound()
	assert.InDelta(t, 1.0, b.Max[0], 1e-3)
	assert.InDelta(t, 1.0, b.Max[1], 1e-3)
}

func TestFetcher_NotFound(t *testing.T) {
	srv := serveFiles(t, nil)
	f, metrics := newTestFetcher(t, Options{})

	_, err := f.Fetch(context.Background(), smokeRef(srv.URL+"/missing.zip"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRemoteFetch)

	var fe *domain.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, domain.Smoke, fe.Ref.Product)
	assert.Contains(t, fe.Ref.Location, "/missing.zip")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.FetchErrors.WithLabelValues("smoke", "remote_fetch")), 0)
}

func TestFetcher_CorruptArchive(t *testing.T) {
	srv := serveFiles(t, map[string][]byte{"/bad.zip": []byte("this is not a zip archive")})
	tmp := t.TempDir()
	f, _ := newTestFetcher(t, Options{TempDir: tmp})

	_, err := f.Fetch(context.Background(), smokeRef(srv.URL+"/bad.zip"))
	assert.ErrorIs(t, err, domain.ErrArchiveExtraction)
	assertTempDirEmpty(t, tmp)
}

func TestFetcher_TruncatedShapefile(t *testing.T) {
	dir := t.TempDir()
	shpPath, err := fixture.SmokeLayer(testDate, []fixture.Plume{
		{Shape: fixture.Square(-100, 40, 2), Density: "Heavy"},
		{Shape: fixture.Square(-90, 35, 1), Density: "Light"},
	}).WriteShapefile(dir)
	require.NoError(t, err)

	info, err := os.Stat(shpPath)
	require.NoError(t, err)
	// Cut into the second record's coordinates.
	require.NoError(t, os.Truncate(shpPath, info.Size()-20))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	files := make(map[string][]byte, len(entries))
	for _, e := range entries {
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		require.NoError(t, err)
		files[e.Name()] = data
	}
	data, err := fixture.Zip(files)
	require.NoError(t, err)

	srv := serveFiles(t, map[string][]byte{"/short.zip": data})
	tmp := t.TempDir()
	f, _ := newTestFetcher(t, Options{TempDir: tmp})

	ds, err := f.Fetch(context.Background(), smokeRef(srv.URL+"/short.zip"))
	require.Error(t, err, "a partial layer must not pass as complete")
	assert.ErrorIs(t, err, domain.ErrArchiveExtraction)
	assert.Zero(t, ds.Len())
	assertTempDirEmpty(t, tmp)
}

func TestFetcher_ExtractionLimit(t *testing.T) {
	srv := serveFiles(t, map[string][]byte{"/a.zip": smokeZip(t)})
	tmp := t.TempDir()
	f, _ := newTestFetcher(t, Options{TempDir: tmp, MaxExtractedBytes: 10})

	_, err := f.Fetch(context.Background(), smokeRef(srv.URL+"/a.zip"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrArchiveExtraction)
	assert.Contains(t, err.Error(), "extraction limit")
	assertTempDirEmpty(t, tmp)
}

func TestFetcher_PolygonRingsAndIsland(t *testing.T) {
	outer := fixture.Square(0, 0, 4)
	hole := fixture.Square(1, 1, 1)
	island := fixture.Square(6, 6, 1)
	layer := fixture.Layer{
		Name: "rings",
		PRJ:  fixture.PRJWGS84,
		Rows: []fixture.Row{{Geometry: orb.MultiPolygon{
			{outer[0], hole[0]},
			island,
		}}},
	}
	data, err := layer.Zip()
	require.NoError(t, err)
	srv := serveFiles(t, map[string][]byte{"/rings.zip": data})
	f, _ := newTestFetcher(t, Options{})

	ds, err := f.Fetch(context.Background(), domain.ArchiveReference{Product: domain.Boundary, Location: srv.URL + "/rings.zip"})
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())

	mp, ok := ds.Features[0].Geometry.(orb.MultiPolygon)
	require.True(t, ok, "expected multipolygon, got %T", ds.Features[0].Geometry)
	require.Len(t, mp, 2)
	rings := []int{len(mp[0]), len(mp[1])}
	assert.ElementsMatch(t, []int{2, 1}, rings, "the hole stays with its outer ring")
	assert.InDelta(t, 16.0, math.Abs(planar.Area(mp)), 1e-9)
}

func TestFetcher_NoVectorFile(t *testing.T) {
	data, err := fixture.Zip(map[string][]byte{"readme.txt": []byte("no shapes here")})
	require.NoError(t, err)
	srv := serveFiles(t, map[string][]byte{"/empty.zip": data})
	tmp := t.TempDir()
	f, _ := newTestFetcher(t, Options{TempDir: tmp})

	_, err = f.Fetch(context.Background(), smokeRef(srv.URL+"/empty.zip"))
	assert.ErrorIs(t, err, domain.ErrVectorFileNotFound)
	assertTempDirEmpty(t, tmp)
}

func TestFetcher_MissingProjection(t *testing.T) {
	layer := fixture.SmokeLayer(testDate, []fixture.Plume{{Shape: fixture.Square(0, 0, 1), Density: "Light"}})
	layer.PRJ = ""
	data, err := layer.Zip()
	require.NoError(t, err)
	srv := serveFiles(t, map[string][]byte{"/noprj.zip": data})

	t.Run("no default", func(t *testing.T) {
		f, _ := newTestFetcher(t, Options{})
		_, err := f.Fetch(context.Background(), smokeRef(srv.URL+"/noprj.zip"))
		assert.ErrorIs(t, err, domain.ErrReprojection)
	})

	t.Run("default source CRS", func(t *testing.T) {
		f, _ := newTestFetcher(t, Options{DefaultSourceCRS: domain.WGS84})
		ds, err := f.Fetch(context.Background(), smokeRef(srv.URL+"/noprj.zip"))
		require.NoError(t, err)
		assert.Equal(t, 1, ds.Len())
	})
}

func TestFetcher_CanceledContext(t *testing.T) {
	srv := serveFiles(t, map[string][]byte{"/a.zip": smokeZip(t)})
	f, _ := newTestFetcher(t, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, smokeRef(srv.URL+"/a.zip"))
	assert.ErrorIs(t, err, domain.ErrRemoteFetch)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSkipEntry(t *testing.T) {
	assert.True(t, skipEntry("__MACOSX/hms_smoke20240810.shp"))
	assert.True(t, skipEntry("data/._hms_smoke20240810.shp"))
	assert.False(t, skipEntry("data/hms_smoke20240810.shp"))
}

func TestExtractZIP_FlattensPaths(t *testing.T) {
	data, err := fixture.Zip(map[string][]byte{
		"top.txt":          []byte("x"),
		"nested/dir/b.txt": []byte("y"),
		"__MACOSX/._b.txt": []byte("z"),
	})
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "a.zip")
	require.NoError(t, os.WriteFile(src, data, 0o600))
	fh, err := os.Open(src)
	require.NoError(t, err)
	defer fh.Close()

	dest := t.TempDir()
	require.NoError(t, extractZIP(fh, int64(len(data)), dest, defaultMaxExtractedBytes))

	entries, err := os.ReadDir(dest)
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{"top.txt", "b.txt"}, names)
}

func TestExtractZIP_Limit(t *testing.T) {
	data, err := fixture.Zip(map[string][]byte{
		"a.txt": []byte("0123456789"),
		"b.txt": []byte("0123456789"),
	})
	require.NoError(t, err)

	src := filepath.Join(t.TempDir(), "a.zip")
	require.NoError(t, os.WriteFile(src, data, 0o600))
	fh, err := os.Open(src)
	require.NoError(t, err)
	defer fh.Close()

	require.NoError(t, extractZIP(fh, int64(len(data)), t.TempDir(), 20))

	err = extractZIP(fh, int64(len(data)), t.TempDir(), 15)
	require.Error(t, err, "the second entry crosses the total")
	assert.Contains(t, err.Error(), "b.txt")
}

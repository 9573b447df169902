// Package archive retrieves zipped shapefile bundles and loads them as
// datasets in the working CRS.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/couchcryptid/hms-wildfire-etl/internal/domain"
	"github.com/couchcryptid/hms-wildfire-etl/internal/observability"
	"github.com/couchcryptid/hms-wildfire-etl/internal/spatial"
	"github.com/klauspost/compress/zip"
)

const vectorExt = ".shp"

// defaultMaxExtractedBytes caps the uncompressed size of one archive. Daily
// HMS bundles and the TIGER state file are a few tens of megabytes.
const defaultMaxExtractedBytes int64 = 2 << 30

// Options configures a Fetcher.
type Options struct {
	// TempDir is where scoped temp files and directories are created.
	// Empty means the OS default.
	TempDir string

	// DefaultSourceCRS is assumed for archives without a .prj. Empty makes a
	// missing .prj a reprojection failure.
	DefaultSourceCRS domain.CRS

	// MaxExtractedBytes bounds the total uncompressed bytes written per
	// archive. Zero means 2 GiB.
	MaxExtractedBytes int64
}

// Fetcher retrieves an archive, extracts it into scoped temporary storage,
// and loads its first shapefile.
type Fetcher struct {
	source  Source
	opts    Options
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewFetcher creates a Fetcher reading archive bytes from source.
func NewFetcher(source Source, opts Options, logger *slog.Logger, metrics *observability.Metrics) *Fetcher {
	return &Fetcher{
		source:  source,
		opts:    opts,
		logger:  logger,
		metrics: metrics,
	}
}

// Fetch loads the dataset for ref in the working CRS. Every failure is a
// *domain.FetchError; temporary storage is removed on every path.
func (f *Fetcher) Fetch(ctx context.Context, ref domain.ArchiveReference) (domain.Dataset, error) {
	product := string(ref.Product)

	data, err := f.source.Read(ctx, ref.Location)
	if err != nil {
		return domain.Dataset{}, f.fail(ref, domain.ErrRemoteFetch, err)
	}
	f.metrics.ArchiveBytes.WithLabelValues(product).Add(float64(len(data)))

	ds, err := f.load(ref, data)
	if err != nil {
		return domain.Dataset{}, err
	}

	f.metrics.ArchivesFetched.WithLabelValues(product).Inc()
	f.logger.Debug("archive loaded",
		"product", product,
		"url", ref.Location,
		"features", ds.Len(),
	)
	return ds, nil
}

func (f *Fetcher) fail(ref domain.ArchiveReference, kind, err error) error {
	f.metrics.FetchErrors.WithLabelValues(string(ref.Product), domain.KindOf(kind)).Inc()
	return domain.NewFetchError(ref, kind, err)
}

// load runs the scoped temp-storage part of a fetch.
func (f *Fetcher) load(ref domain.ArchiveReference, data []byte) (domain.Dataset, error) {
	tmp, err := os.CreateTemp(f.opts.TempDir, "hms-*.zip")
	if err != nil {
		return domain.Dataset{}, f.fail(ref, domain.ErrArchiveExtraction, fmt.Errorf("create temp file: %w", err))
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if _, err := tmp.Write(data); err != nil {
		return domain.Dataset{}, f.fail(ref, domain.ErrArchiveExtraction, fmt.Errorf("write temp file: %w", err))
	}

	dir, err := os.MkdirTemp(f.opts.TempDir, "hms-*")
	if err != nil {
		return domain.Dataset{}, f.fail(ref, domain.ErrArchiveExtraction, fmt.Errorf("create temp dir: %w", err))
	}
	defer os.RemoveAll(dir)

	if err := extractZIP(tmp, int64(len(data)), dir, f.extractLimit()); err != nil {
		return domain.Dataset{}, f.fail(ref, domain.ErrArchiveExtraction, err)
	}

	shpPath, err := findFileByExt(dir, vectorExt)
	if err != nil {
		return domain.Dataset{}, f.fail(ref, domain.ErrVectorFileNotFound, err)
	}

	ds, err := readShapefile(shpPath)
	if err != nil {
		return domain.Dataset{}, f.fail(ref, domain.ErrArchiveExtraction, err)
	}

	crs, err := f.sourceCRS(shpPath)
	if err != nil {
		return domain.Dataset{}, f.fail(ref, domain.ErrReprojection, err)
	}
	ds.CRS = crs

	out, err := spatial.Reproject(ds, domain.WorkingCRS)
	if err != nil {
		return domain.Dataset{}, f.fail(ref, domain.ErrReprojection, err)
	}
	return out, nil
}

// sourceCRS reads the .prj next to shpPath.
func (f *Fetcher) sourceCRS(shpPath string) (domain.CRS, error) {
	base := strings.TrimSuffix(shpPath, filepath.Ext(shpPath))
	for _, ext := range []string{".prj", ".PRJ"} {
		data, err := os.ReadFile(base + ext)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("read projection file: %w", err)
		}
		return ParseCRS(string(data))
	}

	if f.opts.DefaultSourceCRS != "" {
		return f.opts.DefaultSourceCRS, nil
	}
	return "", errors.New("projection file missing and no default source CRS configured")
}

func (f *Fetcher) extractLimit() int64 {
	if f.opts.MaxExtractedBytes > 0 {
		return f.opts.MaxExtractedBytes
	}
	return defaultMaxExtractedBytes
}

// extractZIP extracts an archive into destDir, flattening entry paths so
// nothing is written outside destDir. At most limit bytes are written in
// total, and no entry may inflate past its declared size.
func extractZIP(ra io.ReaderAt, size int64, destDir string, limit int64) error {
	r, err := zip.NewReader(ra, size)
	if err != nil {
		return fmt.Errorf("open zip: %w", err)
	}

	remaining := limit
	for _, f := range r.File {
		if f.FileInfo().IsDir() || skipEntry(f.Name) {
			continue
		}
		if f.UncompressedSize64 > uint64(remaining) {
			return fmt.Errorf("zip entry %s: %d bytes exceeds the %d byte extraction limit", f.Name, f.UncompressedSize64, limit)
		}
		n, err := extractEntry(f, filepath.Join(destDir, filepath.Base(f.Name)))
		if err != nil {
			return err
		}
		remaining -= n
	}
	return nil
}

// extractEntry copies one entry, reading one byte past its declared size so
// an entry that lies about its size is caught rather than trusted.
func extractEntry(f *zip.File, destPath string) (int64, error) {
	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("open zip entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(destPath)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", destPath, err)
	}
	declared := int64(f.UncompressedSize64)
	n, err := io.Copy(out, io.LimitReader(rc, declared+1))
	if err != nil {
		_ = out.Close()
		return n, fmt.Errorf("extract %s: %w", f.Name, err)
	}
	if n > declared {
		_ = out.Close()
		return n, fmt.Errorf("extract %s: entry inflates past its declared %d bytes", f.Name, declared)
	}
	return n, out.Close()
}

// skipEntry filters macOS resource-fork entries, which carry shapefile
// extensions but no shapefile data.
func skipEntry(name string) bool {
	return strings.Contains(name, "__MACOSX/") || strings.HasPrefix(filepath.Base(name), "._")
}

// findFileByExt returns the first file in dir, by name, with the given extension.
func findFileByExt(dir, ext string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("read directory: %w", err)
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(strings.ToLower(e.Name()), ext) {
			return filepath.Join(dir, e.Name()), nil
		}
	}
	return "", fmt.Errorf("no %s file in archive", ext)
}

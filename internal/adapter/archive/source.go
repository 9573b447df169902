package archive

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"
)

// Source yields the raw bytes of one archive.
type Source interface {
	Read(ctx context.Context, location string) ([]byte, error)
}

// LocalSource reads archives from the local filesystem.
type LocalSource struct{}

func (LocalSource) Read(_ context.Context, location string) ([]byte, error) {
	data, err := os.ReadFile(location)
	if err != nil {
		return nil, fmt.Errorf("read local archive: %w", err)
	}
	return data, nil
}

// RemoteSource downloads archives over HTTP.
type RemoteSource struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewRemoteSource creates an HTTP source with a per-request timeout.
func NewRemoteSource(timeout time.Duration, logger *slog.Logger) *RemoteSource {
	return &RemoteSource{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

func (s *RemoteSource) Read(ctx context.Context, location string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	s.logger.Debug("archive downloaded", "url", location, "bytes", len(data))
	return data, nil
}

// Resolver picks the local or remote variant per location: an existing
// regular file is read from disk, anything else is fetched over HTTP.
type Resolver struct {
	Local  Source
	Remote Source
}

// NewResolver creates a Resolver over the given source variants.
func NewResolver(local, remote Source) *Resolver {
	return &Resolver{Local: local, Remote: remote}
}

// Resolve returns the source variant for location.
func (r *Resolver) Resolve(location string) Source {
	if info, err := os.Stat(location); err == nil && info.Mode().IsRegular() {
		return r.Local
	}
	return r.Remote
}

func (r *Resolver) Read(ctx context.Context, location string) ([]byte, error) {
	return r.Resolve(location).Read(ctx, location)
}

package domain

import (
	"errors"
	"fmt"
)

// Failure kinds for a single archive fetch. Match with errors.Is.
var (
	ErrRemoteFetch        = errors.New("remote fetch failed")
	ErrArchiveExtraction  = errors.New("archive extraction failed")
	ErrVectorFileNotFound = errors.New("no vector file found")
	ErrReprojection       = errors.New("reprojection failed")
	ErrGeometry           = errors.New("geometry processing failed")
)

// FetchError reports a failed fetch of one archive with enough context for
// the caller to decide whether to skip the date or abort the batch.
type FetchError struct {
	Ref  ArchiveReference
	Kind error
	Err  error
}

func (e *FetchError) Error() string {
	date := "-"
	if !e.Ref.Date.IsZero() {
		date = e.Ref.Date.Format(DateLayout)
	}
	if e.Err == nil {
		return fmt.Sprintf("fetch %s %s %s: %v", e.Ref.Product, date, e.Ref.Location, e.Kind)
	}
	return fmt.Sprintf("fetch %s %s %s: %v: %v", e.Ref.Product, date, e.Ref.Location, e.Kind, e.Err)
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *FetchError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewFetchError builds a FetchError for ref.
func NewFetchError(ref ArchiveReference, kind, err error) *FetchError {
	return &FetchError{Ref: ref, Kind: kind, Err: err}
}

// KindOf returns a short label for the failure kind in err, for logs and metrics.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRemoteFetch):
		return "remote_fetch"
	case errors.Is(err, ErrArchiveExtraction):
		return "archive_extraction"
	case errors.Is(err, ErrVectorFileNotFound):
		return "vector_file_not_found"
	case errors.Is(err, ErrReprojection):
		return "reprojection"
	case errors.Is(err, ErrGeometry):
		return "geometry"
	default:
		return "other"
	}
}

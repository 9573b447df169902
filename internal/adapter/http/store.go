package http

import (
	"context"
	"net/http"
	"sort"
	"sync"

	"github.com/couchcryptid/hms-wildfire-etl/internal/domain"
)

// RecordStore holds the latest cycle's records, encoded once per load, for
// the /v1 routes. It implements pipeline.Loader.
type RecordStore struct {
	mu      sync.RWMutex
	records map[domain.Product]map[string][]byte // product -> date -> GeoJSON
}

// NewRecordStore creates an empty store.
func NewRecordStore() *RecordStore {
	return &RecordStore{records: make(map[domain.Product]map[string][]byte)}
}

func (s *RecordStore) Name() string { return "http" }

// Load replaces the stored records of every product present in records.
func (s *RecordStore) Load(_ context.Context, records []domain.Record) error {
	next := make(map[domain.Product]map[string][]byte)
	for _, r := range records {
		data, err := domain.EncodeRecord(r)
		if err != nil {
			return err
		}
		if next[r.Product] == nil {
			next[r.Product] = make(map[string][]byte)
		}
		next[r.Product][r.Date.Format(domain.DateLayout)] = data
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for product, byDate := range next {
		s.records[product] = byDate
	}
	return nil
}

// Dates lists the stored dates of product, most recent first.
func (s *RecordStore) Dates(product domain.Product) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dates := make([]string, 0, len(s.records[product]))
	for d := range s.records[product] {
		dates = append(dates, d)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates
}

// Get returns the stored GeoJSON for product on date.
func (s *RecordStore) Get(product domain.Product, date string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.records[product][date]
	return data, ok
}

func parseProduct(s string) (domain.Product, bool) {
	switch p := domain.Product(s); p {
	case domain.Smoke, domain.Fire:
		return p, true
	default:
		return "", false
	}
}

func (s *RecordStore) handleIndex(w http.ResponseWriter, r *http.Request) {
	product, ok := parseProduct(r.PathValue("product"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown product"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"product": product,
		"dates":   s.Dates(product),
	})
}

func (s *RecordStore) handleRecord(w http.ResponseWriter, r *http.Request) {
	product, ok := parseProduct(r.PathValue("product"))
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown product"})
		return
	}
	date := r.PathValue("date")
	if _, err := domain.ParseDate(date); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD"})
		return
	}

	data, ok := s.Get(product, date)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no record for date"})
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

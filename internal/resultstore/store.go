// Package resultstore is the single authority over the locally cached
// analysis history.
//
// The history is one JSON array of raw (pre-normalization) records, most
// recent first, capped at DefaultCapacity entries, kept under one storage
// key. Every write replaces the whole array in a single storage call.
// Records are normalized on read, so entries persisted under an older field
// naming still display correctly.
package resultstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jonathanw33/mrsa-kds/internal/logger"
	"github.com/jonathanw33/mrsa-kds/internal/metrics"
	"github.com/jonathanw33/mrsa-kds/internal/model"
	"github.com/jonathanw33/mrsa-kds/internal/storage"
	"github.com/sirupsen/logrus"
)

const (
	DefaultKey      = "analysisResults"
	DefaultCapacity = 10

	sourceSavedAtField = "source_saved_at"

	// savedAtLayout is RFC 3339 with fixed nanosecond width so stamps taken
	// in the same second stay distinct.
	savedAtLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// ErrPersistence marks a failure of the underlying storage. Save and Remove
// return it wrapped; the stored history is unchanged when it occurs.
var ErrPersistence = errors.New("resultstore: persistence failure")

type Store struct {
	mu       sync.Mutex
	backend  storage.Store
	key      string
	capacity int
	now      func() time.Time
	log      logrus.FieldLogger
	metrics  *metrics.Metrics
}

type Option func(*Store)

func WithKey(key string) Option {
	return func(s *Store) {
		if strings.TrimSpace(key) != "" {
			s.key = key
		}
	}
}

// WithCapacity lowers the history cap. Values outside 1..DefaultCapacity
// are ignored.
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 && n <= DefaultCapacity {
			s.capacity = n
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

func New(backend storage.Store, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		key:      DefaultKey,
		capacity: DefaultCapacity,
		now:      time.Now,
		log:      logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.Component(s.log, "resultstore").WithField("history_key", s.key)
	return s
}

// Save stamps raw with a fresh savedAt, prepends it to the history, drops whatever falls past the capacity and writes the
// history back. It returns the record as List will later report it.
func (s *Store) Save(ctx context.Context, raw Raw) (model.AnalysisRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		s.metrics.PersistenceError("save")
		return model.AnalysisRecord{}, fmt.Errorf("%w: read history: %w", ErrPersistence, err)
	}

	entry := make(Raw, len(raw)+1)
	for k, v := range raw {
		entry[k] = v
	}
	// Only the store assigns savedAt. A producer's stamp moves to
	// sourceSavedAtField.
	if prev, ok := firstString(entry, savedAtAliases); ok && strings.TrimSpace(prev) != "" {
		entry[sourceSavedAtField] = prev
	}
	for _, alias := range savedAtAliases {
		delete(entry, alias)
	}
	entry["savedAt"] = s.stamp(items)

	encoded, err := json.Marshal(entry)
	if err != nil {
		s.metrics.PersistenceError("save")
		return model.AnalysisRecord{}, fmt.Errorf("%w: encode record: %w", ErrPersistence, err)
	}

	next := make([]json.RawMessage, 0, len(items)+1)
	next = append(next, encoded)
	next = append(next, items...)
	evicted := 0
	if len(next) > s.capacity {
		evicted = len(next) - s.capacity
		next = next[:s.capacity]
	}

	if err := s.store(ctx, next); err != nil {
		s.metrics.PersistenceError("save")
		return model.AnalysisRecord{}, fmt.Errorf("%w: write history: %w", ErrPersistence, err)
	}
	s.metrics.HistorySaved(len(next), evicted)

	rec := Normalize(decodeRaw(encoded))
	s.log.WithFields(logrus.Fields{
		"saved_at": rec.SavedAt,
		"size":     len(next),
		"evicted":  evicted,
	}).Debug("analysis saved to history")
	return rec, nil
}

// List returns the history, normalized, most recent first. A storage read
// failure yields an empty history rather than an error.
func (s *Store) List(ctx context.Context) []model.AnalysisRecord {
	s.mu.Lock()
	items, err := s.load(ctx)
	s.mu.Unlock()
	if err != nil {
		s.metrics.PersistenceError("list")
		s.log.WithError(err).Warn("history unreadable, serving empty history")
		return []model.AnalysisRecord{}
	}
	return normalizeAll(items)
}

// Get resolves key against record ids, then savedAt stamps, then list
// positions. found is false when nothing matches.
func (s *Store) Get(ctx context.Context, key string) (rec model.AnalysisRecord, found bool) {
	records := s.List(ctx)
	idx := resolve(records, key)
	if idx < 0 {
		return model.AnalysisRecord{}, false
	}
	return records[idx], true
}

// Remove deletes the record Get would return for key. A missing key is not
// an error: it reports found=false and leaves storage untouched.
func (s *Store) Remove(ctx context.Context, key string) (found bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	items, err := s.load(ctx)
	if err != nil {
		s.metrics.PersistenceError("remove")
		return false, fmt.Errorf("%w: read history: %w", ErrPersistence, err)
	}

	idx := resolve(normalizeAll(items), key)
	if idx < 0 {
		return false, nil
	}

	next := make([]json.RawMessage, 0, len(items)-1)
	next = append(next, items[:idx]...)
	next = append(next, items[idx+1:]...)
	if err := s.store(ctx, next); err != nil {
		s.metrics.PersistenceError("remove")
		return false, fmt.Errorf("%w: write history: %w", ErrPersistence, err)
	}
	s.metrics.HistoryRemoved(len(next))
	s.log.WithFields(logrus.Fields{"key": key, "size": len(next)}).Debug("analysis removed from history")
	return true, nil
}

func (s *Store) load(ctx context.Context) ([]json.RawMessage, error) {
	data, err := s.backend.Get(ctx, s.key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode history: %w", err)
	}
	return items, nil
}

func (s *Store) store(ctx context.Context, items []json.RawMessage) error {
	if items == nil {
		items = []json.RawMessage{}
	}
	data, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	return s.backend.Put(ctx, s.key, data)
}

// stamp returns the current time, advanced past the head's savedAt when the
// clock has not moved beyond it, so savedAt strictly decreases down the list.
func (s *Store) stamp(items []json.RawMessage) string {
	now := s.now().UTC()
	if len(items) > 0 {
		if head, ok := firstString(decodeRaw(items[0]), savedAtAliases); ok {
			if prev, err := time.Parse(time.RFC3339Nano, head); err == nil && !now.After(prev) {
				now = prev.UTC().Add(time.Nanosecond)
			}
		}
	}
	return now.Format(savedAtLayout)
}

// resolve returns the index of the record matching key, or -1. Matching
// order is id, savedAt, then a decimal position into records. The position
// fallback keeps old history links (which used list positions) working.
func resolve(records []model.AnalysisRecord, key string) int {
	key = strings.TrimSpace(key)
	if key == "" {
		return -1
	}
	for i, rec := range records {
		if rec.ID != "" && rec.ID == key {
			return i
		}
	}
	for i, rec := range records {
		if rec.SavedAt != "" && rec.SavedAt == key {
			return i
		}
	}
	if !isDecimal(key) {
		return -1
	}
	if n, err := strconv.Atoi(key); err == nil && n < len(records) {
		return n
	}
	return -1
}

// isDecimal reports whether key is a plain run of ASCII digits.
func isDecimal(key string) bool {
	for _, r := range key {
		if r < '0' || r > '9' {
			return false
		}
	}
	return key != ""
}

func normalizeAll(items []json.RawMessage) []model.AnalysisRecord {
	records := make([]model.AnalysisRecord, 0, len(items))
	for _, item := range items {
		records = append(records, Normalize(decodeRaw(item)))
	}
	return records
}

// decodeRaw decodes one persisted entry. Entries that are not JSON objects
// decode to an empty Raw and normalize to defaults.
func decodeRaw(item json.RawMessage) Raw {
	raw, err := unmarshalRaw(item)
	if err != nil || raw == nil {
		return Raw{}
	}
	return raw
}

// DecodeRaw parses an API response body into a Raw record.
func DecodeRaw(body []byte) (Raw, error) {
	raw, err := unmarshalRaw(body)
	if err != nil {
		return nil, fmt.Errorf("failed to decode analysis result: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("failed to decode analysis result: not a JSON object")
	}
	return raw, nil
}

// unmarshalRaw keeps numbers as json.Number so large integer ids survive
// intact.
func unmarshalRaw(data []byte) (Raw, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw Raw
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("trailing data after JSON object")
	}
	return raw, nil
}

package ledger

import (
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Raw bodies are capped so a misbehaving response cannot bloat the audit
// table.
const maxRawLen = 8192

// Store is the append-only transaction ledger. There are no updates and no
// deletes in normal operation.
type Store interface {
	// Put redacts the record's raw request, assigns an id and creation time,
	// and persists it. The stored record is returned.
	Put(rec Record) (Record, error)

	// LatestByToken returns the most recent record for token and operation.
	LatestByToken(token string, op Operation) (Record, bool, error)

	// ByToken returns every record for a checkout session, newest first.
	ByToken(token string) ([]Record, error)

	// ByCorrelationID returns records matching PayPal's correlation id,
	// newest first. Correlation ids are not unique on our side.
	ByCorrelationID(correlationID string) ([]Record, error)
}

// prepare applies the write-side invariants shared by every store:
// redaction happens before persistence, never after.
func prepare(rec Record) Record {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.RawRequest = truncate(Redact(rec.RawRequest))
	rec.RawResponse = truncate(rec.RawResponse)
	return rec
}

func truncate(s string) string {
	if len(s) <= maxRawLen {
		return s
	}
	// Cut on a rune boundary so the stored body stays valid UTF-8.
	cut := maxRawLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// InMemoryStore keeps records in memory, for tests and local development.
type InMemoryStore struct {
	mu   sync.Mutex
	recs []Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Put(rec Record) (Record, error) {
	rec = prepare(rec)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return rec, nil
}

func (s *InMemoryStore) LatestByToken(token string, op Operation) (Record, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found Record
	ok := false
	for _, rec := range s.recs {
		if rec.Token != token || rec.Operation != op {
			continue
		}
		// On equal timestamps the later insertion wins; recs holds
		// insertion order.
		if !ok || !rec.CreatedAt.Before(found.CreatedAt) {
			found = rec
			ok = true
		}
	}
	return found, ok, nil
}

func (s *InMemoryStore) ByToken(token string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter(func(r Record) bool { return r.Token == token }), nil
}

func (s *InMemoryStore) ByCorrelationID(correlationID string) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter(func(r Record) bool { return r.CorrelationID == correlationID }), nil
}

// Len reports how many records have been written, used by audit tests.
func (s *InMemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.recs)
}

func (s *InMemoryStore) filter(keep func(Record) bool) []Record {
	// Walk backwards so equal timestamps come out newest insertion first,
	// matching the SQL store's insertion-sequence tie-break.
	var out []Record
	for i := len(s.recs) - 1; i >= 0; i-- {
		if keep(s.recs[i]) {
			out = append(out, s.recs[i])
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

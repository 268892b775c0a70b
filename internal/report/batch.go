package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/nestorcolt/blockcatcher/internal/models"
)

// Entry is one keyed offer-seen record inside a batch.
type Entry struct {
	Key    string
	Record models.OfferSeenRecord
}

// Batch accumulates the offer-seen records of one polling cycle. It is
// append-only until publish time and safe for concurrent appends from
// the per-offer workers; a duplicate key is rejected rather than
// silently overwritten.
type Batch struct {
	mu      sync.Mutex
	keys    map[string]struct{}
	entries []Entry
}

func NewBatch() *Batch {
	return &Batch{keys: map[string]struct{}{}}
}

func (b *Batch) Append(key string, rec models.OfferSeenRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, dup := b.keys[key]; dup {
		return fmt.Errorf("report batch: duplicate key %q", key)
	}
	b.keys[key] = struct{}{}
	b.entries = append(b.entries, Entry{Key: key, Record: rec})
	return nil
}

func (b *Batch) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

// Entries returns the batch contents in insertion order.
func (b *Batch) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

// NewKey synthesizes a batch key unique even under concurrent insertion
// for the same user and timestamp.
func NewKey(userID string, timestamp int64) string {
	return fmt.Sprintf("%s-%d-%s", userID, timestamp, uuid.NewString())
}

// marshalEntries serializes entries as a JSON object preserving
// insertion order, which encoding/json's map type would not.
func marshalEntries(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Key)
		if err != nil {
			return nil, fmt.Errorf("marshal batch key: %w", err)
		}
		val, err := json.Marshal(e.Record)
		if err != nil {
			return nil, fmt.Errorf("marshal batch record %q: %w", e.Key, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

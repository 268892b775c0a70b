package report

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/nestorcolt/blockcatcher/internal/models"
)

func TestBatchRejectsDuplicateKey(t *testing.T) {
	b := NewBatch()
	rec := models.OfferSeenRecord{UserID: "u1", Data: json.RawMessage(`{}`)}
	if err := b.Append("k1", rec); err != nil {
		t.Fatalf("first append: %v", err)
	}
	if err := b.Append("k1", rec); err == nil {
		t.Fatalf("expected duplicate key error")
	}
	if b.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", b.Len())
	}
}

func TestBatchConcurrentAppends(t *testing.T) {
	const n = 100
	b := NewBatch()
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := NewKey("u1", int64(i))
			rec := models.OfferSeenRecord{
				UserID: "u1",
				Data:   json.RawMessage(fmt.Sprintf(`{"offerId":"o%d"}`, i)),
			}
			if err := b.Append(key, rec); err != nil {
				t.Errorf("append %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	entries := b.Entries()
	if len(entries) != n {
		t.Fatalf("expected %d entries, got %d", n, len(entries))
	}
	seen := map[string]struct{}{}
	for _, e := range entries {
		if _, dup := seen[e.Key]; dup {
			t.Fatalf("duplicate key %q", e.Key)
		}
		seen[e.Key] = struct{}{}
	}
}

func TestNewKeyUniqueForSameUserAndTimestamp(t *testing.T) {
	if NewKey("u1", 42) == NewKey("u1", 42) {
		t.Fatalf("keys for the same user and timestamp must differ")
	}
}

func TestMarshalEntriesPreservesInsertionOrder(t *testing.T) {
	entries := []Entry{
		{Key: "b", Record: models.OfferSeenRecord{UserID: "u1", Data: json.RawMessage(`1`)}},
		{Key: "a", Record: models.OfferSeenRecord{UserID: "u1", Data: json.RawMessage(`2`)}},
	}
	body, err := marshalEntries(entries)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got := string(body); got[:4] != `{"b"` {
		t.Fatalf("expected first inserted key first, got %s", got)
	}
	var decoded map[string]models.OfferSeenRecord
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(decoded))
	}
}

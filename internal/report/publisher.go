package report

import (
	"context"
	"log"
	"os"

	"github.com/nestorcolt/blockcatcher/internal/queue"
)

// MaxMessageBytes is the queue's maximum message size. Serialized size
// is measured as JSON length times two for wide-character parity with
// the upstream consumers.
const MaxMessageBytes = 262144

// Archiver stores a published fragment for later replay. Optional and
// fire-and-forget.
type Archiver interface {
	Archive(ctx context.Context, userID string, fragment []byte) error
}

type PublisherConfig struct {
	Queue    queue.Enqueuer
	Archiver Archiver
	Logger   *log.Logger
}

// Publisher delivers report batches to the queue, splitting any batch
// whose serialized form exceeds MaxMessageBytes into size-bounded
// fragments. A failed fragment is logged and skipped; the remaining
// fragments are still published.
type Publisher struct {
	queue    queue.Enqueuer
	archiver Archiver
	logger   *log.Logger
}

func NewPublisher(cfg PublisherConfig) *Publisher {
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[report] ", log.LstdFlags)
	}
	return &Publisher{
		queue:    cfg.Queue,
		archiver: cfg.Archiver,
		logger:   logger,
	}
}

// Publish fragments and enqueues a batch. The batch must not be
// appended to once handed over.
func (p *Publisher) Publish(ctx context.Context, queueURL, userID string, batch *Batch) {
	entries := batch.Entries()
	if len(entries) == 0 {
		return
	}
	fragments, err := Fragment(entries, MaxMessageBytes)
	if err != nil {
		p.logger.Printf("fragment batch for user %s: %v", userID, err)
		return
	}
	for _, frag := range fragments {
		body, err := marshalEntries(frag)
		if err != nil {
			p.logger.Printf("marshal fragment for user %s: %v", userID, err)
			continue
		}
		if err := p.queue.Enqueue(ctx, queueURL, string(body)); err != nil {
			p.logger.Printf("enqueue fragment for user %s: %v", userID, err)
			continue
		}
		if p.archiver != nil {
			if err := p.archiver.Archive(ctx, userID, body); err != nil {
				p.logger.Printf("archive fragment for user %s: %v", userID, err)
			}
		}
	}
}

// Fragment splits entries into consecutive runs whose serialized size
// fits budget, peeling last-inserted entries into the overflow until
// the head run fits. A single entry over budget still forms its own
// fragment, so the loop always makes progress and the fragment count is
// bounded by the entry count.
func Fragment(entries []Entry, budget int) ([][]Entry, error) {
	var fragments [][]Entry
	remaining := entries
	for len(remaining) > 0 {
		cut := len(remaining)
		for cut > 1 {
			size, err := serializedSize(remaining[:cut])
			if err != nil {
				return nil, err
			}
			if size <= budget {
				break
			}
			cut--
		}
		fragments = append(fragments, remaining[:cut])
		remaining = remaining[cut:]
	}
	return fragments, nil
}

func serializedSize(entries []Entry) (int, error) {
	body, err := marshalEntries(entries)
	if err != nil {
		return 0, err
	}
	return len(body) * 2, nil
}

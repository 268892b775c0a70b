package runner

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/nestorcolt/blockcatcher/internal/catcher"
	"github.com/nestorcolt/blockcatcher/internal/httpserver"
	"github.com/nestorcolt/blockcatcher/internal/store"
)

type Config struct {
	// PollInterval is the cadence between cycles that may continue.
	// Defaults to 2s.
	PollInterval time.Duration

	// FailureBackoff is the wait after a cycle that signalled "not
	// successful". Defaults to 30s. The fleet-level sleep/deactivate
	// policies ride on events, not on this local backoff.
	FailureBackoff time.Duration

	Logger *log.Logger
}

// RunUser polls the offer service for one user until ctx is cancelled.
// The profile is re-read from the store every cycle so credential
// refreshes by the authenticator take effect on the next pass.
func RunUser(ctx context.Context, c *catcher.Catcher, st store.ProfileStore, tracker *httpserver.Tracker, userID string, cfg Config) {
	interval := cfg.PollInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	backoff := cfg.FailureBackoff
	if backoff <= 0 {
		backoff = 30 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[runner] ", log.LstdFlags)
	}

	for {
		if ctx.Err() != nil {
			return
		}
		wait := interval

		user, err := st.GetUser(ctx, userID)
		if err != nil {
			logger.Printf("load user %s: %v", userID, err)
			wait = backoff
		} else {
			ok := c.LookingForBlocks(ctx, user)
			now := time.Now().UTC()
			if tracker != nil {
				tracker.Record(httpserver.CycleStatus{
					UserID:   userID,
					LastRun:  now,
					Continue: ok,
				})
			}
			if err := st.TouchUser(ctx, userID, now.Unix()); err != nil {
				logger.Printf("touch user %s: %v", userID, err)
			}
			if !ok {
				wait = backoff
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

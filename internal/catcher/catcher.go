package catcher

import (
	"context"
	"log"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/nestorcolt/blockcatcher/internal/auth"
	"github.com/nestorcolt/blockcatcher/internal/eligibility"
	"github.com/nestorcolt/blockcatcher/internal/events"
	"github.com/nestorcolt/blockcatcher/internal/flexapi"
	"github.com/nestorcolt/blockcatcher/internal/headers"
	"github.com/nestorcolt/blockcatcher/internal/models"
	"github.com/nestorcolt/blockcatcher/internal/report"
)

// SleepCooldown is how long the fleet controller pauses a user after a
// rate-limit response. Policy constant; the catcher only signals it.
const SleepCooldown = 30 * time.Minute

const defaultMaxWorkers = 16

type Config struct {
	// Lifecycle event topics.
	AcceptedTopic string
	SleepTopic    string
	StopTopic     string

	// Queue destinations for report batches. AcceptedQueueURL may be
	// empty, in which case accepted offers are reported through events
	// only.
	OffersQueueURL   string
	AcceptedQueueURL string

	// MaxWorkers bounds the per-offer fan-out. Defaults to 16.
	MaxWorkers int

	Logger *log.Logger
}

// Catcher runs the offer acquisition pipeline for one user at a time:
// precondition checks, fetch, concurrent per-offer validation, accept
// calls, and report publication.
type Catcher struct {
	api       flexapi.Client
	evaluator *eligibility.Evaluator
	events    events.Publisher
	reports   *report.Publisher
	auth      auth.Authenticator
	headers   *headers.Synthesizer
	cfg       Config
	logger    *log.Logger
}

func New(api flexapi.Client, evaluator *eligibility.Evaluator, pub events.Publisher, reports *report.Publisher, authenticator auth.Authenticator, synth *headers.Synthesizer, cfg Config) *Catcher {
	if cfg.MaxWorkers <= 0 {
		cfg.MaxWorkers = defaultMaxWorkers
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(os.Stdout, "[catcher] ", log.LstdFlags)
	}
	return &Catcher{
		api:       api,
		evaluator: evaluator,
		events:    pub,
		reports:   reports,
		auth:      authenticator,
		headers:   synth,
		cfg:       cfg,
		logger:    logger,
	}
}

// LookingForBlocks runs one polling cycle for the user and reports
// whether the caller may immediately start another one. It never sleeps
// or loops itself; pause and deactivation intent is signalled through
// events.
func (c *Catcher) LookingForBlocks(ctx context.Context, user models.UserProfile) bool {
	if !user.ScheduleHasData() {
		c.DeactivateUser(ctx, user.UserID)
		c.logger.Printf("user %s deactivated: no usable search schedule", user.UserID)
		return false
	}

	if user.ServiceAreaHeader == "" {
		c.logger.Printf("user %s has no service area header, re-authenticating", user.UserID)
		if err := c.auth.RequestNewAccessToken(ctx, &user); err != nil {
			c.logger.Printf("re-authenticate user %s: %v", user.UserID, err)
		}
		return false
	}

	requestHeaders, err := c.headers.Synthesize(user.AccessToken, c.api.OffersURL())
	if err != nil {
		c.logger.Printf("synthesize headers for user %s: %v", user.UserID, err)
		return false
	}

	status := c.runCycle(ctx, user, requestHeaders)

	switch {
	case statusSuccess(status):
		return true
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		c.logger.Printf("user %s token rejected (status %d), requesting new access token", user.UserID, status)
		if err := c.auth.RequestNewAccessToken(ctx, &user); err != nil {
			c.logger.Printf("re-authenticate user %s: %v", user.UserID, err)
		}
	case status == http.StatusBadRequest || status == http.StatusTooManyRequests:
		c.publishUserEvent(ctx, c.cfg.SleepTopic, user.UserID, nil)
		c.logger.Printf("user %s rate limited (status %d), pausing for %s", user.UserID, status, SleepCooldown)
	default:
		c.logger.Printf("user %s cycle ended with status %d", user.UserID, status)
	}
	return false
}

// DeactivateUser signals the fleet controller to take the user out of
// rotation. An external process re-enables the user.
func (c *Catcher) DeactivateUser(ctx context.Context, userID string) {
	c.publishUserEvent(ctx, c.cfg.StopTopic, userID, nil)
}

// runCycle executes one fetch-validate-accept-report pass and returns
// the fetch call's status code. Every fetched offer produces exactly
// one seen record regardless of its accept outcome; all workers are
// joined before the batches are published.
func (c *Catcher) runCycle(ctx context.Context, user models.UserProfile, requestHeaders map[string]string) int {
	resp, err := c.api.GetOffers(ctx, user.ServiceAreaHeader, requestHeaders)
	if err != nil {
		c.logger.Printf("fetch offers for user %s: %v", user.UserID, err)
		return resp.StatusCode
	}
	if !statusSuccess(resp.StatusCode) {
		return resp.StatusCode
	}
	if len(resp.OfferList) == 0 {
		return resp.StatusCode
	}

	seen := report.NewBatch()
	accepted := report.NewBatch()

	sem := make(chan struct{}, c.cfg.MaxWorkers)
	var wg sync.WaitGroup
	for _, raw := range resp.OfferList {
		wg.Add(1)
		sem <- struct{}{}
		go func(raw []byte) {
			defer wg.Done()
			defer func() { <-sem }()
			c.processOffer(ctx, raw, user, requestHeaders, seen, accepted)
		}(raw)
	}
	wg.Wait()

	if seen.Len() > 0 {
		c.reports.Publish(ctx, c.cfg.OffersQueueURL, user.UserID, seen)
	}
	if accepted.Len() > 0 && c.cfg.AcceptedQueueURL != "" {
		c.reports.Publish(ctx, c.cfg.AcceptedQueueURL, user.UserID, accepted)
	}
	return resp.StatusCode
}

// processOffer evaluates one offer and appends its seen record. A
// malformed offer is rejected on its own; it never aborts the batch.
func (c *Catcher) processOffer(ctx context.Context, raw []byte, user models.UserProfile, requestHeaders map[string]string, seen, accepted *report.Batch) {
	validated := false

	offer, err := models.ParseOffer(raw)
	if err != nil {
		c.logger.Printf("user %s: rejecting malformed offer: %v", user.UserID, err)
	} else {
		verdict := c.evaluator.Evaluate(offer, user)
		if verdict.Accepted {
			validated = c.acceptOffer(ctx, offer, user, requestHeaders, accepted)
		}
	}

	record := models.OfferSeenRecord{
		UserID:    user.UserID,
		Validated: validated,
		Data:      raw,
	}
	key := report.NewKey(user.UserID, c.evaluator.Timestamp())
	if err := seen.Append(key, record); err != nil {
		c.logger.Printf("user %s: append seen record: %v", user.UserID, err)
	}
}

// acceptOffer issues the accept call and, on success, emits the
// accepted event and queues the offer for the accepted report.
func (c *Catcher) acceptOffer(ctx context.Context, offer models.Offer, user models.UserProfile, requestHeaders map[string]string, accepted *report.Batch) bool {
	status, err := c.api.AcceptOffer(ctx, offer.ID, requestHeaders)
	if err != nil {
		c.logger.Printf("user %s: accept offer %s: %v", user.UserID, offer.ID, err)
		return false
	}
	c.logger.Printf("user %s: accept offer %s status %d", user.UserID, offer.ID, status)
	if !statusSuccess(status) {
		return false
	}

	c.publishUserEvent(ctx, c.cfg.AcceptedTopic, user.UserID, offer.Raw)

	record := models.OfferSeenRecord{
		UserID:    user.UserID,
		Validated: true,
		Data:      offer.Raw,
	}
	key := report.NewKey(user.UserID, c.evaluator.Timestamp())
	if err := accepted.Append(key, record); err != nil {
		c.logger.Printf("user %s: append accepted record: %v", user.UserID, err)
	}
	return true
}

func (c *Catcher) publishUserEvent(ctx context.Context, topic, userID string, data []byte) {
	msg, err := events.UserEvent{UserID: userID, Data: data}.Encode()
	if err != nil {
		c.logger.Printf("encode event for user %s: %v", userID, err)
		return
	}
	if err := c.events.Publish(ctx, topic, msg); err != nil {
		c.logger.Printf("publish event for user %s to %s: %v", userID, topic, err)
	}
}

func statusSuccess(code int) bool {
	return code >= 200 && code < 300
}

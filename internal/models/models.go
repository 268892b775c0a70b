package models

import (
	"encoding/json"
	"fmt"
)

// TimeWindow is one availability window within a day, bounds in "15:04"
// wall-clock form, inclusive start, exclusive end.
type TimeWindow struct {
	Start string `json:"start" dynamodbav:"start"`
	End   string `json:"end" dynamodbav:"end"`
}

// WeekSchedule maps a lowercase weekday name ("monday") to the windows
// the user is willing to work during that day.
type WeekSchedule map[string][]TimeWindow

// UserProfile is the stored per-user search configuration. It is loaded
// once per polling session and only written by the authenticator.
type UserProfile struct {
	UserID            string       `json:"user_id" dynamodbav:"user_id"`
	AccessToken       string       `json:"access_token" dynamodbav:"access_token"`
	RefreshToken      string       `json:"refresh_token" dynamodbav:"refresh_token"`
	SearchSchedule    WeekSchedule `json:"search_schedule" dynamodbav:"search_schedule"`
	MinimumPrice      float64      `json:"minimum_price" dynamodbav:"minimum_price"`
	Areas             []string     `json:"areas" dynamodbav:"areas"`
	ArrivalLeadTime   int64        `json:"arrival_time" dynamodbav:"arrival_time"`
	TimeZone          string       `json:"time_zone" dynamodbav:"time_zone"`
	ServiceAreaHeader string       `json:"service_area" dynamodbav:"service_area"`
}

// ScheduleHasData reports whether the profile carries any usable
// availability windows. A user without them cannot match offers and is
// deactivated by the session controller.
func (p UserProfile) ScheduleHasData() bool {
	for _, windows := range p.SearchSchedule {
		if len(windows) > 0 {
			return true
		}
	}
	return false
}

// OfferTypeReserved marks offers pre-committed to the user by the
// remote service. Reserved offers bypass the schedule and timing checks
// once their area is validated.
const OfferTypeReserved = "RESERVED"

// Offer is one schedulable unit of work from a fetched batch. Only the
// fields the evaluator consumes are extracted; Raw keeps the payload
// byte-for-byte for reports.
type Offer struct {
	ID            string
	StartTime     int64
	ServiceAreaID string
	Price         float64
	OfferType     string
	Raw           json.RawMessage
}

func (o Offer) Reserved() bool {
	return o.OfferType == OfferTypeReserved
}

type offerEnvelope struct {
	OfferID       string `json:"offerId"`
	StartTime     int64  `json:"startTime"`
	ServiceAreaID string `json:"serviceAreaId"`
	OfferType     string `json:"offerType"`
	RateInfo      *struct {
		PriceAmount float64 `json:"priceAmount"`
	} `json:"rateInfo"`
}

// ParseOffer extracts the evaluated fields from a raw offer payload.
// Missing numeric fields are left zero-valued so a reserved offer with
// no timing data can still be evaluated; an unparseable payload or a
// missing offer id is an error for that single offer only.
func ParseOffer(raw json.RawMessage) (Offer, error) {
	var env offerEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Offer{}, fmt.Errorf("decode offer: %w", err)
	}
	if env.OfferID == "" {
		return Offer{}, fmt.Errorf("offer missing offerId")
	}
	offer := Offer{
		ID:            env.OfferID,
		StartTime:     env.StartTime,
		ServiceAreaID: env.ServiceAreaID,
		OfferType:     env.OfferType,
		Raw:           append(json.RawMessage(nil), raw...),
	}
	if env.RateInfo != nil {
		offer.Price = env.RateInfo.PriceAmount
	}
	return offer, nil
}

// EligibilityVerdict is the evaluator's decision for one offer plus the
// contributing checks, kept for logging. Not persisted.
type EligibilityVerdict struct {
	Accepted       bool
	ScheduleMatch  bool
	AreaMatch      bool
	PriceMet       bool
	LeadTimeMet    bool
	ReservedBypass bool
}

// OfferSeenRecord is the per-offer analytics record. Exactly one is
// produced for every fetched offer in a cycle; Validated is true only
// when an accept call was issued and succeeded.
type OfferSeenRecord struct {
	UserID    string          `json:"user_id"`
	Validated bool            `json:"validated"`
	Data      json.RawMessage `json:"data"`
}

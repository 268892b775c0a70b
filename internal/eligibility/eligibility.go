package eligibility

import (
	"strings"
	"sync"
	"time"

	"github.com/nestorcolt/blockcatcher/internal/models"
)

// Evaluator decides accept/reject for one offer against one user
// profile. The clock is injectable for tests.
type Evaluator struct {
	now func() int64
}

func New() *Evaluator {
	return &Evaluator{now: func() int64 { return time.Now().Unix() }}
}

// NewWithClock builds an evaluator with a fixed epoch-seconds clock.
func NewWithClock(now func() int64) *Evaluator {
	return &Evaluator{now: now}
}

// Timestamp returns the evaluator's current Unix-epoch seconds. Also
// used to stamp the client-time request header.
func (e *Evaluator) Timestamp() int64 {
	return e.now()
}

// Evaluate computes the four predicates and the final verdict:
// price floor AND area AND schedule AND lead-time guard, with one
// business exception: a reserved offer that matches the user's area set
// is always eligible. Reserved offers are pre-committed by the service,
// so their schedule and timing fields may be absent or zero.
func (e *Evaluator) Evaluate(offer models.Offer, user models.UserProfile) models.EligibilityVerdict {
	var v models.EligibilityVerdict

	// Schedule and area are independent pure checks, run side by side.
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		v.ScheduleMatch = ScheduleMatches(user.SearchSchedule, offer.StartTime, user.TimeZone)
	}()
	go func() {
		defer wg.Done()
		v.AreaMatch = AreaMatches(offer.ServiceAreaID, user.Areas)
	}()
	wg.Wait()

	v.PriceMet = offer.Price >= user.MinimumPrice

	lead := offer.StartTime - e.now()
	if lead < 0 {
		lead = -lead
	}
	v.LeadTimeMet = lead > user.ArrivalLeadTime

	v.Accepted = v.PriceMet && v.AreaMatch && v.ScheduleMatch && v.LeadTimeMet
	if offer.Reserved() && v.AreaMatch {
		v.ReservedBypass = true
		v.Accepted = true
	}
	return v
}

// AreaMatches reports whether serviceAreaID is acceptable. An empty
// area set means the user takes offers from any area.
func AreaMatches(serviceAreaID string, areas []string) bool {
	if len(areas) == 0 {
		return true
	}
	for _, a := range areas {
		if a == serviceAreaID {
			return true
		}
	}
	return false
}

// ScheduleMatches reports whether the offer start time, seen in the
// user's time zone, falls inside one of the weekly availability
// windows. An unknown time zone falls back to UTC rather than failing
// the whole cycle.
func ScheduleMatches(schedule models.WeekSchedule, startTime int64, timeZone string) bool {
	if len(schedule) == 0 || startTime <= 0 {
		return false
	}
	loc, err := time.LoadLocation(timeZone)
	if err != nil {
		loc = time.UTC
	}
	start := time.Unix(startTime, 0).In(loc)
	day := strings.ToLower(start.Weekday().String())
	minute := start.Hour()*60 + start.Minute()

	for _, w := range schedule[day] {
		from, ok := parseClock(w.Start)
		if !ok {
			continue
		}
		to, ok := parseClock(w.End)
		if !ok {
			continue
		}
		if minute >= from && minute < to {
			return true
		}
	}
	return false
}

func parseClock(s string) (int, bool) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, false
	}
	return t.Hour()*60 + t.Minute(), true
}

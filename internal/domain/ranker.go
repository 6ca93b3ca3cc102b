package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// Scoring constants.
const (
	BaseScore      = 100
	MaxSuggestions = 5

	timeOfDayBonus      = 20
	highPriorityBonus   = 30
	mediumPriorityBonus = 15
	recencyPerDay       = 2
	recencyCap          = 30
	recencyReasonAbove  = 20
	durationFitWeight   = 25
	durationReasonAbove = 20
	balanceBonus        = 15
	balanceThreshold    = 2
	balanceWindow       = 7 * 24 * time.Hour
)

// Preferences carries the user settings the ranker consults.
type Preferences struct {
	BalancePriorities bool
}

// Suggestion is one scored, explained recommendation.
type Suggestion struct {
	Activity Activity `json:"activity"`
	Score    int      `json:"score"`
	Reason   string   `json:"reason"`
}

// factorInput is everything a scoring factor may look at.
type factorInput struct {
	activity Activity
	interval FreeTimeInterval
	bucket   TimeOfDay
	prefs    Preferences
	history  TypeHistory
	now      time.Time
}

// factor returns a score delta and an optional reason phrase.
type factor func(factorInput) (int, string)

// factors are applied in this order; reasons are joined in the same order.
var factors = []factor{
	timeOfDayFactor,
	priorityFactor,
	recencyFactor,
	durationFitFactor,
	balanceFactor,
}

// RankerOption configures a Ranker.
type RankerOption func(*Ranker)

// WithClock overrides the time source used for recency and balance.
func WithClock(now func() time.Time) RankerOption {
	return func(r *Ranker) {
		r.now = now
	}
}

// Ranker scores activities against a free-time interval. It holds no mutable state
// and is safe for concurrent use.
type Ranker struct {
	now func() time.Time
}

// NewRanker constructs a Ranker.
func NewRanker(opts ...RankerOption) *Ranker {
	r := &Ranker{now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Rank returns at most MaxSuggestions activities that fit the interval, best first.
// Activities with equal scores keep their catalog order. No eligible activity yields
// an empty slice and a nil error.
func (r *Ranker) Rank(interval FreeTimeInterval, activities []Activity, prefs Preferences) ([]Suggestion, error) {
	if err := interval.Validate(); err != nil {
		return nil, err
	}

	now := r.now()
	in := factorInput{
		interval: interval,
		bucket:   interval.Bucket(),
		prefs:    prefs,
		now:      now,
	}
	if prefs.BalancePriorities {
		in.history = BuildTypeHistory(activities, now)
	}

	scored := make([]Suggestion, 0, len(activities))
	for _, activity := range activities {
		if activity.DurationMin > interval.DurationMin {
			continue
		}
		in.activity = activity
		scored = append(scored, score(in))
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > MaxSuggestions {
		scored = scored[:MaxSuggestions]
	}
	return scored, nil
}

func score(in factorInput) Suggestion {
	total := BaseScore
	reasons := make([]string, 0, len(factors))
	for _, f := range factors {
		delta, reason := f(in)
		total += delta
		if reason != "" {
			reasons = append(reasons, reason)
		}
	}
	return Suggestion{
		Activity: in.activity,
		Score:    total,
		Reason:   strings.Join(reasons, ". "),
	}
}

func timeOfDayFactor(in factorInput) (int, string) {
	if !in.activity.PreferredTimeOfDay.Matches(in.bucket) {
		return 0, ""
	}
	return timeOfDayBonus, fmt.Sprintf("Matches preferred time of day (%s)", in.bucket)
}

func priorityFactor(in factorInput) (int, string) {
	switch in.activity.Priority {
	case PriorityHigh:
		return highPriorityBonus, "High priority activity"
	case PriorityMedium:
		return mediumPriorityBonus, "Medium priority activity"
	default:
		return 0, ""
	}
}

func recencyFactor(in factorInput) (int, string) {
	if in.activity.LastScheduled == nil {
		return recencyCap, "Never done before"
	}
	bonus := RecencyBonus(*in.activity.LastScheduled, in.now)
	if bonus > recencyReasonAbove {
		return bonus, "Not done in a while"
	}
	return bonus, ""
}

func durationFitFactor(in factorInput) (int, string) {
	fit := int(math.Floor(float64(in.activity.DurationMin)/float64(in.interval.DurationMin)*durationFitWeight + 0.5))
	if fit > durationReasonAbove {
		return fit, "Makes good use of available time"
	}
	return fit, ""
}

func balanceFactor(in factorInput) (int, string) {
	if !in.prefs.BalancePriorities {
		return 0, ""
	}
	if in.history.Count(in.activity.Type) >= balanceThreshold {
		return 0, ""
	}
	return balanceBonus, fmt.Sprintf("Balances activity types (%s is underrepresented)", in.activity.Type)
}

// RecencyBonus is two points per whole day since lastScheduled, capped at 30.
// A lastScheduled in the future earns nothing.
func RecencyBonus(lastScheduled, now time.Time) int {
	days := int(now.Sub(lastScheduled) / (24 * time.Hour))
	if days <= 0 {
		return 0
	}
	return min(days*recencyPerDay, recencyCap)
}

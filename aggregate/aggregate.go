// Package aggregate reduces a canonical record batch into the reason- and
// number-level rollups the dashboard renders. Every rollup is recomputed from
// scratch per batch; nothing here is mutated in place.
package aggregate

import (
	"sort"

	"calldash/transform"
)

// NoNumber labels the rollup row for records with no calling number.
const NoNumber = "(No Number)"

// ReasonEntry is the per-reason total.
type ReasonEntry struct {
	Reason   string `json:"reason"`
	Quantity int    `json:"quantity"`
}

// ReasonRollup groups a batch by reason, descending by quantity.
type ReasonRollup struct {
	Total   int           `json:"total"`
	Entries []ReasonEntry `json:"entries"`
}

// NumberReason is one reason slice inside a number's breakdown.
type NumberReason struct {
	Reason string `json:"reason"`
	Qty    int    `json:"qty"`
}

// NumberEntry is the per-number total with its reason breakdown.
type NumberEntry struct {
	Number  string         `json:"number"`
	Total   int            `json:"total"`
	Reasons []NumberReason `json:"reasons"`
}

// Summary holds the derived dashboard counters.
type Summary struct {
	TotalCalls     int    `json:"totalCalls"`
	UniqueNumbers  int    `json:"uniqueNumbers"`
	FirstTimeCount int    `json:"firstTimeCount"`
	RepeatCount    int    `json:"repeatCount"`
	TopReason      string `json:"topReason"`
}

// ByReason sums quantities per reason. Entries come back descending by
// quantity; ties keep first-seen order, so output is deterministic for a
// given batch order.
func ByReason(records []transform.CanonicalRecord) ReasonRollup {
	totals := make(map[string]int)
	var order []string
	rollup := ReasonRollup{Entries: []ReasonEntry{}}
	for _, r := range records {
		reason := r.Reason
		if reason == "" {
			reason = transform.NoReason
		}
		if _, seen := totals[reason]; !seen {
			order = append(order, reason)
		}
		totals[reason] += r.Quantity
		rollup.Total += r.Quantity
	}
	for _, reason := range order {
		rollup.Entries = append(rollup.Entries, ReasonEntry{Reason: reason, Quantity: totals[reason]})
	}
	sort.SliceStable(rollup.Entries, func(i, j int) bool {
		return rollup.Entries[i].Quantity > rollup.Entries[j].Quantity
	})
	return rollup
}

// ByNumber groups by the literal displayed number (not the digits-only
// match key: display grouping and override matching are different
// namespaces), descending by total, with each number's reasons descending by
// sub-total.
func ByNumber(records []transform.CanonicalRecord) []NumberEntry {
	type bucket struct {
		total   int
		reasons map[string]int
		order   []string
	}
	buckets := make(map[string]*bucket)
	var order []string
	for _, r := range records {
		number := r.NumberCalled
		if number == "" {
			number = NoNumber
		}
		b, ok := buckets[number]
		if !ok {
			b = &bucket{reasons: make(map[string]int)}
			buckets[number] = b
			order = append(order, number)
		}
		reason := r.Reason
		if reason == "" {
			reason = transform.NoReason
		}
		if _, seen := b.reasons[reason]; !seen {
			b.order = append(b.order, reason)
		}
		b.total += r.Quantity
		b.reasons[reason] += r.Quantity
	}

	out := make([]NumberEntry, 0, len(order))
	for _, number := range order {
		b := buckets[number]
		entry := NumberEntry{Number: number, Total: b.total, Reasons: make([]NumberReason, 0, len(b.order))}
		for _, reason := range b.order {
			entry.Reasons = append(entry.Reasons, NumberReason{Reason: reason, Qty: b.reasons[reason]})
		}
		sort.SliceStable(entry.Reasons, func(i, j int) bool {
			return entry.Reasons[i].Qty > entry.Reasons[j].Qty
		})
		out = append(out, entry)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out
}

// Summarize derives the headline counters from the two rollups.
func Summarize(reasons ReasonRollup, numbers []NumberEntry) Summary {
	s := Summary{
		TotalCalls:    reasons.Total,
		UniqueNumbers: len(numbers),
	}
	for _, n := range numbers {
		switch {
		case n.Total == 1:
			s.FirstTimeCount++
		case n.Total >= 2:
			s.RepeatCount++
		}
	}
	if len(reasons.Entries) > 0 {
		s.TopReason = reasons.Entries[0].Reason
	}
	return s
}

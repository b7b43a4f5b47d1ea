// Package billing computes the rolling monthly usage window and the allowance
// consumed by creating a receipt. It is pure: no storage access, callers feed
// it the stored state and a clock.
package billing

import "time"

// Source says what a receipt creation consumed.
type Source string

const (
	SourceFree   Source = "free"
	SourceCredit Source = "credit"
	SourceNone   Source = "none"
)

// Window is one billing period, [Start, End).
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// UsageState is the recomputed allowance state for a user at some instant.
type UsageState struct {
	Window        Window `json:"window"`
	FreeBillsUsed int    `json:"free_bills_used"`
	BillCredits   int    `json:"bill_credits"`
}

// CurrentWindow advances from the anchor one calendar month at a time until
// now falls inside [start, end). The day of month is clamped to the shorter
// target month, so a Jan 31 anchor steps Jan 31 -> Feb 28 -> Mar 28.
func CurrentWindow(anchor, now time.Time) Window {
	start := anchor
	end := AddMonthClamped(start)
	for !now.Before(end) {
		start = end
		end = AddMonthClamped(end)
	}
	return Window{Start: start, End: end}
}

// AddMonthClamped returns t plus one calendar month, with the day of month
// clamped to the target month's length. time.AddDate is not used because it
// normalizes overflow (Jan 31 + 1 month = Mar 2/3) instead of clamping.
func AddMonthClamped(t time.Time) time.Time {
	year, month, day := t.Date()
	month++
	if month > time.December {
		month = time.January
		year++
	}
	if last := daysInMonth(year, month); day > last {
		day = last
	}
	return time.Date(year, month, day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}

func daysInMonth(year int, month time.Month) int {
	// Day 0 of the following month is the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DeriveUsageState recomputes the live window and keeps the stored usage
// counter only when the stored window still matches it; a stale window means
// a new period has begun and free usage resets to zero.
func DeriveUsageState(anchor time.Time, storedStart, storedEnd *time.Time, freeBillsUsed, billCredits int, now time.Time) UsageState {
	w := CurrentWindow(anchor, now)
	state := UsageState{Window: w, BillCredits: billCredits}
	if storedStart != nil && storedEnd != nil && storedStart.Equal(w.Start) && storedEnd.Equal(w.End) {
		state.FreeBillsUsed = freeBillsUsed
	}
	return state
}

// Consume spends one allowance slot: a free slot while any remain, then a
// purchased credit, else nothing. The caller must block receipt creation on
// SourceNone.
func Consume(state UsageState, freeLimit int) (UsageState, Source) {
	if state.FreeBillsUsed < freeLimit {
		state.FreeBillsUsed++
		return state, SourceFree
	}
	if state.BillCredits > 0 {
		state.BillCredits--
		return state, SourceCredit
	}
	return state, SourceNone
}

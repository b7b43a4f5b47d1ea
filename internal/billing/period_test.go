package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAddMonthClamped(t *testing.T) {
	require.Equal(t, date(2024, time.February, 29), AddMonthClamped(date(2024, time.January, 31)))
	require.Equal(t, date(2025, time.February, 28), AddMonthClamped(date(2025, time.January, 31)))
	require.Equal(t, date(2025, time.March, 28), AddMonthClamped(date(2025, time.February, 28)))
	require.Equal(t, date(2025, time.May, 15), AddMonthClamped(date(2025, time.April, 15)))
	require.Equal(t, date(2026, time.January, 31), AddMonthClamped(date(2025, time.December, 31)))
}

func TestCurrentWindowAdvancesWithClamping(t *testing.T) {
	// Jan 31 anchor steps Jan 31 -> Feb 28 -> Mar 28; Mar 15 falls in the
	// second window.
	anchor := date(2025, time.January, 31)
	w := CurrentWindow(anchor, date(2025, time.March, 15))
	require.Equal(t, date(2025, time.February, 28), w.Start)
	require.Equal(t, date(2025, time.March, 28), w.End)
}

func TestCurrentWindowFirstPeriod(t *testing.T) {
	anchor := date(2025, time.June, 10)
	w := CurrentWindow(anchor, date(2025, time.June, 10))
	require.Equal(t, anchor, w.Start)
	require.Equal(t, date(2025, time.July, 10), w.End)
	require.True(t, w.Contains(anchor))
	require.False(t, w.Contains(w.End))
}

func TestCurrentWindowBoundaryIsExclusive(t *testing.T) {
	anchor := date(2025, time.June, 10)
	w := CurrentWindow(anchor, date(2025, time.July, 10))
	require.Equal(t, date(2025, time.July, 10), w.Start)
	require.Equal(t, date(2025, time.August, 10), w.End)
}

func TestDeriveUsageStateKeepsMatchingWindow(t *testing.T) {
	anchor := date(2025, time.January, 31)
	now := date(2025, time.March, 15)
	start := date(2025, time.February, 28)
	end := date(2025, time.March, 28)

	state := DeriveUsageState(anchor, &start, &end, 2, 5, now)
	require.Equal(t, 2, state.FreeBillsUsed)
	require.Equal(t, 5, state.BillCredits)
}

func TestDeriveUsageStateResetsStaleWindow(t *testing.T) {
	anchor := date(2025, time.January, 31)
	now := date(2025, time.March, 15)
	// Stored window is from the Jan period; 4 free bills used there must not
	// carry over.
	start := date(2025, time.January, 31)
	end := date(2025, time.February, 28)

	state := DeriveUsageState(anchor, &start, &end, 4, 1, now)
	require.Equal(t, 0, state.FreeBillsUsed)
	require.Equal(t, 1, state.BillCredits)
	require.Equal(t, date(2025, time.February, 28), state.Window.Start)
}

func TestDeriveUsageStateNoStoredWindow(t *testing.T) {
	anchor := date(2025, time.June, 1)
	state := DeriveUsageState(anchor, nil, nil, 3, 0, date(2025, time.June, 2))
	require.Equal(t, 0, state.FreeBillsUsed)
}

func TestConsumeFreeThenCreditsThenNone(t *testing.T) {
	state := UsageState{FreeBillsUsed: 2, BillCredits: 1}

	state, source := Consume(state, 3)
	require.Equal(t, SourceFree, source)
	require.Equal(t, 3, state.FreeBillsUsed)

	state, source = Consume(state, 3)
	require.Equal(t, SourceCredit, source)
	require.Equal(t, 0, state.BillCredits)

	state, source = Consume(state, 3)
	require.Equal(t, SourceNone, source)
	require.Equal(t, 3, state.FreeBillsUsed)
	require.Equal(t, 0, state.BillCredits)
}

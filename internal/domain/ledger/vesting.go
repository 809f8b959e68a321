package ledger

import "time"

// Schedule is the vesting timetable applied to an entry. Cliff is the period
// during which no vesting progress is recognized; Duration is the vesting
// period after the cliff ends.
type Schedule struct {
	Cliff    time.Duration
	Duration time.Duration
}

// NextState returns the state entry should hold at now. The vesting clock is
// wall-time-driven, so the same function serves the scheduled sweep and
// offline reconciliation audits. Pure: no I/O, no side effects.
//
// States only move forward: vested and forfeited are terminal, and an entry
// never returns to a lower state even when given an earlier now.
func NextState(e *Entry, now time.Time, schedule Schedule) Status {
	if e.VestingStatus.Terminal() {
		return e.VestingStatus
	}

	elapsed := now.Sub(e.EarnedAt)
	computed := StatusInCliff
	switch {
	case elapsed >= schedule.Cliff+schedule.Duration:
		computed = StatusVested
	case elapsed >= schedule.Cliff:
		computed = StatusVesting
	}

	if rank(computed) < rank(e.VestingStatus) {
		return e.VestingStatus
	}
	return computed
}

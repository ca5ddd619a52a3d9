package session

// Calendar maps authoritative elapsed game time onto the simulated timeline.
// A game compresses the years [BaseYear, EndYear] into GameDurationHours of
// wall time.
type Calendar struct {
	BaseYear int
	EndYear  int
}

// TotalMonths is the number of simulated months on the timeline.
func (c Calendar) TotalMonths() int {
	return (c.EndYear - c.BaseYear + 1) * 12
}

// At derives the simulated month and year from elapsed time. done reports
// that the timeline is exhausted (month 12 of the end year reached).
func (c Calendar) At(elapsedMs int64, gameDurationHours int) (month, year int, done bool) {
	idx := c.MonthIndex(elapsedMs, gameDurationHours)
	return idx%12 + 1, c.BaseYear + idx/12, idx == c.TotalMonths()-1
}

// MonthIndex returns the zero-based simulated month ordinal for elapsed time,
// clamped to the last month of the timeline.
func (c Calendar) MonthIndex(elapsedMs int64, gameDurationHours int) int {
	totalMs := int64(gameDurationHours) * 3600 * 1000
	if totalMs <= 0 {
		return 0
	}

	progress := float64(elapsedMs) / float64(totalMs)
	if progress > 1 {
		progress = 1
	}
	if progress < 0 {
		progress = 0
	}

	idx := int(progress * float64(c.TotalMonths()))
	if idx >= c.TotalMonths() {
		idx = c.TotalMonths() - 1
	}
	return idx
}

// YearsCrossed counts simulated year boundaries (month 12 to month 1)
// between two month indices. The clock grants annual income once per
// boundary, however many ticks it took to get there.
func YearsCrossed(prevMonthIndex, newMonthIndex int) int {
	if newMonthIndex <= prevMonthIndex {
		return 0
	}
	return newMonthIndex/12 - prevMonthIndex/12
}

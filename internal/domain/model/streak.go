package model

import "time"

const DayLayout = "2006-01-02"

type StreakChange string

const (
	StreakUnchanged   StreakChange = "unchanged"
	StreakIncremented StreakChange = "incremented"
	StreakReset       StreakChange = "reset"
)

// DayKey is the calendar day of t in loc.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DayLayout)
}

// RecordSolve applies one accepted solve at solvedAt to the user's streak.
// A second solve on the same calendar day changes nothing. A solve dated
// before LastSolvedDate only marks its calendar day; the streak never moves
// backward.
func (u *User) RecordSolve(solvedAt time.Time, loc *time.Location) StreakChange {
	local := solvedAt.In(loc)
	today := local.Format(DayLayout)
	if u.LastSolvedDate == today {
		return StreakUnchanged
	}
	if u.LastSolvedDate != "" && today < u.LastSolvedDate {
		u.markDay(today)
		return StreakUnchanged
	}

	y, m, d := local.Date()
	yesterday := time.Date(y, m, d-1, 12, 0, 0, 0, loc).Format(DayLayout)

	change := StreakReset
	if u.LastSolvedDate == yesterday {
		u.Streak++
		change = StreakIncremented
	} else {
		u.Streak = 1
	}

	u.LastSolvedDate = today
	u.markDay(today)
	return change
}

func (u *User) markDay(day string) {
	if u.Calendar == nil {
		u.Calendar = make(map[string]bool)
	}
	u.Calendar[day] = true
}

package sim

import (
	"time"

	"classroom-sim-service/internal/domain"
)

const dateLayout = "2006-01-02"

// UpdateStreak counts today against the streak.
// Same day is a no-op, the day after LastDate extends it, any gap resets it to 1.
func UpdateStreak(streak domain.Streak, now time.Time) domain.Streak {
	today := now.UTC().Format(dateLayout)
	if streak.LastDate == today {
		return streak
	}
	yesterday := now.UTC().AddDate(0, 0, -1).Format(dateLayout)
	if streak.LastDate == yesterday {
		streak.Days++
	} else {
		streak.Days = 1
	}
	streak.LastDate = today
	return streak
}

// AppendHistory prepends summary, most recent first, keeping at most limit entries.
// A summary for a lesson already logged leaves history untouched.
func AppendHistory(history []domain.HistorySummary, summary domain.HistorySummary, limit int) ([]domain.HistorySummary, bool) {
	for _, h := range history {
		if h.LessonID == summary.LessonID {
			return history, false
		}
	}
	out := make([]domain.HistorySummary, 0, len(history)+1)
	out = append(out, summary)
	out = append(out, history...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, true
}

// TrimHistory enforces the cap on a loaded history.
func TrimHistory(history []domain.HistorySummary, limit int) []domain.HistorySummary {
	if limit > 0 && len(history) > limit {
		return history[:limit]
	}
	return history
}

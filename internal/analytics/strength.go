package analytics

import (
	"math"
	"time"

	"github.com/hitoshi/lifesync/internal/model"
)

// HabitStrength は1つの習慣の強度指標を表す。
type HabitStrength struct {
	HabitID          string  `json:"habit_id"`
	HabitName        string  `json:"habit_name"`
	CompletionRate   float64 `json:"completion_rate"`
	CurrentStreak    int     `json:"current_streak"`
	BestStreak       int     `json:"best_streak"`
	ConsistencyScore int     `json:"consistency_score"`
}

// CalcStrength は習慣の強度を計算する。
// days_trackedは最初の完了日からtodayまでの日数（両端含む）。
// completion_rate = 完了数 / days_tracked * 100（小数第1位丸め）。
// 一貫性スコア = round(min(rate*0.5 + min(current/30,1)*30 + min(best/100,1)*20, 100))。
// 重みは完了率50点・現在ストリーク30点・最長ストリーク20点で合計100点満点。
func CalcStrength(habit *model.Habit, firstLog time.Time, completionCount int, streaks Streaks, today time.Time) HabitStrength {
	daysTracked := int(model.Date(today).Sub(model.Date(firstLog)).Hours()/24) + 1
	if daysTracked < 1 {
		daysTracked = 1
	}

	rate := round1(float64(completionCount) / float64(daysTracked) * 100)

	score := rate*0.5 +
		math.Min(float64(streaks.Current)/30, 1)*30 +
		math.Min(float64(streaks.Best)/100, 1)*20
	if score > 100 {
		score = 100
	}

	return HabitStrength{
		HabitID:          habit.ID,
		HabitName:        habit.Name,
		CompletionRate:   rate,
		CurrentStreak:    streaks.Current,
		BestStreak:       streaks.Best,
		ConsistencyScore: int(math.Round(score)),
	}
}

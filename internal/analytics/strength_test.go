package analytics

import (
	"testing"

	"github.com/hitoshi/lifesync/internal/model"
)

func TestCalcStrength(t *testing.T) {
	habit := &model.Habit{ID: "h1", Name: "運動"}
	today := d(2024, 1, 10)

	// 1/1から追跡（10日間）、完了10回、現在・最長とも10日連続
	got := CalcStrength(habit, d(2024, 1, 1), 10, Streaks{Current: 10, Best: 10}, today)

	if got.CompletionRate != 100.0 {
		t.Errorf("CompletionRate = %v, want 100.0", got.CompletionRate)
	}
	// 100*0.5 + min(10/30,1)*30 + min(10/100,1)*20 = 50 + 10 + 2 = 62
	if got.ConsistencyScore != 62 {
		t.Errorf("ConsistencyScore = %d, want 62", got.ConsistencyScore)
	}
}

func TestCalcStrength_CappedAt100(t *testing.T) {
	habit := &model.Habit{ID: "h1", Name: "運動"}
	today := d(2024, 4, 9)

	// 100日間毎日完了: 50 + 30 + 20 = 100ちょうど
	got := CalcStrength(habit, d(2024, 1, 1), 100, Streaks{Current: 100, Best: 100}, today)
	if got.ConsistencyScore != 100 {
		t.Errorf("ConsistencyScore = %d, want 100", got.ConsistencyScore)
	}
	if got.ConsistencyScore > 100 {
		t.Error("スコアは100を超えてはならない")
	}
}

func TestCalcStrength_DaysTrackedInclusive(t *testing.T) {
	habit := &model.Habit{ID: "h1", Name: "運動"}

	// 初回ログが今日なら追跡日数は1日
	got := CalcStrength(habit, d(2024, 1, 10), 1, Streaks{Current: 1, Best: 1}, d(2024, 1, 10))
	if got.CompletionRate != 100.0 {
		t.Errorf("CompletionRate = %v, want 100.0（追跡1日・完了1回）", got.CompletionRate)
	}
}

func TestCalcStrength_LowActivity(t *testing.T) {
	habit := &model.Habit{ID: "h1", Name: "運動"}
	today := d(2024, 1, 20)

	// 20日間で完了2回、ストリークなし
	got := CalcStrength(habit, d(2024, 1, 1), 2, Streaks{Current: 0, Best: 1}, today)
	if got.CompletionRate != 10.0 {
		t.Errorf("CompletionRate = %v, want 10.0", got.CompletionRate)
	}
	// 10*0.5 + 0 + min(1/100,1)*20 = 5 + 0.2 = 5.2 → 5
	if got.ConsistencyScore != 5 {
		t.Errorf("ConsistencyScore = %d, want 5", got.ConsistencyScore)
	}
}

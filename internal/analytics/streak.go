// Package analytics は習慣・タスクデータからの統計計算を提供する。
//
// ストリーク、期間別集計、生産性スコア、習慣相関（Jaccard係数）、
// 習慣強度の各計算を含む。純粋な計算ロジックはリポジトリに依存せず、
// Serviceがデータ取得と計算を仲介する。
package analytics

import (
	"sort"
	"time"

	"github.com/hitoshi/lifesync/internal/model"
)

// Streaks は1つの習慣の現在ストリークと最長ストリークを表す。
type Streaks struct {
	Current int
	Best    int
}

// CalcStreaks は完了日集合からストリークを計算する。
//
// 現在ストリーク: todayから1日ずつ遡りながら連続日数を数える。
// todayが未完了の場合はtoday-1から再試行する（その日が終わる前に
// ストリークが途切れたと報告しないための猶予）。両方未完了なら0。
//
// 最長ストリーク: 日付を昇順ソートし、隣接ペアの差がちょうど1日なら
// 連続カウントを伸ばし、それ以外でリセットして最大値を追跡する。
// 完了日0件なら0、1件なら1。
func CalcStreaks(dates []time.Time, today time.Time) Streaks {
	if len(dates) == 0 {
		return Streaks{}
	}

	set := make(map[time.Time]bool, len(dates))
	for _, d := range dates {
		set[model.Date(d)] = true
	}

	day := model.Date(today)
	current := 0
	for set[day] {
		current++
		day = day.AddDate(0, 0, -1)
	}
	if current == 0 {
		day = model.Date(today).AddDate(0, 0, -1)
		for set[day] {
			current++
			day = day.AddDate(0, 0, -1)
		}
	}

	sorted := make([]time.Time, 0, len(set))
	for d := range set {
		sorted = append(sorted, d)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	best := 1
	run := 1
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Sub(sorted[i-1]) == 24*time.Hour {
			run++
			if run > best {
				best = run
			}
		} else {
			run = 1
		}
	}

	return Streaks{Current: current, Best: best}
}

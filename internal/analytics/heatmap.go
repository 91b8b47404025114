package analytics

import "math"

// HeatmapDay はヒートマップ1日分のデータを表す。
type HeatmapDay struct {
	Date       string `json:"date"`
	Completed  int    `json:"completed"`
	Total      int    `json:"total"`
	Percentage int    `json:"percentage"`
	Level      int    `json:"level"`
}

// HeatmapLevel は完了率（%）をヒートマップの表示レベル0〜4に変換する。
// 0%→0、1〜25%→1、26〜50%→2、51〜75%→3、76〜100%→4。
// この区分は描画側が直接依存するため厳密でなければならない。
func HeatmapLevel(percentage int) int {
	switch {
	case percentage == 0:
		return 0
	case percentage <= 25:
		return 1
	case percentage <= 50:
		return 2
	case percentage <= 75:
		return 3
	default:
		return 4
	}
}

// NewHeatmapDay は1日分のヒートマップデータを構築する。
// 完了率は整数に丸め、レベルを付与する。
func NewHeatmapDay(date string, completed, total int) HeatmapDay {
	pct := 0
	if total > 0 {
		pct = int(math.Round(float64(completed) / float64(total) * 100))
	}
	return HeatmapDay{
		Date:       date,
		Completed:  completed,
		Total:      total,
		Percentage: pct,
		Level:      HeatmapLevel(pct),
	}
}

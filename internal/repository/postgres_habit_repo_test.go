package repository

import (
	"testing"
	"time"

	"github.com/hitoshi/lifesync/internal/model"
)

// PostgresHabitRepoはHabitRepositoryインターフェースを満たすことを検証
func TestPostgresHabitRepo_ImplementsInterface(t *testing.T) {
	var _ HabitRepository = (*PostgresHabitRepo)(nil)
}

// NewPostgresHabitRepoが正しく初期化されることを検証
func TestNewPostgresHabitRepo_Initializes(t *testing.T) {
	repo := NewPostgresHabitRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// ToggleCompletionが日付をUTC日単位に正規化して扱うことの期待動作
// （DB接続なしでコンセプトを検証）
func TestPostgresHabitRepo_ToggleCompletion_DateNormalization_Concept(t *testing.T) {
	jst := time.FixedZone("JST", 9*60*60)
	stamp := time.Date(2024, 3, 15, 23, 45, 0, 0, jst)

	day := model.Date(stamp)
	if day.Hour() != 0 || day.Minute() != 0 {
		t.Errorf("expected midnight, got %v", day)
	}
	if day.Location() != time.UTC {
		t.Errorf("expected UTC, got %v", day.Location())
	}
}

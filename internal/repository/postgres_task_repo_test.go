package repository

import (
	"testing"
	"time"

	"github.com/hitoshi/lifesync/internal/model"
)

// PostgresTaskRepoはTaskRepositoryインターフェースを満たすことを検証
func TestPostgresTaskRepo_ImplementsInterface(t *testing.T) {
	var _ TaskRepository = (*PostgresTaskRepo)(nil)
}

// NewPostgresTaskRepoが正しく初期化されることを検証
func TestNewPostgresTaskRepo_Initializes(t *testing.T) {
	repo := NewPostgresTaskRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// ListByUserの日付フィルタがゼロ値判定で有効化されることの期待動作
// （DB接続なしでコンセプトを検証）
func TestPostgresTaskRepo_ListByUser_TargetDateZeroValue_Concept(t *testing.T) {
	var zero time.Time
	if !zero.IsZero() {
		t.Fatal("zero value should report IsZero")
	}

	target := model.Date(time.Date(2024, 3, 20, 15, 0, 0, 0, time.UTC))
	if target.IsZero() {
		t.Fatal("normalized date should not be zero")
	}
}

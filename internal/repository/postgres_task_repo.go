package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hitoshi/lifesync/internal/model"
)

// PostgresTaskRepo はPostgreSQLを使用したタスクリポジトリ。
type PostgresTaskRepo struct {
	db *sql.DB
}

// NewPostgresTaskRepo はPostgresTaskRepoを生成する。
func NewPostgresTaskRepo(db *sql.DB) *PostgresTaskRepo {
	return &PostgresTaskRepo{db: db}
}

const taskColumns = `id, user_id, title, description, is_completed, due_date, priority, category, created_at, completed_at, updated_at`

func scanTask(scanner interface{ Scan(...any) error }) (*model.Task, error) {
	t := &model.Task{}
	var dueDate, completedAt sql.NullTime
	err := scanner.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &t.IsCompleted,
		&dueDate, &t.Priority, &t.Category, &t.CreatedAt, &completedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if dueDate.Valid {
		d := model.Date(dueDate.Time)
		t.DueDate = &d
	}
	if completedAt.Valid {
		c := completedAt.Time
		t.CompletedAt = &c
	}
	return t, nil
}

// FindByID は指定IDのタスクを取得する。見つからない場合はnilを返す。
func (r *PostgresTaskRepo) FindByID(ctx context.Context, id string) (*model.Task, error) {
	t, err := scanTask(r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find task by ID: %w", err)
	}
	return t, nil
}

// ListByUser はユーザーのタスク一覧を返す。
// 並び順は未完了優先、優先度降順、作成日時降順（日付指定時）。
// 日付未指定時は未完了優先、期日昇順、優先度降順、作成日時降順。
func (r *PostgresTaskRepo) ListByUser(ctx context.Context, userID string, includeCompleted bool, targetDate time.Time) ([]*model.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`
	args := []any{userID}

	if !includeCompleted {
		query += ` AND is_completed = FALSE`
	}

	if !targetDate.IsZero() {
		query += fmt.Sprintf(` AND (due_date = $%d OR due_date IS NULL)`, len(args)+1)
		args = append(args, model.Date(targetDate))
		query += ` ORDER BY is_completed,
			CASE priority WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END DESC,
			created_at DESC`
	} else {
		query += ` ORDER BY is_completed, due_date NULLS LAST,
			CASE priority WHEN 'high' THEN 3 WHEN 'medium' THEN 2 ELSE 1 END DESC,
			created_at DESC`
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*model.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tasks: %w", err)
	}
	return tasks, nil
}

// Create はタスクを作成する。
func (r *PostgresTaskRepo) Create(ctx context.Context, task *model.Task) error {
	var dueDate any
	if task.DueDate != nil {
		dueDate = model.Date(*task.DueDate)
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (id, user_id, title, description, is_completed, due_date, priority, category, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		task.ID, task.UserID, task.Title, task.Description, task.IsCompleted,
		dueDate, task.Priority, task.Category, task.CreatedAt, task.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert task: %w", err)
	}
	return nil
}

// Update はタスクの属性を更新する。完了状態はSetCompletedで扱う。
func (r *PostgresTaskRepo) Update(ctx context.Context, task *model.Task) error {
	var dueDate any
	if task.DueDate != nil {
		dueDate = model.Date(*task.DueDate)
	}
	result, err := r.db.ExecContext(ctx,
		`UPDATE tasks
		 SET title = $1, description = $2, due_date = $3, priority = $4, category = $5, updated_at = now()
		 WHERE id = $6`,
		task.Title, task.Description, dueDate, task.Priority, task.Category, task.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("task not found: %s", task.ID)
	}
	return nil
}

// SetCompleted は完了フラグを更新する。
// trueへの遷移でcompleted_atを設定し、falseへの遷移でクリアする。
func (r *PostgresTaskRepo) SetCompleted(ctx context.Context, id string, completed bool) error {
	var query string
	if completed {
		query = `UPDATE tasks SET is_completed = TRUE, completed_at = now(), updated_at = now() WHERE id = $1`
	} else {
		query = `UPDATE tasks SET is_completed = FALSE, completed_at = NULL, updated_at = now() WHERE id = $1`
	}
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to set task completed: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("task not found: %s", id)
	}
	return nil
}

// Delete は指定IDのタスクを削除する。
func (r *PostgresTaskRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("task not found: %s", id)
	}
	return nil
}

// CountForDate は指定日のタスク総数と完了数を返す。
// 対象は due_date = date、または due_date IS NULL かつ作成日 = date のタスク。
func (r *PostgresTaskRepo) CountForDate(ctx context.Context, userID string, date time.Time) (int, int, error) {
	day := model.Date(date)
	var total, completed int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN is_completed = TRUE THEN 1 ELSE 0 END), 0)
		 FROM tasks
		 WHERE user_id = $1 AND (due_date = $2 OR (due_date IS NULL AND created_at::DATE = $2))`,
		userID, day,
	).Scan(&total, &completed)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count tasks for date: %w", err)
	}
	return total, completed, nil
}

// CountCompletedInRange は期間[from, to)に作成され完了済みのタスク数を返す。
func (r *PostgresTaskRepo) CountCompletedInRange(ctx context.Context, userID string, from, to time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN is_completed = TRUE THEN 1 ELSE 0 END), 0)
		 FROM tasks
		 WHERE user_id = $1 AND created_at >= $2 AND created_at < $3`,
		userID, from, to,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed tasks in range: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ TaskRepository = (*PostgresTaskRepo)(nil)

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/hitoshi/lifesync/internal/model"
)

// PostgresHabitRepo はPostgreSQLを使用した習慣・完了ログリポジトリ。
type PostgresHabitRepo struct {
	db *sql.DB
}

// NewPostgresHabitRepo はPostgresHabitRepoを生成する。
func NewPostgresHabitRepo(db *sql.DB) *PostgresHabitRepo {
	return &PostgresHabitRepo{db: db}
}

const habitColumns = `id, user_id, name, description, color, icon, is_active, sort_order, created_at, updated_at`

func scanHabit(scanner interface{ Scan(...any) error }) (*model.Habit, error) {
	h := &model.Habit{}
	err := scanner.Scan(&h.ID, &h.UserID, &h.Name, &h.Description, &h.Color,
		&h.Icon, &h.IsActive, &h.SortOrder, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return h, nil
}

// FindByID は指定IDの習慣を取得する。見つからない場合はnilを返す。
func (r *PostgresHabitRepo) FindByID(ctx context.Context, id string) (*model.Habit, error) {
	h, err := scanHabit(r.db.QueryRowContext(ctx,
		`SELECT `+habitColumns+` FROM habits WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find habit by ID: %w", err)
	}
	return h, nil
}

// ListByUser はユーザーの習慣一覧をsort_order、id順で返す。
func (r *PostgresHabitRepo) ListByUser(ctx context.Context, userID string, activeOnly bool) ([]*model.Habit, error) {
	query := `SELECT ` + habitColumns + ` FROM habits WHERE user_id = $1`
	if activeOnly {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY sort_order, id`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list habits: %w", err)
	}
	defer rows.Close()

	var habits []*model.Habit
	for rows.Next() {
		h, err := scanHabit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan habit: %w", err)
		}
		habits = append(habits, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate habits: %w", err)
	}
	return habits, nil
}

// Create は習慣を作成する。
func (r *PostgresHabitRepo) Create(ctx context.Context, habit *model.Habit) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO habits (id, user_id, name, description, color, icon, is_active, sort_order, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		habit.ID, habit.UserID, habit.Name, habit.Description, habit.Color,
		habit.Icon, habit.IsActive, habit.SortOrder, habit.CreatedAt, habit.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert habit: %w", err)
	}
	return nil
}

// Update は習慣の属性を更新する。
func (r *PostgresHabitRepo) Update(ctx context.Context, habit *model.Habit) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE habits
		 SET name = $1, description = $2, color = $3, icon = $4,
		     is_active = $5, sort_order = $6, updated_at = now()
		 WHERE id = $7`,
		habit.Name, habit.Description, habit.Color, habit.Icon,
		habit.IsActive, habit.SortOrder, habit.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update habit: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("habit not found: %s", habit.ID)
	}
	return nil
}

// Delete は習慣を削除する。完了ログはCASCADE削除される。
func (r *PostgresHabitRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM habits WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete habit: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("habit not found: %s", id)
	}
	return nil
}

// ToggleCompletion は指定日の完了ログをトグルし、トグル後の完了状態を返す。
// DELETEを先に試み、削除対象がなければINSERTする。両操作を1トランザクションで行い、
// (habit_id, completed_date)のUNIQUE制約が並行トグル時の二重挿入を防ぐ。
// UNIQUE違反（並行する別のトグルが先に挿入した）の場合は既に完了済みとして扱う。
func (r *PostgresHabitRepo) ToggleCompletion(ctx context.Context, habitID string, date time.Time) (bool, error) {
	day := model.Date(date)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`DELETE FROM habit_logs WHERE habit_id = $1 AND completed_date = $2`,
		habitID, day,
	)
	if err != nil {
		return false, fmt.Errorf("failed to delete habit log: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if deleted > 0 {
		// 完了済みだったのでトグルで未完了に戻す
		if err := tx.Commit(); err != nil {
			return false, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return false, nil
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO habit_logs (id, habit_id, completed_date, created_at)
		 VALUES ($1, $2, $3, now())`,
		uuid.New().String(), habitID, day,
	)
	if err != nil {
		// UNIQUE制約違反は並行トグルとの競合。どちらかの挿入が残っていれば完了状態。
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return true, nil
		}
		return false, fmt.Errorf("failed to insert habit log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return true, nil
}

// ListCompletionDates は習慣の完了日集合を返す。
func (r *PostgresHabitRepo) ListCompletionDates(ctx context.Context, habitID string, since time.Time) ([]time.Time, error) {
	query := `SELECT completed_date FROM habit_logs WHERE habit_id = $1`
	args := []any{habitID}
	if !since.IsZero() {
		query += ` AND completed_date >= $2`
		args = append(args, model.Date(since))
	}
	query += ` ORDER BY completed_date`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list completion dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan completion date: %w", err)
		}
		dates = append(dates, model.Date(d))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate completion dates: %w", err)
	}
	return dates, nil
}

// ListCompletionsForUser はユーザーの全アクティブ習慣の完了日を一括で返す。
func (r *PostgresHabitRepo) ListCompletionsForUser(ctx context.Context, userID string, since time.Time) (map[string][]time.Time, error) {
	query := `SELECT hl.habit_id, hl.completed_date
		 FROM habit_logs hl
		 JOIN habits h ON hl.habit_id = h.id
		 WHERE h.user_id = $1 AND h.is_active = TRUE`
	args := []any{userID}
	if !since.IsZero() {
		query += ` AND hl.completed_date >= $2`
		args = append(args, model.Date(since))
	}
	query += ` ORDER BY hl.habit_id, hl.completed_date`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list completions for user: %w", err)
	}
	defer rows.Close()

	byHabit := make(map[string][]time.Time)
	for rows.Next() {
		var habitID string
		var d time.Time
		if err := rows.Scan(&habitID, &d); err != nil {
			return nil, fmt.Errorf("failed to scan completion: %w", err)
		}
		byHabit[habitID] = append(byHabit[habitID], model.Date(d))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate completions: %w", err)
	}
	return byHabit, nil
}

// CountCompletedOnDate は指定日に完了したアクティブ習慣数を返す。
func (r *PostgresHabitRepo) CountCompletedOnDate(ctx context.Context, userID string, date time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT hl.habit_id)
		 FROM habit_logs hl
		 JOIN habits h ON hl.habit_id = h.id
		 WHERE h.user_id = $1 AND hl.completed_date = $2 AND h.is_active = TRUE`,
		userID, model.Date(date),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completed habits: %w", err)
	}
	return count, nil
}

// CountCompletedPerDate は期間内の日付ごとの完了アクティブ習慣数を返す。
func (r *PostgresHabitRepo) CountCompletedPerDate(ctx context.Context, userID string, from, to time.Time) (map[time.Time]int, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT hl.completed_date, COUNT(DISTINCT hl.habit_id)
		 FROM habit_logs hl
		 JOIN habits h ON hl.habit_id = h.id
		 WHERE h.user_id = $1
		   AND hl.completed_date >= $2 AND hl.completed_date <= $3
		   AND h.is_active = TRUE
		 GROUP BY hl.completed_date`,
		userID, model.Date(from), model.Date(to),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count completions per date: %w", err)
	}
	defer rows.Close()

	counts := make(map[time.Time]int)
	for rows.Next() {
		var d time.Time
		var count int
		if err := rows.Scan(&d, &count); err != nil {
			return nil, fmt.Errorf("failed to scan completion count: %w", err)
		}
		counts[model.Date(d)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate completion counts: %w", err)
	}
	return counts, nil
}

// CountActiveByUser はユーザーのアクティブ習慣数を返す。
func (r *PostgresHabitRepo) CountActiveByUser(ctx context.Context, userID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM habits WHERE user_id = $1 AND is_active = TRUE`,
		userID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active habits: %w", err)
	}
	return count, nil
}

// CompletionCount は習慣の完了ログ総数を返す。
func (r *PostgresHabitRepo) CompletionCount(ctx context.Context, habitID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM habit_logs WHERE habit_id = $1`,
		habitID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completions: %w", err)
	}
	return count, nil
}

// FirstCompletionDate は習慣の最初の完了日を返す。ログがない場合はゼロ値。
func (r *PostgresHabitRepo) FirstCompletionDate(ctx context.Context, habitID string) (time.Time, error) {
	var first sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT MIN(completed_date) FROM habit_logs WHERE habit_id = $1`,
		habitID,
	).Scan(&first)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to find first completion date: %w", err)
	}
	if !first.Valid {
		return time.Time{}, nil
	}
	return model.Date(first.Time), nil
}

// CountCompletionsInRange は期間[from, to)のユーザーの完了ログ総数を返す。
func (r *PostgresHabitRepo) CountCompletionsInRange(ctx context.Context, userID string, from, to time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*)
		 FROM habit_logs hl
		 JOIN habits h ON hl.habit_id = h.id
		 WHERE h.user_id = $1 AND hl.completed_date >= $2 AND hl.completed_date < $3`,
		userID, model.Date(from), model.Date(to),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count completions in range: %w", err)
	}
	return count, nil
}

// compile-time interface check
var _ HabitRepository = (*PostgresHabitRepo)(nil)

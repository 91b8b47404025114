// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, storage, delivery, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest    = "INVALID_REQUEST"
	ErrCodeInvalidPeriod     = "INVALID_PERIOD"
	ErrCodeInvalidDate       = "INVALID_DATE"
	ErrCodeInvalidPriority   = "INVALID_PRIORITY"
	ErrCodeHabitNotFound     = "HABIT_NOT_FOUND"
	ErrCodeTaskNotFound      = "TASK_NOT_FOUND"
	ErrCodeUserNotFound      = "USER_NOT_FOUND"
	ErrCodeDuplicateUser     = "DUPLICATE_USER"
	ErrCodeBadCredentials    = "BAD_CREDENTIALS"
	ErrCodeStorageFailure    = "STORAGE_FAILURE"
	ErrCodeMailNotConfigured = "MAIL_NOT_CONFIGURED"
	ErrCodeDeliveryFailure   = "DELIVERY_FAILURE"
)

// NewHabitNotFoundError は習慣未検出エラーを生成する。
// 他ユーザーの習慣を指定した場合も同じエラーになる（存在を漏らさない）。
func NewHabitNotFoundError(habitID string) *APIError {
	return &APIError{
		Code:     ErrCodeHabitNotFound,
		Message:  fmt.Sprintf("指定された習慣が見つかりません: %s", habitID),
		Category: "validation",
		Action:   "習慣IDを確認してください。",
	}
}

// NewTaskNotFoundError はタスク未検出エラーを生成する。
func NewTaskNotFoundError(taskID string) *APIError {
	return &APIError{
		Code:     ErrCodeTaskNotFound,
		Message:  fmt.Sprintf("指定されたタスクが見つかりません: %s", taskID),
		Category: "validation",
		Action:   "タスクIDを確認してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewInvalidPeriodError は無効なレポート期間エラーを生成する。
func NewInvalidPeriodError(period string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPeriod,
		Message:  fmt.Sprintf("無効なレポート期間です: %s", period),
		Category: "validation",
		Action:   "期間には weekly または monthly を指定してください。",
	}
}

// NewInvalidDateError は無効な日付エラーを生成する。
func NewInvalidDateError(date string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidDate,
		Message:  fmt.Sprintf("無効な日付です: %s", date),
		Category: "validation",
		Action:   "日付は YYYY-MM-DD 形式で指定してください。",
	}
}

// NewInvalidPriorityError は無効な優先度エラーを生成する。
func NewInvalidPriorityError(priority string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidPriority,
		Message:  fmt.Sprintf("無効な優先度です: %s", priority),
		Category: "validation",
		Action:   "優先度には low、medium、high のいずれかを指定してください。",
	}
}

// NewValidationError は汎用の入力検証エラーを生成する。
func NewValidationError(message string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  message,
		Category: "validation",
		Action:   "入力内容を確認してください。",
	}
}

// NewDuplicateUserError はユーザー名またはメールアドレスの重複エラーを生成する。
func NewDuplicateUserError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateUser,
		Message:  fmt.Sprintf("この%sは既に登録されています。", field),
		Category: "validation",
		Action:   "別の値を指定するか、ログインしてください。",
	}
}

// NewBadCredentialsError は認証失敗エラーを生成する。
// ユーザー不在とパスワード不一致を区別しない。
func NewBadCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeBadCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認して再度お試しください。",
	}
}

// NewMailNotConfiguredError はSMTP未設定エラーを生成する。
func NewMailNotConfiguredError() *APIError {
	return &APIError{
		Code:     ErrCodeMailNotConfigured,
		Message:  "メールサービスが設定されていません。",
		Category: "delivery",
		Action:   "SMTP設定を確認してください。",
	}
}

// NewDeliveryFailureError はレポート送信失敗エラーを生成する。
func NewDeliveryFailureError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeDeliveryFailure,
		Message:  fmt.Sprintf("レポートの送信に失敗しました: %s", reason),
		Category: "delivery",
		Action:   "しばらく待ってから再度お試しください。",
	}
}

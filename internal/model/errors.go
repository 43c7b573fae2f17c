// Package model はドメインモデルを定義する。
package model

import "fmt"

// AppError は画面にインライン表示する利用者向けエラーを表す。
// 発生しても保存済みの状態は変更されない。
type AppError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, chat
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodePasswordMismatch   = "PASSWORD_MISMATCH"
	ErrCodeRoleRequired       = "ROLE_REQUIRED"
	ErrCodeDuplicateEmail     = "DUPLICATE_EMAIL"
	ErrCodeInvalidCredentials = "INVALID_CREDENTIALS"
	ErrCodeInvalidInput       = "INVALID_INPUT"
	ErrCodeUserNotFound       = "USER_NOT_FOUND"
	ErrCodeEmptyMessage       = "EMPTY_MESSAGE"
	ErrCodeSelfConversation   = "SELF_CONVERSATION"
)

// NewPasswordMismatchError はパスワードと確認用パスワードの不一致エラーを生成する。
func NewPasswordMismatchError() *AppError {
	return &AppError{
		Code:     ErrCodePasswordMismatch,
		Message:  "Passwords do not match",
		Category: "validation",
		Action:   "Re-enter the same password in both fields.",
	}
}

// NewRoleRequiredError はロール未選択エラーを生成する。
func NewRoleRequiredError() *AppError {
	return &AppError{
		Code:     ErrCodeRoleRequired,
		Message:  "Please select your role",
		Category: "validation",
		Action:   "Choose Startup Founder or Investor.",
	}
}

// NewDuplicateEmailError は登録済みメールアドレスでの再登録エラーを生成する。
func NewDuplicateEmailError() *AppError {
	return &AppError{
		Code:     ErrCodeDuplicateEmail,
		Message:  "Email already exists",
		Category: "validation",
		Action:   "Sign in with this email or register with another one.",
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// メールアドレスの存在有無は区別しない。
func NewInvalidCredentialsError() *AppError {
	return &AppError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "Invalid email or password",
		Category: "auth",
		Action:   "Check your email and password and try again.",
	}
}

// NewInvalidInputError は入力項目の形式エラーを生成する。
func NewInvalidInputError(field string) *AppError {
	return &AppError{
		Code:     ErrCodeInvalidInput,
		Message:  fmt.Sprintf("Invalid value for %s", field),
		Category: "validation",
		Action:   "Fill in every required field with a valid value.",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *AppError {
	return &AppError{
		Code:     ErrCodeUserNotFound,
		Message:  "User not found",
		Category: "chat",
		Action:   "Go back to the dashboard and pick someone from the list.",
	}
}

// NewEmptyMessageError は空メッセージの送信エラーを生成する。
func NewEmptyMessageError() *AppError {
	return &AppError{
		Code:     ErrCodeEmptyMessage,
		Message:  "Message is empty",
		Category: "chat",
		Action:   "Type a message before sending.",
	}
}

// NewSelfConversationError は自分自身との会話を開こうとした場合のエラーを生成する。
func NewSelfConversationError() *AppError {
	return &AppError{
		Code:     ErrCodeSelfConversation,
		Message:  "You cannot message yourself",
		Category: "chat",
		Action:   "Pick another member from the dashboard.",
	}
}

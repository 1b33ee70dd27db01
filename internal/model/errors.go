// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string            // エラーコード
	Message  string            // エラーメッセージ
	Category string            // カテゴリ: auth, validation, clinic, billing, system
	Action   string            // ユーザー向け対処方法
	Fields   map[string]string // バリデーションエラーのフィールド別メッセージ
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeInvalidRequest          = "INVALID_REQUEST"
	ErrCodeValidationFailed        = "VALIDATION_FAILED"
	ErrCodeInvalidCredentials      = "INVALID_CREDENTIALS"
	ErrCodeForbidden               = "FORBIDDEN"
	ErrCodeUserNotFound            = "USER_NOT_FOUND"
	ErrCodeClinicNotFound          = "CLINIC_NOT_FOUND"
	ErrCodePatientNotFound         = "PATIENT_NOT_FOUND"
	ErrCodeSessionNotFound         = "SESSION_NOT_FOUND"
	ErrCodeInvoiceNotFound         = "INVOICE_NOT_FOUND"
	ErrCodeBonusNotFound           = "BONUS_NOT_FOUND"
	ErrCodeReminderNotFound        = "REMINDER_NOT_FOUND"
	ErrCodeCallNotFound            = "CALL_NOT_FOUND"
	ErrCodeEmailTaken              = "EMAIL_TAKEN"
	ErrCodeInvoiceNumberTaken      = "INVOICE_NUMBER_TAKEN"
	ErrCodeInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
	ErrCodeInvoiceNotDraft         = "INVOICE_NOT_DRAFT"
	ErrCodeReminderNotPending      = "REMINDER_NOT_PENDING"
	ErrCodeCannotDeactivateSelf    = "CANNOT_DEACTIVATE_SELF"
	ErrCodePasswordMismatch        = "PASSWORD_MISMATCH"
)

// NewInvalidRequestError はリクエストボディ・クエリの解析失敗エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストの解析に失敗しました: %s", reason),
		Category: "validation",
		Action:   "正しい形式でリクエストしてください。",
	}
}

// NewValidationError は入力値検証エラーを生成する。
// fieldsにはフィールド名ごとのエラーメッセージを格納する。
func NewValidationError(fields map[string]string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  "入力内容に誤りがあります。",
		Category: "validation",
		Action:   "各項目のエラーを確認して再度送信してください。",
		Fields:   fields,
	}
}

// NewInvalidCredentialsError はログイン失敗エラーを生成する。
// 存在しないメールアドレスとパスワード不一致を区別しない。
func NewInvalidCredentialsError() *APIError {
	return &APIError{
		Code:     ErrCodeInvalidCredentials,
		Message:  "メールアドレスまたはパスワードが正しくありません。",
		Category: "auth",
		Action:   "入力内容を確認してください。",
	}
}

// NewForbiddenError は権限不足エラーを生成する。
func NewForbiddenError() *APIError {
	return &APIError{
		Code:     ErrCodeForbidden,
		Message:  "この操作を行う権限がありません。",
		Category: "auth",
		Action:   "クリニックの管理者に依頼してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ユーザーIDを確認してください。",
	}
}

// NewClinicNotFoundError はクリニックが見つからない場合のエラーを生成する。
func NewClinicNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeClinicNotFound,
		Message:  "クリニックが見つかりません。",
		Category: "clinic",
		Action:   "ログインし直してください。",
	}
}

func newNotFoundError(code, label, id, category string) *APIError {
	return &APIError{
		Code:     code,
		Message:  fmt.Sprintf("指定された%sが見つかりません: %s", label, id),
		Category: category,
		Action:   fmt.Sprintf("%sIDを確認してください。", label),
	}
}

// NewPatientNotFoundError は患者未検出エラーを生成する。
func NewPatientNotFoundError(id string) *APIError {
	return newNotFoundError(ErrCodePatientNotFound, "患者", id, "clinic")
}

// NewSessionNotFoundError は施術セッション未検出エラーを生成する。
func NewSessionNotFoundError(id string) *APIError {
	return newNotFoundError(ErrCodeSessionNotFound, "セッション", id, "clinic")
}

// NewInvoiceNotFoundError は請求書未検出エラーを生成する。
func NewInvoiceNotFoundError(id string) *APIError {
	return newNotFoundError(ErrCodeInvoiceNotFound, "請求書", id, "billing")
}

// NewBonusNotFoundError はボーナス未検出エラーを生成する。
func NewBonusNotFoundError(id string) *APIError {
	return newNotFoundError(ErrCodeBonusNotFound, "ボーナス", id, "billing")
}

// NewReminderNotFoundError はリマインダー未検出エラーを生成する。
func NewReminderNotFoundError(id string) *APIError {
	return newNotFoundError(ErrCodeReminderNotFound, "リマインダー", id, "clinic")
}

// NewCallNotFoundError は通話記録未検出エラーを生成する。
func NewCallNotFoundError(id string) *APIError {
	return newNotFoundError(ErrCodeCallNotFound, "通話記録", id, "clinic")
}

// NewEmailTakenError はメールアドレス重複エラーを生成する。
func NewEmailTakenError(email string) *APIError {
	return &APIError{
		Code:     ErrCodeEmailTaken,
		Message:  fmt.Sprintf("このメールアドレスは既に登録されています: %s", email),
		Category: "validation",
		Action:   "別のメールアドレスを指定してください。",
	}
}

// NewInvoiceNumberTakenError は請求書番号重複エラーを生成する。
func NewInvoiceNumberTakenError(number string) *APIError {
	return &APIError{
		Code:     ErrCodeInvoiceNumberTaken,
		Message:  fmt.Sprintf("この請求書番号は既に使用されています: %s", number),
		Category: "billing",
		Action:   "別の請求書番号を指定してください。",
	}
}

// NewInvalidStatusTransitionError は許可されていない状態遷移のエラーを生成する。
func NewInvalidStatusTransitionError(from, to string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidStatusTransition,
		Message:  fmt.Sprintf("状態を %s から %s に変更できません。", from, to),
		Category: "clinic",
		Action:   "予約済みのセッションのみ状態を変更できます。",
	}
}

// NewInvoiceNotDraftError は下書き以外の請求書を削除しようとした場合のエラーを生成する。
func NewInvoiceNotDraftError() *APIError {
	return &APIError{
		Code:     ErrCodeInvoiceNotDraft,
		Message:  "下書き以外の請求書は削除できません。",
		Category: "billing",
		Action:   "発行済みの請求書は状態を void に変更してください。",
	}
}

// NewReminderNotPendingError は未送信以外のリマインダーを操作しようとした場合のエラーを生成する。
func NewReminderNotPendingError() *APIError {
	return &APIError{
		Code:     ErrCodeReminderNotPending,
		Message:  "このリマインダーは既に送信済みまたは取り消し済みです。",
		Category: "clinic",
		Action:   "未送信のリマインダーのみ操作できます。",
	}
}

// NewCannotDeactivateSelfError は自分自身を無効化しようとした場合のエラーを生成する。
func NewCannotDeactivateSelfError() *APIError {
	return &APIError{
		Code:     ErrCodeCannotDeactivateSelf,
		Message:  "自分自身のアカウントは無効化できません。",
		Category: "auth",
		Action:   "別の管理者に依頼してください。",
	}
}

// NewPasswordMismatchError は現在のパスワードが一致しない場合のエラーを生成する。
func NewPasswordMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodePasswordMismatch,
		Message:  "現在のパスワードが正しくありません。",
		Category: "auth",
		Action:   "現在のパスワードを確認してください。",
	}
}

package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: resource, validation, conflict, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeBookNotFound       = "BOOK_NOT_FOUND"
	ErrCodeStudentNotFound    = "STUDENT_NOT_FOUND"
	ErrCodeBorrowNotFound     = "BORROW_NOT_FOUND"
	ErrCodeWaitlistNotFound   = "WAITLIST_NOT_FOUND"
	ErrCodeInvalidID          = "INVALID_ID"
	ErrCodeValidationFailed   = "VALIDATION_FAILED"
	ErrCodeDuplicateField     = "DUPLICATE_FIELD"
	ErrCodeStudentMismatch    = "STUDENT_MISMATCH"
	ErrCodeBookNotAvailable   = "BOOK_NOT_AVAILABLE"
	ErrCodeBorrowLimitReached = "BORROW_LIMIT_REACHED"
	ErrCodeAlreadyBorrowed    = "ALREADY_BORROWED"
	ErrCodeAlreadyReturned    = "ALREADY_RETURNED"
	ErrCodeWaitlistNotNeeded  = "WAITLIST_NOT_NEEDED"
	ErrCodeAlreadyOnWaitlist  = "ALREADY_ON_WAITLIST"
)

// NewBookNotFoundError は蔵書未検出エラーを生成する。
func NewBookNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeBookNotFound,
		Message:  "指定された蔵書が見つかりません。",
		Category: "resource",
		Action:   "蔵書IDを確認してください。",
	}
}

// NewStudentNotFoundError は学生未検出エラーを生成する。
func NewStudentNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeStudentNotFound,
		Message:  "指定された学生が見つかりません。",
		Category: "resource",
		Action:   "学生IDを確認してください。",
	}
}

// NewBorrowNotFoundError は貸出レコード未検出エラーを生成する。
func NewBorrowNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeBorrowNotFound,
		Message:  "指定された貸出レコードが見つかりません。",
		Category: "resource",
		Action:   "貸出レコードIDを確認してください。",
	}
}

// NewWaitlistNotFoundError は待機エントリ未検出エラーを生成する。
func NewWaitlistNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeWaitlistNotFound,
		Message:  "指定された待機エントリが見つかりません。",
		Category: "resource",
		Action:   "待機エントリIDを確認してください。",
	}
}

// NewInvalidIDError は不正なID形式エラーを生成する。
func NewInvalidIDError(what string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidID,
		Message:  fmt.Sprintf("%sの形式が不正です。", what),
		Category: "validation",
		Action:   "正しいID形式（UUID）を指定してください。",
	}
}

// NewValidationError は入力検証エラーを生成する。
func NewValidationError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeValidationFailed,
		Message:  fmt.Sprintf("入力値が不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト内容を確認してください。",
	}
}

// NewDuplicateFieldError は一意制約違反エラーを生成する。
func NewDuplicateFieldError(field string) *APIError {
	return &APIError{
		Code:     ErrCodeDuplicateField,
		Message:  fmt.Sprintf("同じ%sを持つレコードが既に存在します。", field),
		Category: "conflict",
		Action:   "別の値を指定するか、既存レコードを利用してください。",
	}
}

// NewStudentMismatchError は学籍番号とメールアドレスが別の学生を指す場合のエラーを生成する。
func NewStudentMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodeStudentMismatch,
		Message:  "学籍番号とメールアドレスが異なる学生を指しています。",
		Category: "conflict",
		Action:   "学籍番号とメールアドレスの組み合わせを確認してください。",
	}
}

// NewBookNotAvailableError は貸出可能コピーがない場合のエラーを生成する。
func NewBookNotAvailableError() *APIError {
	return &APIError{
		Code:     ErrCodeBookNotAvailable,
		Message:  "この蔵書は現在貸出できません。",
		Category: "conflict",
		Action:   "待機リストへの登録を検討してください。",
	}
}

// NewBorrowLimitReachedError は貸出上限到達エラーを生成する。
// メッセージには上限冊数を含める。
func NewBorrowLimitReachedError(limit int) *APIError {
	return &APIError{
		Code:     ErrCodeBorrowLimitReached,
		Message:  fmt.Sprintf("貸出上限（%d冊）に達しています。", limit),
		Category: "conflict",
		Action:   "いずれかの蔵書を返却してから再度お試しください。",
	}
}

// NewAlreadyBorrowedError は同一蔵書の二重貸出エラーを生成する。
func NewAlreadyBorrowedError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyBorrowed,
		Message:  "この蔵書は既に貸出中です。",
		Category: "conflict",
		Action:   "返却後に再度借りることができます。",
	}
}

// NewAlreadyReturnedError は返却済みレコードへの再返却エラーを生成する。
func NewAlreadyReturnedError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyReturned,
		Message:  "この蔵書は既に返却されています。",
		Category: "conflict",
		Action:   "貸出レコードIDを確認してください。",
	}
}

// NewWaitlistNotNeededError は貸出可能な蔵書への待機登録エラーを生成する。
func NewWaitlistNotNeededError() *APIError {
	return &APIError{
		Code:     ErrCodeWaitlistNotNeeded,
		Message:  "この蔵書はすぐに貸出可能です。待機リストへの登録は不要です。",
		Category: "conflict",
		Action:   "そのまま貸出手続きを行ってください。",
	}
}

// NewAlreadyOnWaitlistError は待機リストへの二重登録エラーを生成する。
func NewAlreadyOnWaitlistError() *APIError {
	return &APIError{
		Code:     ErrCodeAlreadyOnWaitlist,
		Message:  "この蔵書の待機リストに既に登録されています。",
		Category: "conflict",
		Action:   "現在の待機順位を確認してください。",
	}
}

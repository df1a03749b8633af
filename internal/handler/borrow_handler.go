package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/libraryportal/internal/borrow"
	"github.com/hitoshi/libraryportal/internal/model"
)

// BorrowServiceInterface は貸出ハンドラーが必要とするサービスインターフェース。
type BorrowServiceInterface interface {
	// Borrow は貸出を実行し、Book/Studentを展開したレコードを返す。
	Borrow(ctx context.Context, bookID, studentID string, details *borrow.StudentDetails) (*model.BorrowDetail, error)
	// Return は返却を実行する。延滞時は罰金を算出して記録する。
	Return(ctx context.Context, recordID string) (*model.BorrowDetail, error)
	// GetDetail は貸出レコードをBook/Student展開付きで取得する。
	GetDetail(ctx context.Context, recordID string) (*model.BorrowDetail, error)
	// ListActive は全アクティブ貸出を返却期限昇順で返す。
	ListActive(ctx context.Context) ([]model.BorrowDetail, error)
}

// BorrowHandler は貸出ライフサイクルのHTTPハンドラー。
type BorrowHandler struct {
	service BorrowServiceInterface
}

// NewBorrowHandler はBorrowHandlerを生成する。
func NewBorrowHandler(service BorrowServiceInterface) *BorrowHandler {
	return &BorrowHandler{service: service}
}

// borrowRequest は貸出リクエストのボディ。
type borrowRequest struct {
	BookID         string                 `json:"bookId"`
	StudentID      string                 `json:"studentId"`
	StudentDetails *borrow.StudentDetails `json:"studentDetails"`
}

// BorrowBook は貸出を実行する。
// POST /api/borrow
func (h *BorrowHandler) BorrowBook(w http.ResponseWriter, r *http.Request) {
	var req borrowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequestBody(w)
		return
	}

	if req.BookID == "" || req.StudentID == "" {
		writeAPIError(w, model.NewValidationError("bookIdとstudentIdは必須です"))
		return
	}
	if !requireUUID(w, req.BookID, "蔵書ID") {
		return
	}

	detail, err := h.service.Borrow(r.Context(), req.BookID, req.StudentID, req.StudentDetails)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeDataMessage(w, http.StatusCreated, detail, "貸出が完了しました。")
}

// ListActiveBorrows は全アクティブ貸出を取得する。
// GET /api/borrow/active
func (h *BorrowHandler) ListActiveBorrows(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.ListActive(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeEnvelope(w, http.StatusOK, envelope{
		Success: true,
		Data:    details,
		Count:   intPtr(len(details)),
	})
}

// GetBorrow は貸出レコードを取得する。
// GET /api/borrow/:id
func (h *BorrowHandler) GetBorrow(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !requireUUID(w, id, "貸出レコードID") {
		return
	}

	detail, err := h.service.GetDetail(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, detail)
}

// ReturnBook は返却を実行する。
// PUT /api/borrow/:id/return
func (h *BorrowHandler) ReturnBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !requireUUID(w, id, "貸出レコードID") {
		return
	}

	detail, err := h.service.Return(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	message := "返却が完了しました。"
	if detail != nil && detail.FineAmount > 0 {
		message = "返却が完了しました。延滞罰金が発生しています。"
	}

	writeDataMessage(w, http.StatusOK, detail, message)
}

package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/libraryportal/internal/model"
)

// WaitlistServiceInterface は待機リストハンドラーが必要とするサービスインターフェース。
type WaitlistServiceInterface interface {
	// Add は学生を蔵書の待機リストに登録する。
	Add(ctx context.Context, bookID, studentID string) (*model.WaitlistEntry, error)
	// Remove は待機エントリを削除し、後続の順位を詰め直す。
	Remove(ctx context.Context, id string) (*model.WaitlistRemoval, error)
	// ListByBook は蔵書の待機リストを順位昇順で返す。
	ListByBook(ctx context.Context, bookID string) ([]model.WaitlistDetail, error)
	// ListByStudent は学生の待機エントリを登録日降順で返す。
	ListByStudent(ctx context.Context, studentID string) ([]model.WaitlistDetail, error)
}

// WaitlistHandler は待機リストのHTTPハンドラー。
type WaitlistHandler struct {
	service WaitlistServiceInterface
}

// NewWaitlistHandler はWaitlistHandlerを生成する。
func NewWaitlistHandler(service WaitlistServiceInterface) *WaitlistHandler {
	return &WaitlistHandler{service: service}
}

// waitlistRequest は待機リスト登録リクエストのボディ。
type waitlistRequest struct {
	BookID    string `json:"bookId"`
	StudentID string `json:"studentId"`
}

// JoinWaitlist は学生を待機リストに登録する。
// POST /api/waitlist
func (h *WaitlistHandler) JoinWaitlist(w http.ResponseWriter, r *http.Request) {
	var req waitlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequestBody(w)
		return
	}

	if req.BookID == "" || req.StudentID == "" {
		writeAPIError(w, model.NewValidationError("bookIdとstudentIdは必須です"))
		return
	}
	if !requireUUID(w, req.BookID, "蔵書ID") || !requireUUID(w, req.StudentID, "学生ID") {
		return
	}

	entry, err := h.service.Add(r.Context(), req.BookID, req.StudentID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	message := fmt.Sprintf("待機リストに登録しました。現在%d番目です。", entry.Position)
	writeDataMessage(w, http.StatusCreated, entry, message)
}

// LeaveWaitlist は待機エントリを削除する。
// DELETE /api/waitlist/:id
func (h *WaitlistHandler) LeaveWaitlist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !requireUUID(w, id, "待機エントリID") {
		return
	}

	removal, err := h.service.Remove(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeDataMessage(w, http.StatusOK, removal, "待機リストから削除しました。")
}

// ListWaitlistByBook は蔵書の待機リストを取得する。
// GET /api/waitlist/book/:bookId
func (h *WaitlistHandler) ListWaitlistByBook(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookId")
	if !requireUUID(w, bookID, "蔵書ID") {
		return
	}

	details, err := h.service.ListByBook(r.Context(), bookID)
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

// ListWaitlistByStudent は学生の待機エントリを取得する。
// GET /api/waitlist/student/:studentId
func (h *WaitlistHandler) ListWaitlistByStudent(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentId")
	if !requireUUID(w, studentID, "学生ID") {
		return
	}

	details, err := h.service.ListByStudent(r.Context(), studentID)
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

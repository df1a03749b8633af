package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/libraryportal/internal/game"
	"github.com/hitoshi/libraryportal/internal/model"
)

// GameServiceInterface はゲームハンドラーが必要とするサービスインターフェース。
type GameServiceInterface interface {
	// SubmitScore はスコアを登録し、学生を展開して返す。
	SubmitScore(ctx context.Context, input game.ScoreInput) (*model.GameScoreDetail, error)
	// ListByStudent は学生のスコアをスコア降順・プレイ日降順で返す。
	ListByStudent(ctx context.Context, studentID string) ([]model.GameScore, error)
	// Leaderboard はゲーム種別のリーダーボードを返す。
	Leaderboard(ctx context.Context, gameType string, limit int) ([]model.GameScoreDetail, error)
	// CounterBooks はカウンターゲーム用にランダムな蔵書を投影して返す。
	CounterBooks(ctx context.Context, count int) ([]model.BookSummary, error)
}

// GameHandler はミニゲームスコアのHTTPハンドラー。
type GameHandler struct {
	service GameServiceInterface
}

// NewGameHandler はGameHandlerを生成する。
func NewGameHandler(service GameServiceInterface) *GameHandler {
	return &GameHandler{service: service}
}

// SubmitScore はスコアを登録する。
// POST /api/games/scores
func (h *GameHandler) SubmitScore(w http.ResponseWriter, r *http.Request) {
	var input game.ScoreInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeBadRequestBody(w)
		return
	}

	// studentIdの必須チェックはサービス層が行う。ここでは形式のみ検証する。
	if input.StudentID != "" && !requireUUID(w, input.StudentID, "学生ID") {
		return
	}

	detail, err := h.service.SubmitScore(r.Context(), input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeDataMessage(w, http.StatusCreated, detail, "スコアを登録しました。")
}

// ListScoresByStudent は学生のスコア一覧を取得する。
// GET /api/games/scores/student/:studentId
func (h *GameHandler) ListScoresByStudent(w http.ResponseWriter, r *http.Request) {
	studentID := chi.URLParam(r, "studentId")
	if !requireUUID(w, studentID, "学生ID") {
		return
	}

	scores, err := h.service.ListByStudent(r.Context(), studentID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeEnvelope(w, http.StatusOK, envelope{
		Success: true,
		Data:    scores,
		Count:   intPtr(len(scores)),
	})
}

// GetLeaderboard はゲーム種別のリーダーボードを取得する。
// GET /api/games/leaderboard/:gameType?limit=
func (h *GameHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}

	details, err := h.service.Leaderboard(r.Context(), chi.URLParam(r, "gameType"), limit)
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

// ListCounterBooks はカウンターゲーム用の蔵書を取得する。
// GET /api/games/counter-books/:count
func (h *GameHandler) ListCounterBooks(w http.ResponseWriter, r *http.Request) {
	count, err := strconv.Atoi(chi.URLParam(r, "count"))
	if err != nil {
		writeAPIError(w, model.NewValidationError("countは整数で指定してください"))
		return
	}

	books, err := h.service.CounterBooks(r.Context(), count)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeEnvelope(w, http.StatusOK, envelope{
		Success: true,
		Data:    books,
		Count:   intPtr(len(books)),
	})
}

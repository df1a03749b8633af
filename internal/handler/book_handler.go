package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/libraryportal/internal/book"
	"github.com/hitoshi/libraryportal/internal/model"
	"github.com/hitoshi/libraryportal/internal/repository"
)

// BookServiceInterface は蔵書ハンドラーが必要とするサービスインターフェース。
type BookServiceInterface interface {
	// List は絞り込み条件に一致する蔵書をページネーション付きで返す。
	List(ctx context.Context, filter repository.BookFilter) ([]model.Book, int, error)
	// GetDetail は蔵書の詳細を貸出中学生・待機リスト付きで取得する。
	GetDetail(ctx context.Context, id string) (*book.Detail, error)
	// ListByGenre は指定ジャンルの貸出可能な蔵書を返す。
	ListByGenre(ctx context.Context, genre string, page, limit int) ([]model.Book, int, error)
	// ListRandom は貸出可能な蔵書からランダムにcount冊取得する。
	ListRandom(ctx context.Context, count int) ([]model.Book, error)
	// ListGenres は登録済み蔵書に実在するジャンルの一覧を返す。
	ListGenres(ctx context.Context) ([]string, error)
	// Search はタイトル・著者の部分一致で蔵書を検索する。
	Search(ctx context.Context, query string, page, limit int) ([]model.Book, int, error)
	// Create は蔵書を登録する。
	Create(ctx context.Context, input book.CreateInput) (*model.Book, error)
}

// BookHandler は蔵書カタログのHTTPハンドラー。
type BookHandler struct {
	service BookServiceInterface
}

// NewBookHandler はBookHandlerを生成する。
func NewBookHandler(service BookServiceInterface) *BookHandler {
	return &BookHandler{service: service}
}

// ListBooks は蔵書一覧を取得する。
// GET /api/books?genre=&search=&available=&page=&limit=
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePagination(r)
	filter := repository.BookFilter{
		Genre:         r.URL.Query().Get("genre"),
		Search:        r.URL.Query().Get("search"),
		AvailableOnly: r.URL.Query().Get("available") == "true",
		Page:          page,
		Limit:         limit,
	}

	books, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writePage(w, books, len(books), total, page, limit, "")
}

// GetBook は蔵書詳細を取得する。
// GET /api/books/:id
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !requireUUID(w, id, "蔵書ID") {
		return
	}

	detail, err := h.service.GetDetail(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, detail)
}

// ListBooksByGenre はジャンル別の貸出可能な蔵書一覧を取得する。
// GET /api/books/genre/:genre
func (h *BookHandler) ListBooksByGenre(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePagination(r)
	genre := chi.URLParam(r, "genre")

	books, total, err := h.service.ListByGenre(r.Context(), genre, page, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writePage(w, books, len(books), total, page, limit, "")
}

// ListRandomBooks は貸出可能な蔵書をランダムに取得する。
// GET /api/books/random/:count
func (h *BookHandler) ListRandomBooks(w http.ResponseWriter, r *http.Request) {
	count, err := strconv.Atoi(chi.URLParam(r, "count"))
	if err != nil {
		writeAPIError(w, model.NewValidationError("countは整数で指定してください"))
		return
	}

	books, err := h.service.ListRandom(r.Context(), count)
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

// ListGenres は登録済み蔵書に実在するジャンル一覧を取得する。
// GET /api/books/genres/all
func (h *BookHandler) ListGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.service.ListGenres(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, genres)
}

// SearchBooks はタイトル・著者の部分一致で蔵書を検索する。
// GET /api/books/search/:query
func (h *BookHandler) SearchBooks(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePagination(r)
	query := chi.URLParam(r, "query")

	books, total, err := h.service.Search(r.Context(), query, page, limit)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writePage(w, books, len(books), total, page, limit, query)
}

// CreateBook は蔵書を登録する。
// POST /api/books
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	var input book.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeBadRequestBody(w)
		return
	}

	created, err := h.service.Create(r.Context(), input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeDataMessage(w, http.StatusCreated, created, "蔵書を登録しました。")
}

// intPtr はintのポインタを返す。
func intPtr(v int) *int {
	return &v
}

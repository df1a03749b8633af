package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/libraryportal/internal/model"
	"github.com/hitoshi/libraryportal/internal/repository"
	"github.com/hitoshi/libraryportal/internal/student"
)

// StudentServiceInterface は学生ハンドラーが必要とするサービスインターフェース。
type StudentServiceInterface interface {
	// Upsert は学生を登録または更新する。2番目の戻り値は新規作成ならtrue。
	Upsert(ctx context.Context, input student.UpsertInput) (*model.Student, bool, error)
	// List は絞り込み条件に一致する学生をページネーション付きで返す。
	List(ctx context.Context, filter repository.StudentFilter) ([]model.StudentWithBorrowCount, int, error)
	// GetDetail は学生の詳細を統計値・貸出状況・待機状況付きで取得する。
	GetDetail(ctx context.Context, id string) (*student.Detail, error)
	// GetByStudentID は学籍番号で学生をアクティブ貸出付きで取得する。
	GetByStudentID(ctx context.Context, studentID string) (*student.Summary, error)
}

// StudentHandler は学生管理のHTTPハンドラー。
type StudentHandler struct {
	service StudentServiceInterface
}

// NewStudentHandler はStudentHandlerを生成する。
func NewStudentHandler(service StudentServiceInterface) *StudentHandler {
	return &StudentHandler{service: service}
}

// UpsertStudent は学生を登録または更新する。
// POST /api/students
func (h *StudentHandler) UpsertStudent(w http.ResponseWriter, r *http.Request) {
	var input student.UpsertInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeBadRequestBody(w)
		return
	}

	s, created, err := h.service.Upsert(r.Context(), input)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	if created {
		writeDataMessage(w, http.StatusCreated, s, "学生を登録しました。")
		return
	}
	writeDataMessage(w, http.StatusOK, s, "学生情報を更新しました。")
}

// ListStudents は学生一覧を取得する。
// GET /api/students?department=&search=&page=&limit=
func (h *StudentHandler) ListStudents(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePagination(r)
	filter := repository.StudentFilter{
		Department: r.URL.Query().Get("department"),
		Search:     r.URL.Query().Get("search"),
		Page:       page,
		Limit:      limit,
	}

	students, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writePage(w, students, len(students), total, page, limit, "")
}

// GetStudent は学生詳細を取得する。
// GET /api/students/:id
func (h *StudentHandler) GetStudent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !requireUUID(w, id, "学生ID") {
		return
	}

	detail, err := h.service.GetDetail(r.Context(), id)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, detail)
}

// GetStudentByStudentID は学籍番号で学生を取得する。
// GET /api/students/studentId/:studentId
func (h *StudentHandler) GetStudentByStudentID(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.GetByStudentID(r.Context(), chi.URLParam(r, "studentId"))
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeData(w, http.StatusOK, summary)
}

package student

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/libraryportal/internal/model"
	"github.com/hitoshi/libraryportal/internal/repository"
)

// --- モック ---

type mockStudentRepo struct {
	findByIDFn        func(ctx context.Context, id string) (*model.Student, error)
	findByStudentIDFn func(ctx context.Context, studentID string) (*model.Student, error)
	findByEmailFn     func(ctx context.Context, email string) (*model.Student, error)
	createFn          func(ctx context.Context, student *model.Student) error
	updateProfileFn   func(ctx context.Context, student *model.Student) error
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*model.Student, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockStudentRepo) FindByStudentID(ctx context.Context, studentID string) (*model.Student, error) {
	if m.findByStudentIDFn != nil {
		return m.findByStudentIDFn(ctx, studentID)
	}
	return nil, nil
}
func (m *mockStudentRepo) FindByEmail(ctx context.Context, email string) (*model.Student, error) {
	if m.findByEmailFn != nil {
		return m.findByEmailFn(ctx, email)
	}
	return nil, nil
}
func (m *mockStudentRepo) Create(ctx context.Context, student *model.Student) error {
	if m.createFn != nil {
		return m.createFn(ctx, student)
	}
	return nil
}
func (m *mockStudentRepo) UpdateProfile(ctx context.Context, student *model.Student) error {
	if m.updateProfileFn != nil {
		return m.updateProfileFn(ctx, student)
	}
	return nil
}
func (m *mockStudentRepo) List(ctx context.Context, filter repository.StudentFilter) ([]model.StudentWithBorrowCount, int, error) {
	return nil, 0, nil
}

type mockBorrowRepo struct {
	listActiveByStudentFn func(ctx context.Context, studentID string) ([]model.BorrowDetail, error)
	listByStudentFn       func(ctx context.Context, studentID string, limit int) ([]model.BorrowDetail, error)
	countByStudentFn      func(ctx context.Context, studentID string) (int, error)
}

func (m *mockBorrowRepo) FindByID(ctx context.Context, id string) (*model.BorrowRecord, error) {
	return nil, nil
}
func (m *mockBorrowRepo) FindDetailByID(ctx context.Context, id string) (*model.BorrowDetail, error) {
	return nil, nil
}
func (m *mockBorrowRepo) FindActiveByBookAndStudent(ctx context.Context, bookID, studentID string) (*model.BorrowRecord, error) {
	return nil, nil
}
func (m *mockBorrowRepo) CountActiveByStudent(ctx context.Context, studentID string) (int, error) {
	return 0, nil
}
func (m *mockBorrowRepo) CountByStudent(ctx context.Context, studentID string) (int, error) {
	if m.countByStudentFn != nil {
		return m.countByStudentFn(ctx, studentID)
	}
	return 0, nil
}
func (m *mockBorrowRepo) ListActive(ctx context.Context) ([]model.BorrowDetail, error) {
	return nil, nil
}
func (m *mockBorrowRepo) ListActiveByStudent(ctx context.Context, studentID string) ([]model.BorrowDetail, error) {
	if m.listActiveByStudentFn != nil {
		return m.listActiveByStudentFn(ctx, studentID)
	}
	return []model.BorrowDetail{}, nil
}
func (m *mockBorrowRepo) ListByStudent(ctx context.Context, studentID string, limit int) ([]model.BorrowDetail, error) {
	if m.listByStudentFn != nil {
		return m.listByStudentFn(ctx, studentID, limit)
	}
	return []model.BorrowDetail{}, nil
}
func (m *mockBorrowRepo) ListActiveBorrowers(ctx context.Context, bookID string) ([]model.ActiveBorrower, error) {
	return nil, nil
}
func (m *mockBorrowRepo) ExecuteBorrow(ctx context.Context, record *model.BorrowRecord) error {
	return nil
}
func (m *mockBorrowRepo) ExecuteReturn(ctx context.Context, id string, returnDate time.Time, fineAmount int) error {
	return nil
}

type mockWaitlistRepo struct {
	listByStudentAscFn func(ctx context.Context, studentID string) ([]model.WaitlistDetail, error)
	countByStudentFn   func(ctx context.Context, studentID string) (int, error)
}

func (m *mockWaitlistRepo) FindByID(ctx context.Context, id string) (*model.WaitlistEntry, error) {
	return nil, nil
}
func (m *mockWaitlistRepo) FindByBookAndStudent(ctx context.Context, bookID, studentID string) (*model.WaitlistEntry, error) {
	return nil, nil
}
func (m *mockWaitlistRepo) AddEntry(ctx context.Context, entry *model.WaitlistEntry) error {
	return nil
}
func (m *mockWaitlistRepo) RemoveAndCompact(ctx context.Context, id string) (*model.WaitlistEntry, error) {
	return nil, nil
}
func (m *mockWaitlistRepo) ListByBook(ctx context.Context, bookID string) ([]model.WaitlistDetail, error) {
	return nil, nil
}
func (m *mockWaitlistRepo) ListByStudent(ctx context.Context, studentID string) ([]model.WaitlistDetail, error) {
	return nil, nil
}
func (m *mockWaitlistRepo) ListByStudentAsc(ctx context.Context, studentID string) ([]model.WaitlistDetail, error) {
	if m.listByStudentAscFn != nil {
		return m.listByStudentAscFn(ctx, studentID)
	}
	return []model.WaitlistDetail{}, nil
}
func (m *mockWaitlistRepo) CountByStudent(ctx context.Context, studentID string) (int, error) {
	if m.countByStudentFn != nil {
		return m.countByStudentFn(ctx, studentID)
	}
	return 0, nil
}

// --- ヘルパー ---

func validInput() UpsertInput {
	return UpsertInput{
		StudentID:  "STU001",
		Name:       "山田太郎",
		Email:      "taro@example.com",
		Department: "Computer Science",
		Year:       "2nd Year",
	}
}

func newTestService(studentRepo repository.StudentRepository) *Service {
	return NewService(studentRepo, &mockBorrowRepo{}, &mockWaitlistRepo{}, 3)
}

func assertAPIErrorCode(t *testing.T, err error, wantCode string) {
	t.Helper()
	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T: %v", err, err)
	}
	if apiErr.Code != wantCode {
		t.Fatalf("error code = %q, want %q", apiErr.Code, wantCode)
	}
}

// --- テスト ---

// TestService_Upsert_CreatesNewStudent は新規学生の作成を検証する。
func TestService_Upsert_CreatesNewStudent(t *testing.T) {
	var created *model.Student
	repo := &mockStudentRepo{
		createFn: func(ctx context.Context, student *model.Student) error {
			created = student
			return nil
		},
	}
	svc := newTestService(repo)

	s, isNew, err := svc.Upsert(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}
	if !isNew {
		t.Error("expected isNew = true for new student")
	}
	if created == nil {
		t.Fatal("Create was not called")
	}
	if s.MaxBooksAllowed != 3 {
		t.Errorf("max_books_allowed = %d, want 3", s.MaxBooksAllowed)
	}
	if s.Email != "taro@example.com" {
		t.Errorf("email = %q, want %q", s.Email, "taro@example.com")
	}
}

// TestService_Upsert_UpdatesExisting は既存学生の更新を検証する。
func TestService_Upsert_UpdatesExisting(t *testing.T) {
	var updated *model.Student
	repo := &mockStudentRepo{
		findByStudentIDFn: func(ctx context.Context, studentID string) (*model.Student, error) {
			return &model.Student{ID: "row-1", StudentID: studentID, Name: "旧名", Email: "taro@example.com"}, nil
		},
		updateProfileFn: func(ctx context.Context, student *model.Student) error {
			updated = student
			return nil
		},
	}
	svc := newTestService(repo)

	_, isNew, err := svc.Upsert(context.Background(), validInput())
	if err != nil {
		t.Fatalf("Upsert returned error: %v", err)
	}
	if isNew {
		t.Error("expected isNew = false for existing student")
	}
	if updated == nil {
		t.Fatal("UpdateProfile was not called")
	}
	if updated.Name != "山田太郎" {
		t.Errorf("name = %q, want updated value", updated.Name)
	}
}

// TestService_Upsert_Mismatch は学籍番号とメールアドレスが別の学生を
// 指す場合の拒否を検証する。
func TestService_Upsert_Mismatch(t *testing.T) {
	repo := &mockStudentRepo{
		findByStudentIDFn: func(ctx context.Context, studentID string) (*model.Student, error) {
			return &model.Student{ID: "row-1", StudentID: studentID}, nil
		},
		findByEmailFn: func(ctx context.Context, email string) (*model.Student, error) {
			return &model.Student{ID: "row-2", Email: email}, nil
		},
	}
	svc := newTestService(repo)

	_, _, err := svc.Upsert(context.Background(), validInput())
	assertAPIErrorCode(t, err, model.ErrCodeStudentMismatch)
}

// TestService_Upsert_Validation は入力検証の失敗を表で検証する。
func TestService_Upsert_Validation(t *testing.T) {
	svc := newTestService(&mockStudentRepo{})
	ctx := context.Background()

	tests := []struct {
		name   string
		modify func(in *UpsertInput)
	}{
		{"学籍番号なし", func(in *UpsertInput) { in.StudentID = "" }},
		{"氏名なし", func(in *UpsertInput) { in.Name = "" }},
		{"メールなし", func(in *UpsertInput) { in.Email = "" }},
		{"メール形式不正", func(in *UpsertInput) { in.Email = "not-an-email" }},
		{"不正な学科", func(in *UpsertInput) { in.Department = "Astrology" }},
		{"不正な学年", func(in *UpsertInput) { in.Year = "5th Year" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput()
			tt.modify(&in)
			_, _, err := svc.Upsert(ctx, in)
			assertAPIErrorCode(t, err, model.ErrCodeValidationFailed)
		})
	}
}

// TestService_GetDetail_Statistics は学生詳細の統計値算出を検証する。
func TestService_GetDetail_Statistics(t *testing.T) {
	studentRepo := &mockStudentRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Student, error) {
			return &model.Student{ID: id, Name: "山田太郎", MaxBooksAllowed: 3}, nil
		},
	}
	borrowRepo := &mockBorrowRepo{
		listActiveByStudentFn: func(ctx context.Context, studentID string) ([]model.BorrowDetail, error) {
			return make([]model.BorrowDetail, 2), nil
		},
		countByStudentFn: func(ctx context.Context, studentID string) (int, error) {
			return 7, nil
		},
	}
	waitlistRepo := &mockWaitlistRepo{
		listByStudentAscFn: func(ctx context.Context, studentID string) ([]model.WaitlistDetail, error) {
			return make([]model.WaitlistDetail, 1), nil
		},
		countByStudentFn: func(ctx context.Context, studentID string) (int, error) {
			return 1, nil
		},
	}
	svc := NewService(studentRepo, borrowRepo, waitlistRepo, 3)

	detail, err := svc.GetDetail(context.Background(), "row-1")
	if err != nil {
		t.Fatalf("GetDetail returned error: %v", err)
	}

	stats := detail.Statistics
	if stats.TotalBooksBorrowed != 7 {
		t.Errorf("total_books_borrowed = %d, want 7", stats.TotalBooksBorrowed)
	}
	if stats.CurrentlyBorrowed != 2 {
		t.Errorf("currently_borrowed = %d, want 2", stats.CurrentlyBorrowed)
	}
	if stats.BooksOnWaitlist != 1 {
		t.Errorf("books_on_waitlist = %d, want 1", stats.BooksOnWaitlist)
	}
	if stats.BooksRemaining != 1 {
		t.Errorf("books_remaining = %d, want 1", stats.BooksRemaining)
	}
}

// TestService_GetDetail_NotFound は存在しない学生の詳細取得を検証する。
func TestService_GetDetail_NotFound(t *testing.T) {
	svc := newTestService(&mockStudentRepo{})

	_, err := svc.GetDetail(context.Background(), "missing")
	assertAPIErrorCode(t, err, model.ErrCodeStudentNotFound)
}

// TestService_GetByStudentID_NotFound は存在しない学籍番号の検索を検証する。
func TestService_GetByStudentID_NotFound(t *testing.T) {
	svc := newTestService(&mockStudentRepo{})

	_, err := svc.GetByStudentID(context.Background(), "STU999")
	assertAPIErrorCode(t, err, model.ErrCodeStudentNotFound)
}

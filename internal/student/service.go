// Package student は学生管理のドメインロジックを提供する。
package student

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/libraryportal/internal/model"
	"github.com/hitoshi/libraryportal/internal/repository"
)

// borrowHistoryLimit は学生詳細に含める貸出履歴の最大件数。
const borrowHistoryLimit = 20

// emailPattern はメールアドレスの形式検証。
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// UpsertInput は学生の登録・更新リクエスト。
type UpsertInput struct {
	StudentID  string  `json:"studentId"`
	Name       string  `json:"name"`
	Email      string  `json:"email"`
	Phone      *string `json:"phone"`
	Department string  `json:"department"`
	Year       string  `json:"year"`
}

// Detail は学生詳細のレスポンス。統計値と貸出・待機の状況を展開する。
type Detail struct {
	model.Student
	Statistics        model.StudentStatistics `json:"statistics"`
	CurrentBorrows    []model.BorrowDetail    `json:"currentBorrows"`
	BorrowHistory     []model.BorrowDetail    `json:"borrowHistory"`
	WaitlistPositions []model.WaitlistDetail  `json:"waitlistPositions"`
}

// Summary は学籍番号検索のレスポンス。アクティブ貸出を展開する。
type Summary struct {
	model.Student
	CurrentBorrows []model.BorrowDetail `json:"currentBorrows"`
}

// Service は学生管理のサービス層。
type Service struct {
	studentRepo  repository.StudentRepository
	borrowRepo   repository.BorrowRepository
	waitlistRepo repository.WaitlistRepository
	defaultMax   int
	now          func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// defaultMaxBooksは新規学生の貸出上限冊数。
func NewService(
	studentRepo repository.StudentRepository,
	borrowRepo repository.BorrowRepository,
	waitlistRepo repository.WaitlistRepository,
	defaultMaxBooks int,
) *Service {
	return &Service{
		studentRepo:  studentRepo,
		borrowRepo:   borrowRepo,
		waitlistRepo: waitlistRepo,
		defaultMax:   defaultMaxBooks,
		now:          time.Now,
	}
}

// Upsert は学生を登録または更新する。学籍番号を優先し、次にメールアドレスで
// 既存学生を解決する。両方が別の学生を指す場合は拒否する。
// 2番目の戻り値は新規作成ならtrue。
func (s *Service) Upsert(ctx context.Context, input UpsertInput) (*model.Student, bool, error) {
	if err := validateUpsertInput(&input); err != nil {
		return nil, false, err
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))

	byStudentID, err := s.studentRepo.FindByStudentID(ctx, input.StudentID)
	if err != nil {
		return nil, false, fmt.Errorf("学籍番号による学生の検索に失敗しました: %w", err)
	}
	byEmail, err := s.studentRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, false, fmt.Errorf("メールアドレスによる学生の検索に失敗しました: %w", err)
	}

	if byStudentID != nil && byEmail != nil && byStudentID.ID != byEmail.ID {
		return nil, false, model.NewStudentMismatchError()
	}

	existing := byStudentID
	if existing == nil {
		existing = byEmail
	}

	if existing != nil {
		existing.Name = input.Name
		existing.Department = model.Department(input.Department)
		existing.Year = model.Year(input.Year)
		if input.Phone != nil {
			existing.Phone = input.Phone
		}
		if err := s.studentRepo.UpdateProfile(ctx, existing); err != nil {
			return nil, false, fmt.Errorf("学生情報の更新に失敗しました: %w", err)
		}
		return existing, false, nil
	}

	now := s.now()
	student := &model.Student{
		ID:                   uuid.NewString(),
		StudentID:            input.StudentID,
		Name:                 input.Name,
		Email:                email,
		Phone:                input.Phone,
		Department:           model.Department(input.Department),
		Year:                 model.Year(input.Year),
		MaxBooksAllowed:      s.defaultMax,
		CurrentBooksBorrowed: 0,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.studentRepo.Create(ctx, student); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, false, model.NewDuplicateFieldError("学籍番号またはメールアドレス")
		}
		return nil, false, fmt.Errorf("学生の作成に失敗しました: %w", err)
	}

	slog.Info("student registered", slog.String("student_id", student.StudentID))

	return student, true, nil
}

// List は絞り込み条件に一致する学生をページネーション付きで返す。
func (s *Service) List(ctx context.Context, filter repository.StudentFilter) ([]model.StudentWithBorrowCount, int, error) {
	return s.studentRepo.List(ctx, filter)
}

// GetDetail は学生の詳細を統計値・貸出状況・待機状況付きで取得する。
func (s *Service) GetDetail(ctx context.Context, id string) (*Detail, error) {
	student, err := s.studentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("学生の取得に失敗しました: %w", err)
	}
	if student == nil {
		return nil, model.NewStudentNotFoundError()
	}

	currentBorrows, err := s.borrowRepo.ListActiveByStudent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("アクティブ貸出の取得に失敗しました: %w", err)
	}

	history, err := s.borrowRepo.ListByStudent(ctx, id, borrowHistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("貸出履歴の取得に失敗しました: %w", err)
	}

	totalBorrowed, err := s.borrowRepo.CountByStudent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("貸出総数の取得に失敗しました: %w", err)
	}

	waitlist, err := s.waitlistRepo.ListByStudentAsc(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("待機エントリの取得に失敗しました: %w", err)
	}

	onWaitlist, err := s.waitlistRepo.CountByStudent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("待機エントリ数の取得に失敗しました: %w", err)
	}

	remaining := student.MaxBooksAllowed - len(currentBorrows)
	if remaining < 0 {
		remaining = 0
	}

	return &Detail{
		Student: *student,
		Statistics: model.StudentStatistics{
			TotalBooksBorrowed: totalBorrowed,
			CurrentlyBorrowed:  len(currentBorrows),
			BooksOnWaitlist:    onWaitlist,
			MaxBooksAllowed:    student.MaxBooksAllowed,
			BooksRemaining:     remaining,
		},
		CurrentBorrows:    currentBorrows,
		BorrowHistory:     history,
		WaitlistPositions: waitlist,
	}, nil
}

// GetByStudentID は学籍番号で学生をアクティブ貸出付きで取得する。
func (s *Service) GetByStudentID(ctx context.Context, studentID string) (*Summary, error) {
	student, err := s.studentRepo.FindByStudentID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("学籍番号による学生の検索に失敗しました: %w", err)
	}
	if student == nil {
		return nil, model.NewStudentNotFoundError()
	}

	currentBorrows, err := s.borrowRepo.ListActiveByStudent(ctx, student.ID)
	if err != nil {
		return nil, fmt.Errorf("アクティブ貸出の取得に失敗しました: %w", err)
	}

	return &Summary{
		Student:        *student,
		CurrentBorrows: currentBorrows,
	}, nil
}

// validateUpsertInput は必須項目・メールアドレス形式・列挙値を検証する。
func validateUpsertInput(input *UpsertInput) *model.APIError {
	if input.StudentID == "" || input.Email == "" || input.Name == "" ||
		input.Department == "" || input.Year == "" {
		return model.NewValidationError("studentId、email、name、department、yearは必須です")
	}
	if !emailPattern.MatchString(strings.TrimSpace(input.Email)) {
		return model.NewValidationError("emailの形式が不正です")
	}
	if !model.IsValidDepartment(input.Department) {
		return model.NewValidationError("departmentの値が不正です")
	}
	if !model.IsValidYear(input.Year) {
		return model.NewValidationError("yearの値が不正です")
	}
	return nil
}

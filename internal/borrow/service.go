// Package borrow は貸出・返却ライフサイクルのドメインロジックを提供する。
package borrow

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/libraryportal/internal/model"
	"github.com/hitoshi/libraryportal/internal/repository"
)

// tokenPrefix は貸出トークンの固定プレフィックス。
const tokenPrefix = "LIB"

// tokenSuffixLength は貸出トークンのランダムサフィックス長。
const tokenSuffixLength = 5

// tokenSuffixCharset はランダムサフィックスに使用する文字集合。
const tokenSuffixCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// tokenMaxAttempts はトークン衝突時の再生成回数上限。
// 一意性の本来の保証はDBの一意制約であり、再試行は衝突時の回復手段。
const tokenMaxAttempts = 3

// MetricsRecorder は貸出・返却のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordBorrow()
	RecordReturn()
	RecordFineAssessed(amount int)
}

// Config は貸出ライフサイクルの設定。
type Config struct {
	// PeriodDays は貸出期間（暦日）。返却期限は貸出日のPeriodDays日後。
	PeriodDays int
	// FineRatePerDay は延滞1日あたりの罰金額。
	FineRatePerDay int
	// DefaultMaxBooks は新規学生の貸出上限冊数。
	DefaultMaxBooks int
}

// StudentDetails は新規学生の自動登録に使用する情報。
type StudentDetails struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Department string `json:"department"`
	Year       string `json:"year"`
}

// Service は貸出ライフサイクルのサービス層。
// 貸出・返却の事前条件検証と、在庫・学生カウンタと同期した状態遷移を提供する。
type Service struct {
	bookRepo    repository.BookRepository
	studentRepo repository.StudentRepository
	borrowRepo  repository.BorrowRepository
	metrics     MetricsRecorder
	config      Config
	now         func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnilでもよい。
func NewService(
	bookRepo repository.BookRepository,
	studentRepo repository.StudentRepository,
	borrowRepo repository.BorrowRepository,
	metrics MetricsRecorder,
	config Config,
) *Service {
	return &Service{
		bookRepo:    bookRepo,
		studentRepo: studentRepo,
		borrowRepo:  borrowRepo,
		metrics:     metrics,
		config:      config,
		now:         time.Now,
	}
}

// Borrow は貸出を実行する。事前条件は次の順で検証し、最初の失敗を返す:
// 蔵書の存在、在庫、学生の解決、貸出上限、二重貸出。
// 成功時はBook/Studentを展開した貸出レコードを返す。
func (s *Service) Borrow(ctx context.Context, bookID, studentID string, details *StudentDetails) (*model.BorrowDetail, error) {
	// 1. 蔵書の存在確認
	book, err := s.bookRepo.FindByID(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("蔵書の取得に失敗しました: %w", err)
	}
	if book == nil {
		return nil, model.NewBookNotFoundError()
	}

	// 2. 在庫の事前確認（確定的な判定はExecuteBorrowの条件付き更新が行う）
	if book.AvailableCopies <= 0 {
		return nil, model.NewBookNotAvailableError()
	}

	// 3. 学生の解決（学籍番号優先、なければメールアドレス）
	student, err := s.resolveStudent(ctx, studentID, details)
	if err != nil {
		return nil, err
	}

	// 4. 貸出上限の確認
	activeCount, err := s.borrowRepo.CountActiveByStudent(ctx, student.ID)
	if err != nil {
		return nil, fmt.Errorf("アクティブ貸出数の取得に失敗しました: %w", err)
	}
	if activeCount >= student.MaxBooksAllowed {
		return nil, model.NewBorrowLimitReachedError(student.MaxBooksAllowed)
	}

	// 5. 同一蔵書の二重貸出確認
	existing, err := s.borrowRepo.FindActiveByBookAndStudent(ctx, book.ID, student.ID)
	if err != nil {
		return nil, fmt.Errorf("アクティブ貸出の検索に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewAlreadyBorrowedError()
	}

	// 貸出レコードの作成。トークン衝突時はサフィックスを再生成して再試行する。
	borrowDate := s.now()
	record := &model.BorrowRecord{
		ID:         uuid.NewString(),
		BookID:     book.ID,
		StudentID:  student.ID,
		BorrowDate: borrowDate,
		DueDate:    borrowDate.AddDate(0, 0, s.config.PeriodDays),
		Status:     model.BorrowStatusActive,
		CreatedAt:  borrowDate,
		UpdatedAt:  borrowDate,
	}

	for attempt := 1; ; attempt++ {
		record.Token = generateToken(borrowDate)

		err = s.borrowRepo.ExecuteBorrow(ctx, record)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrDuplicateToken) && attempt < tokenMaxAttempts {
			continue
		}
		if errors.Is(err, repository.ErrBookUnavailable) {
			return nil, model.NewBookNotAvailableError()
		}
		if errors.Is(err, repository.ErrDuplicateActiveBorrow) {
			return nil, model.NewAlreadyBorrowedError()
		}
		return nil, fmt.Errorf("貸出の実行に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordBorrow()
	}

	slog.Info("book borrowed",
		slog.String("book_id", book.ID),
		slog.String("student_id", student.ID),
		slog.String("token", record.Token),
	)

	return s.borrowRepo.FindDetailByID(ctx, record.ID)
}

// Return は返却を実行する。延滞している場合は罰金を算出して記録する。
// 返却済みレコードへの再返却はエラーになり、カウンタは変化しない。
func (s *Service) Return(ctx context.Context, recordID string) (*model.BorrowDetail, error) {
	record, err := s.borrowRepo.FindByID(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("貸出レコードの取得に失敗しました: %w", err)
	}
	if record == nil {
		return nil, model.NewBorrowNotFoundError()
	}
	if record.Status == model.BorrowStatusReturned {
		return nil, model.NewAlreadyReturnedError()
	}

	returnDate := s.now()
	fine := CalculateFine(returnDate, record.DueDate, s.config.FineRatePerDay)

	if err := s.borrowRepo.ExecuteReturn(ctx, recordID, returnDate, fine); err != nil {
		if errors.Is(err, repository.ErrAlreadyReturned) {
			return nil, model.NewAlreadyReturnedError()
		}
		return nil, fmt.Errorf("返却の実行に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordReturn()
		if fine > 0 {
			s.metrics.RecordFineAssessed(fine)
		}
	}

	slog.Info("book returned",
		slog.String("record_id", recordID),
		slog.Int("fine_amount", fine),
	)

	return s.borrowRepo.FindDetailByID(ctx, recordID)
}

// GetDetail は貸出レコードをBook/Student展開付きで取得する。
func (s *Service) GetDetail(ctx context.Context, recordID string) (*model.BorrowDetail, error) {
	detail, err := s.borrowRepo.FindDetailByID(ctx, recordID)
	if err != nil {
		return nil, fmt.Errorf("貸出レコード詳細の取得に失敗しました: %w", err)
	}
	if detail == nil {
		return nil, model.NewBorrowNotFoundError()
	}

	return detail, nil
}

// ListActive は全アクティブ貸出を返却期限昇順で返す。
func (s *Service) ListActive(ctx context.Context) ([]model.BorrowDetail, error) {
	return s.borrowRepo.ListActive(ctx)
}

// resolveStudent は学籍番号またはメールアドレスで学生を解決する。
// 学籍番号が優先され、両方が別の学生を指す場合は拒否する。
// どちらにも一致しない場合はdetailsから新規作成する。
func (s *Service) resolveStudent(ctx context.Context, studentID string, details *StudentDetails) (*model.Student, error) {
	byStudentID, err := s.studentRepo.FindByStudentID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("学籍番号による学生の検索に失敗しました: %w", err)
	}

	var email string
	if details != nil {
		email = strings.ToLower(strings.TrimSpace(details.Email))
	}

	if byStudentID != nil {
		// 学籍番号の一致が優先。メールアドレスが別の学生を指す場合は拒否する。
		if email != "" && byStudentID.Email != email {
			byEmail, err := s.studentRepo.FindByEmail(ctx, email)
			if err != nil {
				return nil, fmt.Errorf("メールアドレスによる学生の検索に失敗しました: %w", err)
			}
			if byEmail != nil && byEmail.ID != byStudentID.ID {
				return nil, model.NewStudentMismatchError()
			}
		}
		return byStudentID, nil
	}

	if email != "" {
		byEmail, err := s.studentRepo.FindByEmail(ctx, email)
		if err != nil {
			return nil, fmt.Errorf("メールアドレスによる学生の検索に失敗しました: %w", err)
		}
		if byEmail != nil {
			// メールアドレスで見つかったが学籍番号が異なる場合は
			// 無関係なレコードに貸し出さず拒否する。
			if byEmail.StudentID != studentID {
				return nil, model.NewStudentMismatchError()
			}
			return byEmail, nil
		}
	}

	// 新規学生の自動登録
	if details == nil {
		return nil, model.NewValidationError("新規学生にはstudentDetailsが必要です")
	}
	if err := validateStudentDetails(details); err != nil {
		return nil, err
	}

	now := s.now()
	student := &model.Student{
		ID:                   uuid.NewString(),
		StudentID:            studentID,
		Name:                 details.Name,
		Email:                email,
		Department:           model.Department(details.Department),
		Year:                 model.Year(details.Year),
		MaxBooksAllowed:      s.config.DefaultMaxBooks,
		CurrentBooksBorrowed: 0,
		CreatedAt:            now,
		UpdatedAt:            now,
	}
	if details.Phone != "" {
		phone := details.Phone
		student.Phone = &phone
	}

	if err := s.studentRepo.Create(ctx, student); err != nil {
		return nil, fmt.Errorf("学生の作成に失敗しました: %w", err)
	}

	slog.Info("student auto-registered on borrow",
		slog.String("student_id", student.StudentID),
	)

	return student, nil
}

// validateStudentDetails は新規学生情報の必須項目と列挙値を検証する。
func validateStudentDetails(details *StudentDetails) *model.APIError {
	if details.Name == "" || details.Email == "" || details.Department == "" || details.Year == "" {
		return model.NewValidationError("name、email、department、yearは必須です")
	}
	if !model.IsValidDepartment(details.Department) {
		return model.NewValidationError("departmentの値が不正です")
	}
	if !model.IsValidYear(details.Year) {
		return model.NewValidationError("yearの値が不正です")
	}
	return nil
}

// CalculateFine は延滞罰金を算出する。
// 返却が期限内なら0、延滞時は ceil(延滞時間/24時間) * ratePerDay。
func CalculateFine(returnDate, dueDate time.Time, ratePerDay int) int {
	if !returnDate.After(dueDate) {
		return 0
	}

	overdueDays := int(math.Ceil(returnDate.Sub(dueDate).Hours() / 24))
	return overdueDays * ratePerDay
}

// generateToken は貸出トークンを生成する。
// 形式: プレフィックス + UNIXミリ秒 + ランダム英数字サフィックス。
// 大域的な一意性はDBの一意制約で保証し、衝突時は呼び出し側が再生成する。
func generateToken(now time.Time) string {
	suffix := make([]byte, tokenSuffixLength)
	random := make([]byte, tokenSuffixLength)
	if _, err := rand.Read(random); err != nil {
		// crypto/randが失敗する環境では時刻由来のフォールバックを使う
		for i := range random {
			random[i] = byte(now.UnixNano() >> (i * 8))
		}
	}
	for i, b := range random {
		suffix[i] = tokenSuffixCharset[int(b)%len(tokenSuffixCharset)]
	}

	return tokenPrefix + strconv.FormatInt(now.UnixMilli(), 10) + string(suffix)
}

// Package waitlist は待機リストのドメインロジックを提供する。
package waitlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/libraryportal/internal/model"
	"github.com/hitoshi/libraryportal/internal/repository"
)

// MetricsRecorder は待機リスト登録・解除のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordWaitlistJoin()
	RecordWaitlistLeave()
}

// Service は待機リストのサービス層。
// 同一蔵書内の順位が常に1..Nの連番であることを保ったまま、
// 登録と解除を提供する。
type Service struct {
	bookRepo     repository.BookRepository
	studentRepo  repository.StudentRepository
	borrowRepo   repository.BorrowRepository
	waitlistRepo repository.WaitlistRepository
	metrics      MetricsRecorder
	now          func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
// metricsはnilでもよい。
func NewService(
	bookRepo repository.BookRepository,
	studentRepo repository.StudentRepository,
	borrowRepo repository.BorrowRepository,
	waitlistRepo repository.WaitlistRepository,
	metrics MetricsRecorder,
) *Service {
	return &Service{
		bookRepo:     bookRepo,
		studentRepo:  studentRepo,
		borrowRepo:   borrowRepo,
		waitlistRepo: waitlistRepo,
		metrics:      metrics,
		now:          time.Now,
	}
}

// Add は学生を蔵書の待機リストに登録する。事前条件は次の順で検証する:
// 蔵書の存在、学生の存在、在庫0、未登録、アクティブ貸出なし。
// 順位は蔵書ごとに直列化された採番でmax+1が割り当てられる。
func (s *Service) Add(ctx context.Context, bookID, studentID string) (*model.WaitlistEntry, error) {
	book, err := s.bookRepo.FindByID(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("蔵書の取得に失敗しました: %w", err)
	}
	if book == nil {
		return nil, model.NewBookNotFoundError()
	}

	student, err := s.studentRepo.FindByID(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("学生の取得に失敗しました: %w", err)
	}
	if student == nil {
		return nil, model.NewStudentNotFoundError()
	}

	// 在庫の事前確認（確定的な判定はAddEntryがロック下で行う）
	if book.AvailableCopies > 0 {
		return nil, model.NewWaitlistNotNeededError()
	}

	existing, err := s.waitlistRepo.FindByBookAndStudent(ctx, bookID, studentID)
	if err != nil {
		return nil, fmt.Errorf("待機エントリの検索に失敗しました: %w", err)
	}
	if existing != nil {
		return nil, model.NewAlreadyOnWaitlistError()
	}

	activeBorrow, err := s.borrowRepo.FindActiveByBookAndStudent(ctx, bookID, studentID)
	if err != nil {
		return nil, fmt.Errorf("アクティブ貸出の検索に失敗しました: %w", err)
	}
	if activeBorrow != nil {
		return nil, model.NewAlreadyBorrowedError()
	}

	now := s.now()
	entry := &model.WaitlistEntry{
		ID:        uuid.NewString(),
		BookID:    bookID,
		StudentID: studentID,
		AddedDate: now,
		Notified:  false,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.waitlistRepo.AddEntry(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrBookStillAvailable) {
			return nil, model.NewWaitlistNotNeededError()
		}
		if errors.Is(err, repository.ErrDuplicateWaitlistEntry) {
			return nil, model.NewAlreadyOnWaitlistError()
		}
		return nil, fmt.Errorf("待機リストへの登録に失敗しました: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordWaitlistJoin()
	}

	slog.Info("student joined waitlist",
		slog.String("book_id", bookID),
		slog.String("student_id", studentID),
		slog.Int("position", entry.Position),
	)

	return entry, nil
}

// Remove は待機エントリを削除し、後続の順位を詰め直す。
// 削除されたエントリの蔵書名・学生名・順位を返す。
func (s *Service) Remove(ctx context.Context, id string) (*model.WaitlistRemoval, error) {
	entry, err := s.waitlistRepo.RemoveAndCompact(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("待機エントリの削除に失敗しました: %w", err)
	}
	if entry == nil {
		return nil, model.NewWaitlistNotFoundError()
	}

	removal := &model.WaitlistRemoval{Position: entry.Position}

	book, err := s.bookRepo.FindByID(ctx, entry.BookID)
	if err != nil {
		return nil, fmt.Errorf("蔵書の取得に失敗しました: %w", err)
	}
	if book != nil {
		removal.BookTitle = book.Title
	}

	student, err := s.studentRepo.FindByID(ctx, entry.StudentID)
	if err != nil {
		return nil, fmt.Errorf("学生の取得に失敗しました: %w", err)
	}
	if student != nil {
		removal.StudentName = student.Name
	}

	if s.metrics != nil {
		s.metrics.RecordWaitlistLeave()
	}

	slog.Info("student left waitlist",
		slog.String("book_id", entry.BookID),
		slog.String("student_id", entry.StudentID),
		slog.Int("position", entry.Position),
	)

	return removal, nil
}

// ListByBook は蔵書の待機リストを順位昇順で返す。
func (s *Service) ListByBook(ctx context.Context, bookID string) ([]model.WaitlistDetail, error) {
	return s.waitlistRepo.ListByBook(ctx, bookID)
}

// ListByStudent は学生の待機エントリを登録日降順で返す。
func (s *Service) ListByStudent(ctx context.Context, studentID string) ([]model.WaitlistDetail, error) {
	return s.waitlistRepo.ListByStudent(ctx, studentID)
}

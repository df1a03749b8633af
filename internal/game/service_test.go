package game

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hitoshi/libraryportal/internal/model"
	"github.com/hitoshi/libraryportal/internal/repository"
)

// --- モック ---

type mockGameRepo struct {
	createFn      func(ctx context.Context, score *model.GameScore) error
	leaderboardFn func(ctx context.Context, gameType model.GameType, limit int) ([]model.GameScoreDetail, error)
}

func (m *mockGameRepo) Create(ctx context.Context, score *model.GameScore) error {
	if m.createFn != nil {
		return m.createFn(ctx, score)
	}
	return nil
}
func (m *mockGameRepo) ListByStudent(ctx context.Context, studentID string) ([]model.GameScore, error) {
	return nil, nil
}
func (m *mockGameRepo) Leaderboard(ctx context.Context, gameType model.GameType, limit int) ([]model.GameScoreDetail, error) {
	if m.leaderboardFn != nil {
		return m.leaderboardFn(ctx, gameType, limit)
	}
	return []model.GameScoreDetail{}, nil
}

type mockStudentRepo struct {
	findByIDFn func(ctx context.Context, id string) (*model.Student, error)
}

func (m *mockStudentRepo) FindByID(ctx context.Context, id string) (*model.Student, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return &model.Student{ID: id, Name: "山田太郎"}, nil
}
func (m *mockStudentRepo) FindByStudentID(ctx context.Context, studentID string) (*model.Student, error) {
	return nil, nil
}
func (m *mockStudentRepo) FindByEmail(ctx context.Context, email string) (*model.Student, error) {
	return nil, nil
}
func (m *mockStudentRepo) Create(ctx context.Context, student *model.Student) error {
	return nil
}
func (m *mockStudentRepo) UpdateProfile(ctx context.Context, student *model.Student) error {
	return nil
}
func (m *mockStudentRepo) List(ctx context.Context, filter repository.StudentFilter) ([]model.StudentWithBorrowCount, int, error) {
	return nil, 0, nil
}

type mockBookRepo struct {
	listRandomWithImagesFn func(ctx context.Context, count int) ([]model.BookSummary, error)
}

func (m *mockBookRepo) FindByID(ctx context.Context, id string) (*model.Book, error) {
	return nil, nil
}
func (m *mockBookRepo) List(ctx context.Context, filter repository.BookFilter) ([]model.Book, int, error) {
	return nil, 0, nil
}
func (m *mockBookRepo) ListRandomAvailable(ctx context.Context, count int) ([]model.Book, error) {
	return nil, nil
}
func (m *mockBookRepo) ListRandomWithImages(ctx context.Context, count int) ([]model.BookSummary, error) {
	if m.listRandomWithImagesFn != nil {
		return m.listRandomWithImagesFn(ctx, count)
	}
	return []model.BookSummary{}, nil
}
func (m *mockBookRepo) DistinctGenres(ctx context.Context) ([]string, error) {
	return nil, nil
}
func (m *mockBookRepo) Create(ctx context.Context, book *model.Book) error {
	return nil
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

// TestService_SubmitScore_Success はスコア登録と学生展開を検証する。
func TestService_SubmitScore_Success(t *testing.T) {
	var created *model.GameScore
	gameRepo := &mockGameRepo{
		createFn: func(ctx context.Context, score *model.GameScore) error {
			created = score
			return nil
		},
	}
	svc := NewService(gameRepo, &mockStudentRepo{}, &mockBookRepo{})
	playedAt := time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return playedAt }

	detail, err := svc.SubmitScore(context.Background(), ScoreInput{
		StudentID: "row-1",
		GameType:  "counter",
		Score:     120,
		TimeTaken: 45,
	})
	if err != nil {
		t.Fatalf("SubmitScore returned error: %v", err)
	}

	if created == nil {
		t.Fatal("Create was not called")
	}
	if created.Level != 1 {
		t.Errorf("level = %d, want default 1", created.Level)
	}
	if !created.DatePlayed.Equal(playedAt) {
		t.Errorf("date_played = %v, want %v", created.DatePlayed, playedAt)
	}
	if detail.Student == nil || detail.Student.Name != "山田太郎" {
		t.Error("expected student to be expanded in the response")
	}
}

// TestService_SubmitScore_Validation はスコア登録の検証失敗を表で検証する。
func TestService_SubmitScore_Validation(t *testing.T) {
	svc := NewService(&mockGameRepo{}, &mockStudentRepo{}, &mockBookRepo{})
	ctx := context.Background()

	tests := []struct {
		name  string
		input ScoreInput
	}{
		{"学生IDなし", ScoreInput{GameType: "counter", Score: 10}},
		{"不正なゲーム種別", ScoreInput{StudentID: "row-1", GameType: "chess", Score: 10}},
		{"負のスコア", ScoreInput{StudentID: "row-1", GameType: "counter", Score: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SubmitScore(ctx, tt.input)
			assertAPIErrorCode(t, err, model.ErrCodeValidationFailed)
		})
	}
}

// TestService_SubmitScore_StudentNotFound は存在しない学生のスコア登録を検証する。
func TestService_SubmitScore_StudentNotFound(t *testing.T) {
	studentRepo := &mockStudentRepo{
		findByIDFn: func(ctx context.Context, id string) (*model.Student, error) {
			return nil, nil
		},
	}
	svc := NewService(&mockGameRepo{}, studentRepo, &mockBookRepo{})

	_, err := svc.SubmitScore(context.Background(), ScoreInput{
		StudentID: "missing",
		GameType:  "bookshelf",
		Score:     10,
	})
	assertAPIErrorCode(t, err, model.ErrCodeStudentNotFound)
}

// TestService_Leaderboard_DefaultLimit はリーダーボードのデフォルト件数を検証する。
func TestService_Leaderboard_DefaultLimit(t *testing.T) {
	var gotLimit int
	gameRepo := &mockGameRepo{
		leaderboardFn: func(ctx context.Context, gameType model.GameType, limit int) ([]model.GameScoreDetail, error) {
			gotLimit = limit
			return []model.GameScoreDetail{}, nil
		},
	}
	svc := NewService(gameRepo, &mockStudentRepo{}, &mockBookRepo{})

	if _, err := svc.Leaderboard(context.Background(), "counter", 0); err != nil {
		t.Fatalf("Leaderboard returned error: %v", err)
	}
	if gotLimit != 10 {
		t.Errorf("limit = %d, want default 10", gotLimit)
	}
}

// TestService_Leaderboard_InvalidGameType は不正なゲーム種別を検証する。
func TestService_Leaderboard_InvalidGameType(t *testing.T) {
	svc := NewService(&mockGameRepo{}, &mockStudentRepo{}, &mockBookRepo{})

	_, err := svc.Leaderboard(context.Background(), "chess", 10)
	assertAPIErrorCode(t, err, model.ErrCodeValidationFailed)
}

// TestService_CounterBooks_CountBounds はカウンターゲーム用取得冊数の境界値を検証する。
func TestService_CounterBooks_CountBounds(t *testing.T) {
	svc := NewService(&mockGameRepo{}, &mockStudentRepo{}, &mockBookRepo{})
	ctx := context.Background()

	for _, count := range []int{0, -5, 51} {
		_, err := svc.CounterBooks(ctx, count)
		if err == nil {
			t.Errorf("CounterBooks(%d) should fail", count)
			continue
		}
		assertAPIErrorCode(t, err, model.ErrCodeValidationFailed)
	}

	for _, count := range []int{1, 50} {
		if _, err := svc.CounterBooks(ctx, count); err != nil {
			t.Errorf("CounterBooks(%d) returned error: %v", count, err)
		}
	}
}

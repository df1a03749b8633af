// Package game はミニゲームスコアのドメインロジックを提供する。
package game

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/hitoshi/libraryportal/internal/model"
	"github.com/hitoshi/libraryportal/internal/repository"
)

// leaderboardDefaultLimit はリーダーボードのデフォルト件数。
const leaderboardDefaultLimit = 10

// counterBooksMax はカウンターゲーム用蔵書取得の冊数上限。
const counterBooksMax = 50

// ScoreInput はスコア登録のリクエスト。
type ScoreInput struct {
	StudentID string `json:"studentId"`
	GameType  string `json:"gameType"`
	Score     int    `json:"score"`
	Level     int    `json:"level"`
	TimeTaken int    `json:"timeTaken"`
}

// Service はミニゲームスコアのサービス層。
type Service struct {
	gameRepo    repository.GameScoreRepository
	studentRepo repository.StudentRepository
	bookRepo    repository.BookRepository
	now         func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	gameRepo repository.GameScoreRepository,
	studentRepo repository.StudentRepository,
	bookRepo repository.BookRepository,
) *Service {
	return &Service{
		gameRepo:    gameRepo,
		studentRepo: studentRepo,
		bookRepo:    bookRepo,
		now:         time.Now,
	}
}

// SubmitScore はスコアを登録し、学生を展開して返す。
func (s *Service) SubmitScore(ctx context.Context, input ScoreInput) (*model.GameScoreDetail, error) {
	if input.StudentID == "" {
		return nil, model.NewValidationError("studentIdは必須です")
	}
	if !model.IsValidGameType(input.GameType) {
		return nil, model.NewValidationError("gameTypeの値が不正です")
	}
	if input.Score < 0 {
		return nil, model.NewValidationError("scoreは0以上で指定してください")
	}

	student, err := s.studentRepo.FindByID(ctx, input.StudentID)
	if err != nil {
		return nil, fmt.Errorf("学生の取得に失敗しました: %w", err)
	}
	if student == nil {
		return nil, model.NewStudentNotFoundError()
	}

	level := input.Level
	if level < 1 {
		level = 1
	}
	timeTaken := input.TimeTaken
	if timeTaken < 0 {
		timeTaken = 0
	}

	now := s.now()
	score := &model.GameScore{
		ID:         uuid.NewString(),
		StudentID:  student.ID,
		GameType:   model.GameType(input.GameType),
		Score:      input.Score,
		Level:      level,
		TimeTaken:  timeTaken,
		DatePlayed: now,
		CreatedAt:  now,
	}

	if err := s.gameRepo.Create(ctx, score); err != nil {
		return nil, fmt.Errorf("スコアの登録に失敗しました: %w", err)
	}

	return &model.GameScoreDetail{GameScore: *score, Student: student}, nil
}

// ListByStudent は学生のスコアをスコア降順・プレイ日降順で返す。
func (s *Service) ListByStudent(ctx context.Context, studentID string) ([]model.GameScore, error) {
	return s.gameRepo.ListByStudent(ctx, studentID)
}

// Leaderboard はゲーム種別のリーダーボードを返す。
// limitが0以下の場合はデフォルト件数を使う。
func (s *Service) Leaderboard(ctx context.Context, gameType string, limit int) ([]model.GameScoreDetail, error) {
	if !model.IsValidGameType(gameType) {
		return nil, model.NewValidationError("gameTypeの値が不正です")
	}
	if limit < 1 {
		limit = leaderboardDefaultLimit
	}
	return s.gameRepo.Leaderboard(ctx, model.GameType(gameType), limit)
}

// CounterBooks はカウンターゲーム用に、画像を持つ蔵書からランダムに
// count冊をid/title/imageUrlへ投影して返す。
// countは1以上counterBooksMax以下でなければならない。
func (s *Service) CounterBooks(ctx context.Context, count int) ([]model.BookSummary, error) {
	if count < 1 || count > counterBooksMax {
		return nil, model.NewValidationError(
			fmt.Sprintf("countは1以上%d以下で指定してください", counterBooksMax))
	}
	return s.bookRepo.ListRandomWithImages(ctx, count)
}

// Package book は蔵書カタログのドメインロジックを提供する。
package book

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hitoshi/libraryportal/internal/model"
	"github.com/hitoshi/libraryportal/internal/repository"
)

// randomCountMax はランダム取得の冊数上限。
const randomCountMax = 20

// 省略時に適用するデフォルト値。
const (
	defaultImageURL    = "/images/default-book-cover.jpg"
	defaultDescription = "No description available."
	defaultLocation    = "Main Library - Shelf A"
)

// Detail は蔵書詳細のレスポンス。貸出中の学生と待機リストを展開する。
type Detail struct {
	model.Book
	CurrentlyBorrowedBy []model.ActiveBorrower `json:"currentlyBorrowedBy"`
	Waitlist            []model.WaitlistDetail `json:"waitlist"`
}

// CreateInput は蔵書登録のリクエスト。
type CreateInput struct {
	Title         string  `json:"title"`
	Author        string  `json:"author"`
	Genre         string  `json:"genre"`
	ISBN          *string `json:"isbn"`
	ImageURL      string  `json:"imageUrl"`
	Description   string  `json:"description"`
	TotalCopies   int     `json:"totalCopies"`
	Location      string  `json:"location"`
	PublishedYear *int    `json:"publishedYear"`
}

// Service は蔵書カタログのサービス層。
type Service struct {
	bookRepo     repository.BookRepository
	borrowRepo   repository.BorrowRepository
	waitlistRepo repository.WaitlistRepository
	sanitizer    *bluemonday.Policy
	now          func() time.Time
}

// NewService はServiceの新しいインスタンスを生成する。
func NewService(
	bookRepo repository.BookRepository,
	borrowRepo repository.BorrowRepository,
	waitlistRepo repository.WaitlistRepository,
) *Service {
	return &Service{
		bookRepo:     bookRepo,
		borrowRepo:   borrowRepo,
		waitlistRepo: waitlistRepo,
		sanitizer:    bluemonday.StrictPolicy(),
		now:          time.Now,
	}
}

// List は絞り込み条件に一致する蔵書をページネーション付きで返す。
func (s *Service) List(ctx context.Context, filter repository.BookFilter) ([]model.Book, int, error) {
	return s.bookRepo.List(ctx, filter)
}

// GetDetail は蔵書の詳細を貸出中学生・待機リスト付きで取得する。
func (s *Service) GetDetail(ctx context.Context, id string) (*Detail, error) {
	book, err := s.bookRepo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("蔵書の取得に失敗しました: %w", err)
	}
	if book == nil {
		return nil, model.NewBookNotFoundError()
	}

	borrowers, err := s.borrowRepo.ListActiveBorrowers(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("貸出中学生の取得に失敗しました: %w", err)
	}

	waitlist, err := s.waitlistRepo.ListByBook(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("待機リストの取得に失敗しました: %w", err)
	}

	return &Detail{
		Book:                *book,
		CurrentlyBorrowedBy: borrowers,
		Waitlist:            waitlist,
	}, nil
}

// ListByGenre は指定ジャンルの貸出可能な蔵書を返す。
func (s *Service) ListByGenre(ctx context.Context, genre string, page, limit int) ([]model.Book, int, error) {
	filter := repository.BookFilter{
		Genre:         genre,
		AvailableOnly: true,
		Page:          page,
		Limit:         limit,
	}
	return s.bookRepo.List(ctx, filter)
}

// ListRandom は貸出可能な蔵書からランダムにcount冊取得する。
// countは1以上randomCountMax以下でなければならない。
func (s *Service) ListRandom(ctx context.Context, count int) ([]model.Book, error) {
	if count < 1 || count > randomCountMax {
		return nil, model.NewValidationError(
			fmt.Sprintf("countは1以上%d以下で指定してください", randomCountMax))
	}
	return s.bookRepo.ListRandomAvailable(ctx, count)
}

// ListGenres は登録済み蔵書に実在するジャンルの一覧を返す。
func (s *Service) ListGenres(ctx context.Context) ([]string, error) {
	return s.bookRepo.DistinctGenres(ctx)
}

// Search はタイトル・著者の部分一致で蔵書を検索する。
func (s *Service) Search(ctx context.Context, query string, page, limit int) ([]model.Book, int, error) {
	filter := repository.BookFilter{
		Search: query,
		Page:   page,
		Limit:  limit,
	}
	return s.bookRepo.List(ctx, filter)
}

// Create は蔵書を登録する。自由記述項目はサニタイズし、
// 省略された項目にはデフォルト値を適用する。
func (s *Service) Create(ctx context.Context, input CreateInput) (*model.Book, error) {
	title := strings.TrimSpace(s.sanitizer.Sanitize(input.Title))
	author := strings.TrimSpace(s.sanitizer.Sanitize(input.Author))

	if title == "" || author == "" {
		return nil, model.NewValidationError("titleとauthorは必須です")
	}

	genre := input.Genre
	if genre == "" {
		genre = string(model.GenreNonFiction)
	}
	if !model.IsValidGenre(genre) {
		return nil, model.NewValidationError("genreの値が不正です")
	}

	if input.TotalCopies < 1 {
		return nil, model.NewValidationError("totalCopiesは1以上で指定してください")
	}

	now := s.now()
	book := &model.Book{
		ID:              uuid.NewString(),
		Title:           title,
		Author:          author,
		Genre:           model.Genre(genre),
		ISBN:            input.ISBN,
		ImageURL:        input.ImageURL,
		Description:     strings.TrimSpace(s.sanitizer.Sanitize(input.Description)),
		TotalCopies:     input.TotalCopies,
		AvailableCopies: input.TotalCopies,
		Location:        input.Location,
		PublishedYear:   input.PublishedYear,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if book.ImageURL == "" {
		book.ImageURL = defaultImageURL
	}
	if book.Description == "" {
		book.Description = defaultDescription
	}
	if book.Location == "" {
		book.Location = defaultLocation
	}

	if err := s.bookRepo.Create(ctx, book); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, model.NewDuplicateFieldError("ISBN")
		}
		return nil, fmt.Errorf("蔵書の登録に失敗しました: %w", err)
	}

	slog.Info("book created",
		slog.String("book_id", book.ID),
		slog.String("title", book.Title),
	)

	return book, nil
}

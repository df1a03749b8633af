package book

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/lib/pq"

	"github.com/hitoshi/libraryportal/internal/model"
	"github.com/hitoshi/libraryportal/internal/repository"
)

// --- モック ---

type mockBookRepo struct {
	findByIDFn            func(ctx context.Context, id string) (*model.Book, error)
	listRandomAvailableFn func(ctx context.Context, count int) ([]model.Book, error)
	createFn              func(ctx context.Context, book *model.Book) error
}

func (m *mockBookRepo) FindByID(ctx context.Context, id string) (*model.Book, error) {
	if m.findByIDFn != nil {
		return m.findByIDFn(ctx, id)
	}
	return nil, nil
}
func (m *mockBookRepo) List(ctx context.Context, filter repository.BookFilter) ([]model.Book, int, error) {
	return nil, 0, nil
}
func (m *mockBookRepo) ListRandomAvailable(ctx context.Context, count int) ([]model.Book, error) {
	if m.listRandomAvailableFn != nil {
		return m.listRandomAvailableFn(ctx, count)
	}
	return []model.Book{}, nil
}
func (m *mockBookRepo) ListRandomWithImages(ctx context.Context, count int) ([]model.BookSummary, error) {
	return nil, nil
}
func (m *mockBookRepo) DistinctGenres(ctx context.Context) ([]string, error) {
	return nil, nil
}
func (m *mockBookRepo) Create(ctx context.Context, book *model.Book) error {
	if m.createFn != nil {
		return m.createFn(ctx, book)
	}
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

// TestService_ListRandom_CountBounds はランダム取得冊数の境界値を検証する。
func TestService_ListRandom_CountBounds(t *testing.T) {
	svc := NewService(&mockBookRepo{}, nil, nil)
	ctx := context.Background()

	for _, count := range []int{0, -1, 21, 100} {
		_, err := svc.ListRandom(ctx, count)
		if err == nil {
			t.Errorf("ListRandom(%d) should fail", count)
			continue
		}
		assertAPIErrorCode(t, err, model.ErrCodeValidationFailed)
	}

	for _, count := range []int{1, 10, 20} {
		if _, err := svc.ListRandom(ctx, count); err != nil {
			t.Errorf("ListRandom(%d) returned error: %v", count, err)
		}
	}
}

// TestService_Create_SanitizesFreeText は自由記述項目のサニタイズを検証する。
func TestService_Create_SanitizesFreeText(t *testing.T) {
	var created *model.Book
	repo := &mockBookRepo{
		createFn: func(ctx context.Context, book *model.Book) error {
			created = book
			return nil
		},
	}
	svc := NewService(repo, nil, nil)

	input := CreateInput{
		Title:       `<script>alert("x")</script>Clean Title`,
		Author:      "Author <b>Name</b>",
		Genre:       "Fiction",
		Description: "desc<img src=x onerror=alert(1)>",
		TotalCopies: 2,
	}

	if _, err := svc.Create(context.Background(), input); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if strings.Contains(created.Title, "<script>") {
		t.Errorf("title %q should not contain script tags", created.Title)
	}
	if !strings.Contains(created.Title, "Clean Title") {
		t.Errorf("title %q should keep the text content", created.Title)
	}
	if strings.Contains(created.Author, "<b>") {
		t.Errorf("author %q should not contain markup", created.Author)
	}
	if strings.Contains(created.Description, "<img") {
		t.Errorf("description %q should not contain markup", created.Description)
	}
}

// TestService_Create_AppliesDefaults は省略項目へのデフォルト適用を検証する。
func TestService_Create_AppliesDefaults(t *testing.T) {
	var created *model.Book
	repo := &mockBookRepo{
		createFn: func(ctx context.Context, book *model.Book) error {
			created = book
			return nil
		},
	}
	svc := NewService(repo, nil, nil)

	input := CreateInput{Title: "T", Author: "A", TotalCopies: 3}
	if _, err := svc.Create(context.Background(), input); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if created.Genre != model.GenreNonFiction {
		t.Errorf("genre = %q, want default %q", created.Genre, model.GenreNonFiction)
	}
	if created.ImageURL != defaultImageURL {
		t.Errorf("image_url = %q, want %q", created.ImageURL, defaultImageURL)
	}
	if created.Description != defaultDescription {
		t.Errorf("description = %q, want %q", created.Description, defaultDescription)
	}
	if created.Location != defaultLocation {
		t.Errorf("location = %q, want %q", created.Location, defaultLocation)
	}
	if created.AvailableCopies != 3 {
		t.Errorf("available_copies = %d, want total_copies %d", created.AvailableCopies, 3)
	}
}

// TestService_Create_Validation は登録時の検証失敗を表で検証する。
func TestService_Create_Validation(t *testing.T) {
	svc := NewService(&mockBookRepo{}, nil, nil)
	ctx := context.Background()

	tests := []struct {
		name  string
		input CreateInput
	}{
		{"タイトルなし", CreateInput{Author: "A", TotalCopies: 1}},
		{"著者なし", CreateInput{Title: "T", TotalCopies: 1}},
		{"不正なジャンル", CreateInput{Title: "T", Author: "A", Genre: "Unknown", TotalCopies: 1}},
		{"総冊数0", CreateInput{Title: "T", Author: "A", TotalCopies: 0}},
		{"タイトルがタグのみ", CreateInput{Title: "<script></script>", Author: "A", TotalCopies: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.input)
			assertAPIErrorCode(t, err, model.ErrCodeValidationFailed)
		})
	}
}

// TestService_Create_DuplicateISBN はISBN一意制約違反時のConflictを検証する。
func TestService_Create_DuplicateISBN(t *testing.T) {
	repo := &mockBookRepo{
		createFn: func(ctx context.Context, book *model.Book) error {
			return &pq.Error{Code: "23505", Constraint: "books_isbn_key"}
		},
	}
	svc := NewService(repo, nil, nil)

	input := CreateInput{Title: "T", Author: "A", TotalCopies: 1}
	_, err := svc.Create(context.Background(), input)
	assertAPIErrorCode(t, err, model.ErrCodeDuplicateField)
}

// TestService_GetDetail_NotFound は存在しない蔵書の詳細取得を検証する。
func TestService_GetDetail_NotFound(t *testing.T) {
	svc := NewService(&mockBookRepo{}, nil, nil)

	_, err := svc.GetDetail(context.Background(), "missing")
	assertAPIErrorCode(t, err, model.ErrCodeBookNotFound)
}

package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// seedBook はシード投入用の蔵書データ。
type seedBook struct {
	Title           string
	Author          string
	Genre           string
	ISBN            string
	ImageURL        string
	Description     string
	TotalCopies     int
	AvailableCopies int
	PublishedYear   int
}

// sampleBooks は初期投入するサンプル蔵書。
var sampleBooks = []seedBook{
	{
		Title:           "Introduction to Mechanical Engineering",
		Author:          "Dr. John Smith",
		Genre:           "Mechanical",
		ISBN:            "978-0123456789",
		ImageURL:        "/images/mechanical-1.jpg",
		Description:     "Comprehensive guide to mechanical engineering fundamentals.",
		TotalCopies:     5,
		AvailableCopies: 3,
		PublishedYear:   2022,
	},
	{
		Title:           "Electrical Circuits and Systems",
		Author:          "Prof. Sarah Johnson",
		Genre:           "Electrical",
		ISBN:            "978-0123456790",
		ImageURL:        "/images/electrical-1.jpg",
		Description:     "Detailed analysis of electrical circuits and system design.",
		TotalCopies:     3,
		AvailableCopies: 2,
		PublishedYear:   2021,
	},
	{
		Title:           "Business Strategy for Beginners",
		Author:          "Michael Chen",
		Genre:           "Business",
		ISBN:            "978-0123456791",
		ImageURL:        "/images/business-1.jpg",
		Description:     "Learn fundamental business strategies and applications.",
		TotalCopies:     4,
		AvailableCopies: 4,
		PublishedYear:   2023,
	},
	{
		Title:           "The Science of Everything",
		Author:          "Dr. Emily Wilson",
		Genre:           "Science",
		ISBN:            "978-0123456792",
		ImageURL:        "/images/science-1.jpg",
		Description:     "Exploring the wonders of science in everyday life.",
		TotalCopies:     2,
		AvailableCopies: 1,
		PublishedYear:   2020,
	},
}

// SeedBooks はサンプル蔵書を投入する。
// 既存の蔵書をすべて削除してから挿入するため、開発環境専用。
// 投入した冊数を返す。
func SeedBooks(ctx context.Context, db *sqlx.DB) (int, error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 既存データを先に消す（参照順）
	for _, table := range []string{"game_scores", "waitlist_entries", "borrow_records", "books"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return 0, fmt.Errorf("failed to clear table %s: %w", table, err)
		}
	}

	for _, b := range sampleBooks {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO books (id, title, author, genre, isbn, image_url, description,
			                    total_copies, available_copies, published_year)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			uuid.NewString(), b.Title, b.Author, b.Genre, b.ISBN, b.ImageURL,
			b.Description, b.TotalCopies, b.AvailableCopies, b.PublishedYear,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to insert seed book %q: %w", b.Title, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return len(sampleBooks), nil
}

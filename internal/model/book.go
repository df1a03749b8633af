// Package model はドメインモデルを定義する。
package model

import "time"

// Book は蔵書を表す。
// AvailableCopiesは貸出中でない物理コピー数の非正規化カウンタで、
// 貸出・返却のトランザクション内で必ず更新される。
type Book struct {
	ID              string    `db:"id" json:"id"`
	Title           string    `db:"title" json:"title"`
	Author          string    `db:"author" json:"author"`
	Genre           Genre     `db:"genre" json:"genre"`
	ISBN            *string   `db:"isbn" json:"isbn,omitempty"`
	ImageURL        string    `db:"image_url" json:"imageUrl"`
	Description     string    `db:"description" json:"description"`
	TotalCopies     int       `db:"total_copies" json:"totalCopies"`
	AvailableCopies int       `db:"available_copies" json:"availableCopies"`
	Location        string    `db:"location" json:"location"`
	PublishedYear   *int      `db:"published_year" json:"publishedYear,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time `db:"updated_at" json:"updatedAt"`
}

// Genre は蔵書のジャンルを表す。
type Genre string

// 固定8カテゴリのジャンル。
const (
	GenreMechanical Genre = "Mechanical"
	GenreElectrical Genre = "Electrical"
	GenreBusiness   Genre = "Business"
	GenreNonFiction Genre = "Non-Fiction"
	GenreFiction    Genre = "Fiction"
	GenreScience    Genre = "Science"
	GenreTechnology Genre = "Technology"
	GenreArts       Genre = "Arts"
)

// AllGenres は定義済みジャンルの一覧を返す。
func AllGenres() []Genre {
	return []Genre{
		GenreMechanical, GenreElectrical, GenreBusiness, GenreNonFiction,
		GenreFiction, GenreScience, GenreTechnology, GenreArts,
	}
}

// IsValidGenre は指定された文字列が定義済みジャンルかどうかを返す。
func IsValidGenre(s string) bool {
	for _, g := range AllGenres() {
		if string(g) == s {
			return true
		}
	}
	return false
}

// BookSummary はゲーム用に投影された蔵書の最小表現。
type BookSummary struct {
	ID       string `db:"id" json:"id"`
	Title    string `db:"title" json:"title"`
	ImageURL string `db:"image_url" json:"imageUrl"`
}

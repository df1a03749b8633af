package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect登録
	"github.com/jmoiron/sqlx"

	"github.com/hitoshi/libraryportal/internal/model"
)

// dialectPostgres はgoquのPostgreSQL方言名。
const dialectPostgres = "postgres"

// PostgresBookRepo はPostgreSQLを使用した蔵書リポジトリ。
type PostgresBookRepo struct {
	db *sqlx.DB
}

// NewPostgresBookRepo はPostgresBookRepoを生成する。
func NewPostgresBookRepo(db *sqlx.DB) *PostgresBookRepo {
	return &PostgresBookRepo{db: db}
}

// bookColumns は蔵書テーブルの全カラム。
const bookColumns = `id, title, author, genre, isbn, image_url, description,
       total_copies, available_copies, location, published_year, created_at, updated_at`

// FindByID は指定IDの蔵書を取得する。見つからない場合はnilを返す。
func (r *PostgresBookRepo) FindByID(ctx context.Context, id string) (*model.Book, error) {
	book := &model.Book{}
	err := r.db.GetContext(ctx, book,
		`SELECT `+bookColumns+` FROM books WHERE id = $1`,
		id,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("蔵書の取得に失敗しました: %w", err)
	}

	return book, nil
}

// List は絞り込み条件に一致する蔵書をタイトル昇順・ページネーション付きで返す。
// 動的なWHERE句はgoquで組み立てる。
func (r *PostgresBookRepo) List(ctx context.Context, filter BookFilter) ([]model.Book, int, error) {
	conds := bookFilterConditions(filter)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 10
	}

	selectSQL, _, err := goqu.Dialect(dialectPostgres).
		From("books").
		Select(goqu.I("id"), goqu.I("title"), goqu.I("author"), goqu.I("genre"),
			goqu.I("isbn"), goqu.I("image_url"), goqu.I("description"),
			goqu.I("total_copies"), goqu.I("available_copies"), goqu.I("location"),
			goqu.I("published_year"), goqu.I("created_at"), goqu.I("updated_at")).
		Where(conds...).
		Order(goqu.I("title").Asc()).
		Limit(uint(limit)).
		Offset(uint((page - 1) * limit)).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("蔵書一覧クエリの構築に失敗しました: %w", err)
	}

	books := []model.Book{}
	if err := r.db.SelectContext(ctx, &books, selectSQL); err != nil {
		return nil, 0, fmt.Errorf("蔵書一覧の取得に失敗しました: %w", err)
	}

	countSQL, _, err := goqu.Dialect(dialectPostgres).
		From("books").
		Select(goqu.COUNT("*")).
		Where(conds...).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("蔵書件数クエリの構築に失敗しました: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, countSQL); err != nil {
		return nil, 0, fmt.Errorf("蔵書件数の取得に失敗しました: %w", err)
	}

	return books, total, nil
}

// bookFilterConditions はBookFilterをgoquのWHERE条件式に変換する。
func bookFilterConditions(filter BookFilter) []goqu.Expression {
	conds := []goqu.Expression{}

	if filter.Genre != "" && filter.Genre != "all" {
		conds = append(conds, goqu.C("genre").Eq(filter.Genre))
	}

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		conds = append(conds, goqu.Or(
			goqu.C("title").ILike(pattern),
			goqu.C("author").ILike(pattern),
		))
	}

	if filter.AvailableOnly {
		conds = append(conds, goqu.C("available_copies").Gt(0))
	}

	return conds
}

// ListRandomAvailable は貸出可能な蔵書からランダムにcount冊取得する。
func (r *PostgresBookRepo) ListRandomAvailable(ctx context.Context, count int) ([]model.Book, error) {
	books := []model.Book{}
	err := r.db.SelectContext(ctx, &books,
		`SELECT `+bookColumns+` FROM books
		 WHERE available_copies > 0
		 ORDER BY random()
		 LIMIT $1`,
		count,
	)
	if err != nil {
		return nil, fmt.Errorf("ランダム蔵書の取得に失敗しました: %w", err)
	}

	return books, nil
}

// ListRandomWithImages は画像URLを持つ蔵書からランダムにcount冊、最小投影で取得する。
func (r *PostgresBookRepo) ListRandomWithImages(ctx context.Context, count int) ([]model.BookSummary, error) {
	books := []model.BookSummary{}
	err := r.db.SelectContext(ctx, &books,
		`SELECT id, title, image_url FROM books
		 WHERE image_url <> ''
		 ORDER BY random()
		 LIMIT $1`,
		count,
	)
	if err != nil {
		return nil, fmt.Errorf("ゲーム用蔵書の取得に失敗しました: %w", err)
	}

	return books, nil
}

// DistinctGenres は登録済み蔵書に実在するジャンルの一覧をソートして返す。
func (r *PostgresBookRepo) DistinctGenres(ctx context.Context) ([]string, error) {
	genres := []string{}
	err := r.db.SelectContext(ctx, &genres,
		`SELECT DISTINCT genre FROM books ORDER BY genre`,
	)
	if err != nil {
		return nil, fmt.Errorf("ジャンル一覧の取得に失敗しました: %w", err)
	}

	return genres, nil
}

// Create は蔵書を作成する。
func (r *PostgresBookRepo) Create(ctx context.Context, book *model.Book) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO books (id, title, author, genre, isbn, image_url, description,
		                    total_copies, available_copies, location, published_year,
		                    created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		book.ID, book.Title, book.Author, book.Genre, book.ISBN, book.ImageURL,
		book.Description, book.TotalCopies, book.AvailableCopies, book.Location,
		book.PublishedYear, book.CreatedAt, book.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("蔵書の作成に失敗しました: %w", err)
	}

	return nil
}

// compile-time interface check
var _ BookRepository = (*PostgresBookRepo)(nil)

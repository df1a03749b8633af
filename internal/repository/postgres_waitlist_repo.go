package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/hitoshi/libraryportal/internal/model"
)

// PostgresWaitlistRepo はPostgreSQLを使用した待機リストリポジトリ。
// 順位の採番と詰め直しはトランザクション内で行い、
// 同一蔵書の順位が常に1..Nの連番であることを保つ。
type PostgresWaitlistRepo struct {
	db *sqlx.DB
}

// NewPostgresWaitlistRepo はPostgresWaitlistRepoを生成する。
func NewPostgresWaitlistRepo(db *sqlx.DB) *PostgresWaitlistRepo {
	return &PostgresWaitlistRepo{db: db}
}

// waitlistColumns は待機リストテーブルの全カラム。
const waitlistColumns = `id, book_id, student_id, position, added_date, notified,
       notification_date, created_at, updated_at`

// waitlistDetailColumns は待機エントリ・蔵書・学生を結合した取得用カラム。
const waitlistDetailColumns = `w.id, w.book_id, w.student_id, w.position, w.added_date,
       w.notified, w.notification_date, w.created_at, w.updated_at,
       b.id, b.title, b.author, b.genre, b.isbn, b.image_url, b.description,
       b.total_copies, b.available_copies, b.location, b.published_year, b.created_at, b.updated_at,
       s.id, s.student_id, s.name, s.email, s.phone, s.department, s.year,
       s.max_books_allowed, s.current_books_borrowed, s.created_at, s.updated_at`

// scanWaitlistDetail はwaitlistDetailColumnsの並びで1行をスキャンする。
func scanWaitlistDetail(row rowScanner) (*model.WaitlistDetail, error) {
	d := &model.WaitlistDetail{
		Book:    &model.Book{},
		Student: &model.Student{},
	}

	err := row.Scan(
		&d.ID, &d.BookID, &d.StudentID, &d.Position, &d.AddedDate,
		&d.Notified, &d.NotificationDate, &d.CreatedAt, &d.UpdatedAt,
		&d.Book.ID, &d.Book.Title, &d.Book.Author, &d.Book.Genre, &d.Book.ISBN,
		&d.Book.ImageURL, &d.Book.Description, &d.Book.TotalCopies,
		&d.Book.AvailableCopies, &d.Book.Location, &d.Book.PublishedYear,
		&d.Book.CreatedAt, &d.Book.UpdatedAt,
		&d.Student.ID, &d.Student.StudentID, &d.Student.Name, &d.Student.Email,
		&d.Student.Phone, &d.Student.Department, &d.Student.Year,
		&d.Student.MaxBooksAllowed, &d.Student.CurrentBooksBorrowed,
		&d.Student.CreatedAt, &d.Student.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return d, nil
}

// FindByID は指定IDの待機エントリを取得する。見つからない場合はnilを返す。
func (r *PostgresWaitlistRepo) FindByID(ctx context.Context, id string) (*model.WaitlistEntry, error) {
	entry := &model.WaitlistEntry{}
	err := r.db.GetContext(ctx, entry,
		`SELECT `+waitlistColumns+` FROM waitlist_entries WHERE id = $1`,
		id,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("待機エントリの取得に失敗しました: %w", err)
	}

	return entry, nil
}

// FindByBookAndStudent は(蔵書, 学生)の待機エントリを検索する。
func (r *PostgresWaitlistRepo) FindByBookAndStudent(ctx context.Context, bookID, studentID string) (*model.WaitlistEntry, error) {
	entry := &model.WaitlistEntry{}
	err := r.db.GetContext(ctx, entry,
		`SELECT `+waitlistColumns+` FROM waitlist_entries
		 WHERE book_id = $1 AND student_id = $2`,
		bookID, studentID,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("待機エントリの検索に失敗しました: %w", err)
	}

	return entry, nil
}

// AddEntry は待機エントリを単一トランザクションで追加する。
// 蔵書行のFOR UPDATEロックにより、同一蔵書への同時登録が
// 同じ順位を採番することを防ぐ。
func (r *PostgresWaitlistRepo) AddEntry(ctx context.Context, entry *model.WaitlistEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. 蔵書行をロックし、在庫0をロック下で再検証する
	var availableCopies int
	err = tx.QueryRowContext(ctx,
		`SELECT available_copies FROM books WHERE id = $1 FOR UPDATE`,
		entry.BookID,
	).Scan(&availableCopies)
	if err != nil {
		return fmt.Errorf("蔵書行のロックに失敗しました: %w", err)
	}
	if availableCopies > 0 {
		return ErrBookStillAvailable
	}

	// 2. 次の順位を採番（ロック下なので競合しない）
	var nextPosition int
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(position), 0) + 1 FROM waitlist_entries WHERE book_id = $1`,
		entry.BookID,
	).Scan(&nextPosition)
	if err != nil {
		return fmt.Errorf("待機順位の採番に失敗しました: %w", err)
	}

	// 3. エントリを挿入
	_, err = tx.ExecContext(ctx,
		`INSERT INTO waitlist_entries (id, book_id, student_id, position, added_date,
		                               notified, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.ID, entry.BookID, entry.StudentID, nextPosition, entry.AddedDate,
		entry.Notified, entry.CreatedAt, entry.UpdatedAt,
	)
	if err != nil {
		if uniqueViolationConstraint(err) == "waitlist_entries_pair_key" {
			return ErrDuplicateWaitlistEntry
		}
		return fmt.Errorf("待機エントリの作成に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	entry.Position = nextPosition
	return nil
}

// RemoveAndCompact は待機エントリの削除と後続順位の詰め直しを
// 単一トランザクションで実行する。連番不変条件がトランザクション外から
// 破れて見えることはない。
func (r *PostgresWaitlistRepo) RemoveAndCompact(ctx context.Context, id string) (*model.WaitlistEntry, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. 対象エントリを取得
	entry := &model.WaitlistEntry{}
	err = tx.GetContext(ctx, entry,
		`SELECT `+waitlistColumns+` FROM waitlist_entries WHERE id = $1 FOR UPDATE`,
		id,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("待機エントリの取得に失敗しました: %w", err)
	}

	// 2. 削除
	_, err = tx.ExecContext(ctx,
		`DELETE FROM waitlist_entries WHERE id = $1`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("待機エントリの削除に失敗しました: %w", err)
	}

	// 3. 後続の順位を1つ繰り上げる
	_, err = tx.ExecContext(ctx,
		`UPDATE waitlist_entries
		 SET position = position - 1, updated_at = now()
		 WHERE book_id = $1 AND position > $2`,
		entry.BookID, entry.Position,
	)
	if err != nil {
		return nil, fmt.Errorf("待機順位の詰め直しに失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return entry, nil
}

// listDetails は結合クエリを実行してWaitlistDetailのスライスを返す。
func (r *PostgresWaitlistRepo) listDetails(ctx context.Context, query string, args ...any) ([]model.WaitlistDetail, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := []model.WaitlistDetail{}
	for rows.Next() {
		d, err := scanWaitlistDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, *d)
	}

	return details, rows.Err()
}

// ListByBook は蔵書の待機リストを順位昇順で返す。
func (r *PostgresWaitlistRepo) ListByBook(ctx context.Context, bookID string) ([]model.WaitlistDetail, error) {
	details, err := r.listDetails(ctx,
		`SELECT `+waitlistDetailColumns+`
		 FROM waitlist_entries w
		 JOIN books b ON b.id = w.book_id
		 JOIN students s ON s.id = w.student_id
		 WHERE w.book_id = $1
		 ORDER BY w.position ASC`,
		bookID,
	)
	if err != nil {
		return nil, fmt.Errorf("蔵書の待機リスト取得に失敗しました: %w", err)
	}

	return details, nil
}

// ListByStudent は学生の待機エントリを登録日降順で返す。
func (r *PostgresWaitlistRepo) ListByStudent(ctx context.Context, studentID string) ([]model.WaitlistDetail, error) {
	details, err := r.listDetails(ctx,
		`SELECT `+waitlistDetailColumns+`
		 FROM waitlist_entries w
		 JOIN books b ON b.id = w.book_id
		 JOIN students s ON s.id = w.student_id
		 WHERE w.student_id = $1
		 ORDER BY w.added_date DESC`,
		studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("学生の待機エントリ取得に失敗しました: %w", err)
	}

	return details, nil
}

// ListByStudentAsc は学生の待機エントリを登録日昇順で返す。
func (r *PostgresWaitlistRepo) ListByStudentAsc(ctx context.Context, studentID string) ([]model.WaitlistDetail, error) {
	details, err := r.listDetails(ctx,
		`SELECT `+waitlistDetailColumns+`
		 FROM waitlist_entries w
		 JOIN books b ON b.id = w.book_id
		 JOIN students s ON s.id = w.student_id
		 WHERE w.student_id = $1
		 ORDER BY w.added_date ASC`,
		studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("学生の待機エントリ取得に失敗しました: %w", err)
	}

	return details, nil
}

// CountByStudent は学生の待機エントリ数を返す。
func (r *PostgresWaitlistRepo) CountByStudent(ctx context.Context, studentID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM waitlist_entries WHERE student_id = $1`,
		studentID,
	)
	if err != nil {
		return 0, fmt.Errorf("待機エントリ数の取得に失敗しました: %w", err)
	}

	return count, nil
}

// compile-time interface check
var _ WaitlistRepository = (*PostgresWaitlistRepo)(nil)

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/hitoshi/libraryportal/internal/model"
)

// PostgresBorrowRepo はPostgreSQLを使用した貸出レコードリポジトリ。
// 在庫・学生カウンタの更新はレコード操作と同一トランザクションで行う。
type PostgresBorrowRepo struct {
	db *sqlx.DB
}

// NewPostgresBorrowRepo はPostgresBorrowRepoを生成する。
func NewPostgresBorrowRepo(db *sqlx.DB) *PostgresBorrowRepo {
	return &PostgresBorrowRepo{db: db}
}

// borrowColumns は貸出レコードテーブルの全カラム。
const borrowColumns = `id, book_id, student_id, borrow_date, due_date, return_date,
       token, status, fine_amount, created_at, updated_at`

// borrowDetailColumns は貸出レコード・蔵書・学生を結合した取得用カラム。
const borrowDetailColumns = `br.id, br.book_id, br.student_id, br.borrow_date, br.due_date,
       br.return_date, br.token, br.status, br.fine_amount, br.created_at, br.updated_at,
       b.id, b.title, b.author, b.genre, b.isbn, b.image_url, b.description,
       b.total_copies, b.available_copies, b.location, b.published_year, b.created_at, b.updated_at,
       s.id, s.student_id, s.name, s.email, s.phone, s.department, s.year,
       s.max_books_allowed, s.current_books_borrowed, s.created_at, s.updated_at`

// rowScanner はsql.Rowとsql.Rowsの共通スキャンインターフェース。
type rowScanner interface {
	Scan(dest ...any) error
}

// scanBorrowDetail はborrowDetailColumnsの並びで1行をスキャンする。
func scanBorrowDetail(row rowScanner) (*model.BorrowDetail, error) {
	d := &model.BorrowDetail{
		Book:    &model.Book{},
		Student: &model.Student{},
	}

	err := row.Scan(
		&d.ID, &d.BookID, &d.StudentID, &d.BorrowDate, &d.DueDate,
		&d.ReturnDate, &d.Token, &d.Status, &d.FineAmount, &d.CreatedAt, &d.UpdatedAt,
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

// FindByID は指定IDの貸出レコードを取得する。見つからない場合はnilを返す。
func (r *PostgresBorrowRepo) FindByID(ctx context.Context, id string) (*model.BorrowRecord, error) {
	record := &model.BorrowRecord{}
	err := r.db.GetContext(ctx, record,
		`SELECT `+borrowColumns+` FROM borrow_records WHERE id = $1`,
		id,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("貸出レコードの取得に失敗しました: %w", err)
	}

	return record, nil
}

// FindDetailByID は指定IDの貸出レコードをBook/Student展開付きで取得する。
func (r *PostgresBorrowRepo) FindDetailByID(ctx context.Context, id string) (*model.BorrowDetail, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+borrowDetailColumns+`
		 FROM borrow_records br
		 JOIN books b ON b.id = br.book_id
		 JOIN students s ON s.id = br.student_id
		 WHERE br.id = $1`,
		id,
	)

	detail, err := scanBorrowDetail(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("貸出レコード詳細の取得に失敗しました: %w", err)
	}

	return detail, nil
}

// FindActiveByBookAndStudent は(蔵書, 学生)のアクティブ貸出を検索する。
func (r *PostgresBorrowRepo) FindActiveByBookAndStudent(ctx context.Context, bookID, studentID string) (*model.BorrowRecord, error) {
	record := &model.BorrowRecord{}
	err := r.db.GetContext(ctx, record,
		`SELECT `+borrowColumns+` FROM borrow_records
		 WHERE book_id = $1 AND student_id = $2 AND status = 'active'`,
		bookID, studentID,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("アクティブ貸出の検索に失敗しました: %w", err)
	}

	return record, nil
}

// CountActiveByStudent は学生のアクティブ貸出数を返す。
func (r *PostgresBorrowRepo) CountActiveByStudent(ctx context.Context, studentID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM borrow_records WHERE student_id = $1 AND status = 'active'`,
		studentID,
	)
	if err != nil {
		return 0, fmt.Errorf("アクティブ貸出数の取得に失敗しました: %w", err)
	}

	return count, nil
}

// CountByStudent は学生の全貸出レコード数を返す。
func (r *PostgresBorrowRepo) CountByStudent(ctx context.Context, studentID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM borrow_records WHERE student_id = $1`,
		studentID,
	)
	if err != nil {
		return 0, fmt.Errorf("貸出レコード数の取得に失敗しました: %w", err)
	}

	return count, nil
}

// listDetails は結合クエリを実行してBorrowDetailのスライスを返す。
func (r *PostgresBorrowRepo) listDetails(ctx context.Context, query string, args ...any) ([]model.BorrowDetail, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := []model.BorrowDetail{}
	for rows.Next() {
		d, err := scanBorrowDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, *d)
	}

	return details, rows.Err()
}

// ListActive は全アクティブ貸出を返却期限昇順で返す。
func (r *PostgresBorrowRepo) ListActive(ctx context.Context) ([]model.BorrowDetail, error) {
	details, err := r.listDetails(ctx,
		`SELECT `+borrowDetailColumns+`
		 FROM borrow_records br
		 JOIN books b ON b.id = br.book_id
		 JOIN students s ON s.id = br.student_id
		 WHERE br.status = 'active'
		 ORDER BY br.due_date ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("アクティブ貸出一覧の取得に失敗しました: %w", err)
	}

	return details, nil
}

// ListActiveByStudent は学生のアクティブ貸出を返却期限昇順で返す。
func (r *PostgresBorrowRepo) ListActiveByStudent(ctx context.Context, studentID string) ([]model.BorrowDetail, error) {
	details, err := r.listDetails(ctx,
		`SELECT `+borrowDetailColumns+`
		 FROM borrow_records br
		 JOIN books b ON b.id = br.book_id
		 JOIN students s ON s.id = br.student_id
		 WHERE br.student_id = $1 AND br.status = 'active'
		 ORDER BY br.due_date ASC`,
		studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("学生のアクティブ貸出一覧の取得に失敗しました: %w", err)
	}

	return details, nil
}

// ListByStudent は学生の貸出履歴を貸出日降順で最大limit件返す。
func (r *PostgresBorrowRepo) ListByStudent(ctx context.Context, studentID string, limit int) ([]model.BorrowDetail, error) {
	details, err := r.listDetails(ctx,
		`SELECT `+borrowDetailColumns+`
		 FROM borrow_records br
		 JOIN books b ON b.id = br.book_id
		 JOIN students s ON s.id = br.student_id
		 WHERE br.student_id = $1
		 ORDER BY br.borrow_date DESC
		 LIMIT $2`,
		studentID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("貸出履歴の取得に失敗しました: %w", err)
	}

	return details, nil
}

// ListActiveBorrowers は蔵書のアクティブ貸出中学生の一覧を返す。
func (r *PostgresBorrowRepo) ListActiveBorrowers(ctx context.Context, bookID string) ([]model.ActiveBorrower, error) {
	borrowers := []model.ActiveBorrower{}
	err := r.db.SelectContext(ctx, &borrowers,
		`SELECT br.id AS record_id, s.name AS student_name,
		        s.student_id AS student_id, br.due_date AS due_date
		 FROM borrow_records br
		 JOIN students s ON s.id = br.student_id
		 WHERE br.book_id = $1 AND br.status = 'active'
		 ORDER BY br.due_date ASC`,
		bookID,
	)
	if err != nil {
		return nil, fmt.Errorf("貸出中学生一覧の取得に失敗しました: %w", err)
	}

	return borrowers, nil
}

// ExecuteBorrow は貸出を単一トランザクションで実行する。
// 在庫の条件付きデクリメントを最初に行うことで、同時リクエストが
// 最後の1冊を同時に借りようとしても一方だけが成功する。
func (r *PostgresBorrowRepo) ExecuteBorrow(ctx context.Context, record *model.BorrowRecord) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. 在庫を条件付きでデクリメント（available_copies > 0 のときのみ）
	result, err := tx.ExecContext(ctx,
		`UPDATE books
		 SET available_copies = available_copies - 1, updated_at = now()
		 WHERE id = $1 AND available_copies > 0`,
		record.BookID,
	)
	if err != nil {
		return fmt.Errorf("在庫の更新に失敗しました: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return ErrBookUnavailable
	}

	// 2. 貸出レコードを挿入
	_, err = tx.ExecContext(ctx,
		`INSERT INTO borrow_records (id, book_id, student_id, borrow_date, due_date,
		                             token, status, fine_amount, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		record.ID, record.BookID, record.StudentID, record.BorrowDate, record.DueDate,
		record.Token, record.Status, record.FineAmount, record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		switch uniqueViolationConstraint(err) {
		case "borrow_records_token_key":
			return ErrDuplicateToken
		case "borrow_records_active_pair_idx":
			return ErrDuplicateActiveBorrow
		}
		return fmt.Errorf("貸出レコードの作成に失敗しました: %w", err)
	}

	// 3. 学生カウンタをインクリメント
	_, err = tx.ExecContext(ctx,
		`UPDATE students
		 SET current_books_borrowed = current_books_borrowed + 1, updated_at = now()
		 WHERE id = $1`,
		record.StudentID,
	)
	if err != nil {
		return fmt.Errorf("学生カウンタの更新に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// ExecuteReturn は返却を単一トランザクションで実行する。
// status <> 'returned' を条件にした更新で二重返却を排除する。
func (r *PostgresBorrowRepo) ExecuteReturn(ctx context.Context, id string, returnDate time.Time, fineAmount int) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 1. レコードを返却済みに更新（返却済みなら0行）
	var bookID, studentID string
	err = tx.QueryRowContext(ctx,
		`UPDATE borrow_records
		 SET status = 'returned', return_date = $2, fine_amount = $3, updated_at = now()
		 WHERE id = $1 AND status <> 'returned'
		 RETURNING book_id, student_id`,
		id, returnDate, fineAmount,
	).Scan(&bookID, &studentID)
	if err == sql.ErrNoRows {
		return ErrAlreadyReturned
	}
	if err != nil {
		return fmt.Errorf("貸出レコードの更新に失敗しました: %w", err)
	}

	// 2. 在庫カウンタをインクリメント（CHECK制約が上限を保証）
	_, err = tx.ExecContext(ctx,
		`UPDATE books
		 SET available_copies = available_copies + 1, updated_at = now()
		 WHERE id = $1`,
		bookID,
	)
	if err != nil {
		return fmt.Errorf("在庫の更新に失敗しました: %w", err)
	}

	// 3. 学生カウンタをデクリメント（0未満にはしない）
	_, err = tx.ExecContext(ctx,
		`UPDATE students
		 SET current_books_borrowed = current_books_borrowed - 1, updated_at = now()
		 WHERE id = $1 AND current_books_borrowed > 0`,
		studentID,
	)
	if err != nil {
		return fmt.Errorf("学生カウンタの更新に失敗しました: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// compile-time interface check
var _ BorrowRepository = (*PostgresBorrowRepo)(nil)

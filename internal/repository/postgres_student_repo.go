package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"

	"github.com/hitoshi/libraryportal/internal/model"
)

// PostgresStudentRepo はPostgreSQLを使用した学生リポジトリ。
type PostgresStudentRepo struct {
	db *sqlx.DB
}

// NewPostgresStudentRepo はPostgresStudentRepoを生成する。
func NewPostgresStudentRepo(db *sqlx.DB) *PostgresStudentRepo {
	return &PostgresStudentRepo{db: db}
}

// studentColumns は学生テーブルの全カラム。
const studentColumns = `id, student_id, name, email, phone, department, year,
       max_books_allowed, current_books_borrowed, created_at, updated_at`

// FindByID は指定行IDの学生を取得する。見つからない場合はnilを返す。
func (r *PostgresStudentRepo) FindByID(ctx context.Context, id string) (*model.Student, error) {
	student := &model.Student{}
	err := r.db.GetContext(ctx, student,
		`SELECT `+studentColumns+` FROM students WHERE id = $1`,
		id,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("学生の取得に失敗しました: %w", err)
	}

	return student, nil
}

// FindByStudentID は学籍番号で学生を検索する。見つからない場合はnilを返す。
func (r *PostgresStudentRepo) FindByStudentID(ctx context.Context, studentID string) (*model.Student, error) {
	student := &model.Student{}
	err := r.db.GetContext(ctx, student,
		`SELECT `+studentColumns+` FROM students WHERE student_id = $1`,
		studentID,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("学籍番号による学生の検索に失敗しました: %w", err)
	}

	return student, nil
}

// FindByEmail はメールアドレスで学生を検索する。見つからない場合はnilを返す。
func (r *PostgresStudentRepo) FindByEmail(ctx context.Context, email string) (*model.Student, error) {
	student := &model.Student{}
	err := r.db.GetContext(ctx, student,
		`SELECT `+studentColumns+` FROM students WHERE email = $1`,
		email,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("メールアドレスによる学生の検索に失敗しました: %w", err)
	}

	return student, nil
}

// Create は学生を作成する。
func (r *PostgresStudentRepo) Create(ctx context.Context, student *model.Student) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO students (id, student_id, name, email, phone, department, year,
		                       max_books_allowed, current_books_borrowed, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		student.ID, student.StudentID, student.Name, student.Email, student.Phone,
		student.Department, student.Year, student.MaxBooksAllowed,
		student.CurrentBooksBorrowed, student.CreatedAt, student.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("学生の作成に失敗しました: %w", err)
	}

	return nil
}

// UpdateProfile は氏名・電話番号・学科・学年を更新する。
func (r *PostgresStudentRepo) UpdateProfile(ctx context.Context, student *model.Student) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE students
		 SET name = $2, phone = $3, department = $4, year = $5, updated_at = now()
		 WHERE id = $1`,
		student.ID, student.Name, student.Phone, student.Department, student.Year,
	)
	if err != nil {
		return fmt.Errorf("学生情報の更新に失敗しました: %w", err)
	}

	return nil
}

// List は絞り込み条件に一致する学生を氏名昇順で返す。
// 各行には相関サブクエリでアクティブ貸出数を付与する。
func (r *PostgresStudentRepo) List(ctx context.Context, filter StudentFilter) ([]model.StudentWithBorrowCount, int, error) {
	conds := studentFilterConditions(filter)

	page := filter.Page
	if page < 1 {
		page = 1
	}
	limit := filter.Limit
	if limit < 1 {
		limit = 10
	}

	activeBorrows := goqu.L(
		`(SELECT COUNT(*) FROM borrow_records br
		  WHERE br.student_id = students.id AND br.status = 'active')`,
	).As("current_borrows")

	selectSQL, _, err := goqu.Dialect(dialectPostgres).
		From("students").
		Select(goqu.I("id"), goqu.I("student_id"), goqu.I("name"), goqu.I("email"),
			goqu.I("phone"), goqu.I("department"), goqu.I("year"),
			goqu.I("max_books_allowed"), goqu.I("current_books_borrowed"),
			goqu.I("created_at"), goqu.I("updated_at"), activeBorrows).
		Where(conds...).
		Order(goqu.I("name").Asc()).
		Limit(uint(limit)).
		Offset(uint((page - 1) * limit)).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("学生一覧クエリの構築に失敗しました: %w", err)
	}

	students := []model.StudentWithBorrowCount{}
	if err := r.db.SelectContext(ctx, &students, selectSQL); err != nil {
		return nil, 0, fmt.Errorf("学生一覧の取得に失敗しました: %w", err)
	}

	countSQL, _, err := goqu.Dialect(dialectPostgres).
		From("students").
		Select(goqu.COUNT("*")).
		Where(conds...).
		ToSQL()
	if err != nil {
		return nil, 0, fmt.Errorf("学生件数クエリの構築に失敗しました: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, countSQL); err != nil {
		return nil, 0, fmt.Errorf("学生件数の取得に失敗しました: %w", err)
	}

	return students, total, nil
}

// studentFilterConditions はStudentFilterをgoquのWHERE条件式に変換する。
func studentFilterConditions(filter StudentFilter) []goqu.Expression {
	conds := []goqu.Expression{}

	if filter.Department != "" && filter.Department != "all" {
		conds = append(conds, goqu.C("department").Eq(filter.Department))
	}

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		conds = append(conds, goqu.Or(
			goqu.C("name").ILike(pattern),
			goqu.C("student_id").ILike(pattern),
		))
	}

	return conds
}

// compile-time interface check
var _ StudentRepository = (*PostgresStudentRepo)(nil)

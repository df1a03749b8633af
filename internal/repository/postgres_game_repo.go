package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/hitoshi/libraryportal/internal/model"
)

// PostgresGameScoreRepo はPostgreSQLを使用したゲームスコアリポジトリ。
type PostgresGameScoreRepo struct {
	db *sqlx.DB
}

// NewPostgresGameScoreRepo はPostgresGameScoreRepoを生成する。
func NewPostgresGameScoreRepo(db *sqlx.DB) *PostgresGameScoreRepo {
	return &PostgresGameScoreRepo{db: db}
}

// Create はスコアを作成する。
func (r *PostgresGameScoreRepo) Create(ctx context.Context, score *model.GameScore) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO game_scores (id, student_id, game_type, score, level, time_taken,
		                          date_played, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		score.ID, score.StudentID, score.GameType, score.Score, score.Level,
		score.TimeTaken, score.DatePlayed, score.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("ゲームスコアの作成に失敗しました: %w", err)
	}

	return nil
}

// ListByStudent は学生のスコアをスコア降順・プレイ日降順で返す。
func (r *PostgresGameScoreRepo) ListByStudent(ctx context.Context, studentID string) ([]model.GameScore, error) {
	scores := []model.GameScore{}
	err := r.db.SelectContext(ctx, &scores,
		`SELECT id, student_id, game_type, score, level, time_taken, date_played, created_at
		 FROM game_scores
		 WHERE student_id = $1
		 ORDER BY score DESC, date_played DESC`,
		studentID,
	)
	if err != nil {
		return nil, fmt.Errorf("学生のスコア取得に失敗しました: %w", err)
	}

	return scores, nil
}

// Leaderboard はゲーム種別のリーダーボードを返す。
// 並び順: スコア降順、所要時間昇順、プレイ日降順。
func (r *PostgresGameScoreRepo) Leaderboard(ctx context.Context, gameType model.GameType, limit int) ([]model.GameScoreDetail, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT g.id, g.student_id, g.game_type, g.score, g.level, g.time_taken,
		        g.date_played, g.created_at,
		        s.id, s.student_id, s.name, s.email, s.phone, s.department, s.year,
		        s.max_books_allowed, s.current_books_borrowed, s.created_at, s.updated_at
		 FROM game_scores g
		 JOIN students s ON s.id = g.student_id
		 WHERE g.game_type = $1
		 ORDER BY g.score DESC, g.time_taken ASC, g.date_played DESC
		 LIMIT $2`,
		gameType, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("リーダーボードの取得に失敗しました: %w", err)
	}
	defer rows.Close()

	details := []model.GameScoreDetail{}
	for rows.Next() {
		d := model.GameScoreDetail{Student: &model.Student{}}
		err := rows.Scan(
			&d.ID, &d.StudentID, &d.GameType, &d.Score, &d.Level, &d.TimeTaken,
			&d.DatePlayed, &d.CreatedAt,
			&d.Student.ID, &d.Student.StudentID, &d.Student.Name, &d.Student.Email,
			&d.Student.Phone, &d.Student.Department, &d.Student.Year,
			&d.Student.MaxBooksAllowed, &d.Student.CurrentBooksBorrowed,
			&d.Student.CreatedAt, &d.Student.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("リーダーボード行のスキャンに失敗しました: %w", err)
		}
		details = append(details, d)
	}

	return details, rows.Err()
}

// compile-time interface check
var _ GameScoreRepository = (*PostgresGameScoreRepo)(nil)

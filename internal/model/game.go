package model

import "time"

// GameScore はミニゲームのスコアを表す。
type GameScore struct {
	ID         string    `db:"id" json:"id"`
	StudentID  string    `db:"student_id" json:"studentId"`
	GameType   GameType  `db:"game_type" json:"gameType"`
	Score      int       `db:"score" json:"score"`
	Level      int       `db:"level" json:"level"`
	TimeTaken  int       `db:"time_taken" json:"timeTaken"`
	DatePlayed time.Time `db:"date_played" json:"datePlayed"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
}

// GameType はミニゲームの種類を表す。
type GameType string

const (
	// GameTypeCounter はカウンターゲーム。
	GameTypeCounter GameType = "counter"
	// GameTypeBookshelf は本棚ゲーム。
	GameTypeBookshelf GameType = "bookshelf"
)

// IsValidGameType は指定された文字列が定義済みゲーム種別かどうかを返す。
func IsValidGameType(s string) bool {
	switch GameType(s) {
	case GameTypeCounter, GameTypeBookshelf:
		return true
	}
	return false
}

// GameScoreDetail はスコアにStudentを展開した集約。
type GameScoreDetail struct {
	GameScore
	Student *Student `json:"student,omitempty"`
}

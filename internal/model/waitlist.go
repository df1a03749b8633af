package model

import "time"

// WaitlistEntry は蔵書ごとの待機リストの1エントリを表す。
// Positionは同一蔵書内で1始まりの連番であり、削除時の詰め直しによって
// 常にギャップも重複もない状態が保たれる。
type WaitlistEntry struct {
	ID               string     `db:"id" json:"id"`
	BookID           string     `db:"book_id" json:"bookId"`
	StudentID        string     `db:"student_id" json:"studentId"`
	Position         int        `db:"position" json:"position"`
	AddedDate        time.Time  `db:"added_date" json:"addedDate"`
	Notified         bool       `db:"notified" json:"notified"`
	NotificationDate *time.Time `db:"notification_date" json:"notificationDate,omitempty"`
	CreatedAt        time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time  `db:"updated_at" json:"updatedAt"`
}

// WaitlistDetail は待機エントリにBookとStudentを展開した集約。
type WaitlistDetail struct {
	WaitlistEntry
	Book    *Book    `json:"book,omitempty"`
	Student *Student `json:"student,omitempty"`
}

// WaitlistRemoval は待機リストからの削除結果。
type WaitlistRemoval struct {
	BookTitle   string `json:"book"`
	StudentName string `json:"student"`
	Position    int    `json:"position"`
}

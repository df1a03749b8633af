package model

import "time"

// BorrowRecord は貸出レコードを表す。
// レコードは削除されず、返却時にstatus=returnedでソフトクローズされる。
type BorrowRecord struct {
	ID         string       `db:"id" json:"id"`
	BookID     string       `db:"book_id" json:"bookId"`
	StudentID  string       `db:"student_id" json:"studentId"`
	BorrowDate time.Time    `db:"borrow_date" json:"borrowDate"`
	DueDate    time.Time    `db:"due_date" json:"dueDate"`
	ReturnDate *time.Time   `db:"return_date" json:"returnDate,omitempty"`
	Token      string       `db:"token" json:"token"`
	Status     BorrowStatus `db:"status" json:"status"`
	FineAmount int          `db:"fine_amount" json:"fineAmount"`
	CreatedAt  time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time    `db:"updated_at" json:"updatedAt"`
}

// BorrowStatus は貸出レコードの状態を表す。
type BorrowStatus string

const (
	// BorrowStatusActive は貸出中の状態。
	BorrowStatusActive BorrowStatus = "active"
	// BorrowStatusReturned は返却済みの状態。
	BorrowStatusReturned BorrowStatus = "returned"
	// BorrowStatusOverdue は延滞状態。
	// 自動遷移は存在せず、外部プロセスからのみ設定される（観測された挙動を踏襲）。
	BorrowStatusOverdue BorrowStatus = "overdue"
)

// BorrowDetail は貸出レコードにBookとStudentを展開した集約。
type BorrowDetail struct {
	BorrowRecord
	Book    *Book    `json:"book,omitempty"`
	Student *Student `json:"student,omitempty"`
}

// ActiveBorrower は蔵書詳細に含める貸出中学生の最小表現。
type ActiveBorrower struct {
	RecordID    string    `db:"record_id" json:"recordId"`
	StudentName string    `db:"student_name" json:"studentName"`
	StudentID   string    `db:"student_id" json:"studentId"`
	DueDate     time.Time `db:"due_date" json:"dueDate"`
}

package model

import "time"

// Student は学生を表す。
// CurrentBooksBorrowedはその学生のアクティブな貸出レコード数を写した
// 非正規化カウンタ。貸出・返却のトランザクション内で更新される。
type Student struct {
	ID                   string     `db:"id" json:"id"`
	StudentID            string     `db:"student_id" json:"studentId"`
	Name                 string     `db:"name" json:"name"`
	Email                string     `db:"email" json:"email"`
	Phone                *string    `db:"phone" json:"phone,omitempty"`
	Department           Department `db:"department" json:"department"`
	Year                 Year       `db:"year" json:"year"`
	MaxBooksAllowed      int        `db:"max_books_allowed" json:"maxBooksAllowed"`
	CurrentBooksBorrowed int        `db:"current_books_borrowed" json:"currentBooksBorrowed"`
	CreatedAt            time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt            time.Time  `db:"updated_at" json:"updatedAt"`
}

// Department は学生の所属学科を表す。
type Department string

// 固定の学科一覧。
const (
	DepartmentComputerScience Department = "Computer Science"
	DepartmentMechanical      Department = "Mechanical"
	DepartmentElectrical      Department = "Electrical"
	DepartmentBusiness        Department = "Business"
	DepartmentArts            Department = "Arts"
	DepartmentScience         Department = "Science"
)

// IsValidDepartment は指定された文字列が定義済み学科かどうかを返す。
func IsValidDepartment(s string) bool {
	switch Department(s) {
	case DepartmentComputerScience, DepartmentMechanical, DepartmentElectrical,
		DepartmentBusiness, DepartmentArts, DepartmentScience:
		return true
	}
	return false
}

// Year は学生の学年を表す。
type Year string

// 固定の学年一覧。
const (
	YearFirst    Year = "1st Year"
	YearSecond   Year = "2nd Year"
	YearThird    Year = "3rd Year"
	YearFourth   Year = "4th Year"
	YearGraduate Year = "Graduate"
)

// IsValidYear は指定された文字列が定義済み学年かどうかを返す。
func IsValidYear(s string) bool {
	switch Year(s) {
	case YearFirst, YearSecond, YearThird, YearFourth, YearGraduate:
		return true
	}
	return false
}

// StudentWithBorrowCount は学生一覧でアクティブ貸出数を付与した行。
type StudentWithBorrowCount struct {
	Student
	CurrentBorrows int `db:"current_borrows" json:"currentBorrows"`
}

// StudentStatistics は学生詳細に含める貸出・待機の集計値。
type StudentStatistics struct {
	TotalBooksBorrowed int `json:"totalBooksBorrowed"`
	CurrentlyBorrowed  int `json:"currentlyBorrowed"`
	BooksOnWaitlist    int `json:"booksOnWaitlist"`
	MaxBooksAllowed    int `json:"maxBooksAllowed"`
	BooksRemaining     int `json:"booksRemaining"`
}

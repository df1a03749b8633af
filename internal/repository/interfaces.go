// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/hitoshi/libraryportal/internal/model"
)

// 複数テーブルを跨ぐ原子的操作が返すシグナルエラー。
// サービス層でAPIErrorに変換する。
var (
	// ErrBookUnavailable は条件付きデクリメントが在庫0で失敗したことを示す。
	ErrBookUnavailable = errors.New("book has no available copies")
	// ErrDuplicateActiveBorrow は同一(蔵書, 学生)のアクティブ貸出が既に存在することを示す。
	ErrDuplicateActiveBorrow = errors.New("active borrow already exists for this book and student")
	// ErrDuplicateToken は貸出トークンの一意制約違反を示す。呼び出し側で再生成して再試行する。
	ErrDuplicateToken = errors.New("borrow token collision")
	// ErrAlreadyReturned は返却済みレコードへの返却操作を示す。
	ErrAlreadyReturned = errors.New("borrow record already returned")
	// ErrBookStillAvailable は在庫が残っている蔵書への待機登録を示す。
	ErrBookStillAvailable = errors.New("book still has available copies")
	// ErrDuplicateWaitlistEntry は同一(蔵書, 学生)の待機エントリが既に存在することを示す。
	ErrDuplicateWaitlistEntry = errors.New("waitlist entry already exists for this book and student")
)

// BookFilter は蔵書一覧の絞り込み条件。
type BookFilter struct {
	Genre         string // 空または"all"で全ジャンル
	Search        string // タイトルまたは著者の部分一致（大文字小文字を無視）
	AvailableOnly bool   // 貸出可能コピーがある蔵書のみ
	Page          int
	Limit         int
}

// StudentFilter は学生一覧の絞り込み条件。
type StudentFilter struct {
	Department string // 空または"all"で全学科
	Search     string // 氏名または学籍番号の部分一致（大文字小文字を無視）
	Page       int
	Limit      int
}

// BookRepository は蔵書データの永続化インターフェース。
type BookRepository interface {
	// FindByID は指定IDの蔵書を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Book, error)

	// List は絞り込み条件に一致する蔵書をタイトル昇順・ページネーション付きで返す。
	// 2番目の戻り値は絞り込み後の総件数。
	List(ctx context.Context, filter BookFilter) ([]model.Book, int, error)

	// ListRandomAvailable は貸出可能な蔵書からランダムにcount冊取得する。
	ListRandomAvailable(ctx context.Context, count int) ([]model.Book, error)

	// ListRandomWithImages は画像URLを持つ蔵書からランダムにcount冊、
	// id/title/imageUrlのみに投影して取得する。
	ListRandomWithImages(ctx context.Context, count int) ([]model.BookSummary, error)

	// DistinctGenres は登録済み蔵書に実在するジャンルの一覧をソートして返す。
	DistinctGenres(ctx context.Context) ([]string, error)

	// Create は蔵書を作成する。ISBN重複時は一意制約違反を返す。
	// 呼び出し側はIsUniqueViolationで判定する。
	Create(ctx context.Context, book *model.Book) error
}

// StudentRepository は学生データの永続化インターフェース。
type StudentRepository interface {
	// FindByID は指定行IDの学生を取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Student, error)

	// FindByStudentID は学籍番号で学生を検索する。見つからない場合はnilを返す。
	FindByStudentID(ctx context.Context, studentID string) (*model.Student, error)

	// FindByEmail はメールアドレスで学生を検索する。見つからない場合はnilを返す。
	FindByEmail(ctx context.Context, email string) (*model.Student, error)

	// Create は学生を作成する。
	Create(ctx context.Context, student *model.Student) error

	// UpdateProfile は氏名・電話番号・学科・学年を更新する。
	UpdateProfile(ctx context.Context, student *model.Student) error

	// List は絞り込み条件に一致する学生を氏名昇順で返す。
	// 各行にはアクティブ貸出数を付与する。2番目の戻り値は総件数。
	List(ctx context.Context, filter StudentFilter) ([]model.StudentWithBorrowCount, int, error)
}

// BorrowRepository は貸出レコードの永続化インターフェース。
// 在庫カウンタと学生カウンタは貸出・返却と同一トランザクションで更新される。
type BorrowRepository interface {
	// FindByID は指定IDの貸出レコードを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.BorrowRecord, error)

	// FindDetailByID は指定IDの貸出レコードをBook/Student展開付きで取得する。
	FindDetailByID(ctx context.Context, id string) (*model.BorrowDetail, error)

	// FindActiveByBookAndStudent は(蔵書, 学生)のアクティブ貸出を検索する。
	// 見つからない場合はnilを返す。
	FindActiveByBookAndStudent(ctx context.Context, bookID, studentID string) (*model.BorrowRecord, error)

	// CountActiveByStudent は学生のアクティブ貸出数を返す。
	CountActiveByStudent(ctx context.Context, studentID string) (int, error)

	// CountByStudent は学生の全貸出レコード数を返す。
	CountByStudent(ctx context.Context, studentID string) (int, error)

	// ListActive は全アクティブ貸出を返却期限昇順・Book/Student展開付きで返す。
	ListActive(ctx context.Context) ([]model.BorrowDetail, error)

	// ListActiveByStudent は学生のアクティブ貸出をBook展開付きで返す。
	ListActiveByStudent(ctx context.Context, studentID string) ([]model.BorrowDetail, error)

	// ListByStudent は学生の貸出履歴を貸出日降順で最大limit件返す。
	ListByStudent(ctx context.Context, studentID string, limit int) ([]model.BorrowDetail, error)

	// ListActiveBorrowers は蔵書のアクティブ貸出中学生の一覧を返す。
	ListActiveBorrowers(ctx context.Context, bookID string) ([]model.ActiveBorrower, error)

	// ExecuteBorrow は貸出を単一トランザクションで実行する:
	// 在庫の条件付きデクリメント（available_copies > 0 のときのみ）、
	// レコード挿入、学生カウンタのインクリメント。
	// 在庫切れはErrBookUnavailable、二重貸出はErrDuplicateActiveBorrow、
	// トークン衝突はErrDuplicateTokenを返す。
	ExecuteBorrow(ctx context.Context, record *model.BorrowRecord) error

	// ExecuteReturn は返却を単一トランザクションで実行する:
	// status <> 'returned' を条件にレコードを更新し、在庫カウンタを+1、
	// 学生カウンタを-1する。返却済みの場合はErrAlreadyReturnedを返す。
	ExecuteReturn(ctx context.Context, id string, returnDate time.Time, fineAmount int) error
}

// WaitlistRepository は待機リストの永続化インターフェース。
// 順位は同一蔵書内で常に1..Nの連番に保たれる。
type WaitlistRepository interface {
	// FindByID は指定IDの待機エントリを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.WaitlistEntry, error)

	// FindByBookAndStudent は(蔵書, 学生)の待機エントリを検索する。
	// 見つからない場合はnilを返す。
	FindByBookAndStudent(ctx context.Context, bookID, studentID string) (*model.WaitlistEntry, error)

	// AddEntry は待機エントリを単一トランザクションで追加する。
	// 蔵書行をFOR UPDATEでロックして順位採番を蔵書ごとに直列化し、
	// ロック下で在庫0を再検証してから max(position)+1 を割り当てる。
	// 在庫が残っている場合はErrBookStillAvailable、
	// 二重登録はErrDuplicateWaitlistEntryを返す。
	// 成功時はentry.Positionに採番結果を書き込む。
	AddEntry(ctx context.Context, entry *model.WaitlistEntry) error

	// RemoveAndCompact は待機エントリの削除と後続順位の詰め直しを
	// 単一トランザクションで実行し、削除したエントリを返す。
	// 見つからない場合は(nil, nil)を返す。
	RemoveAndCompact(ctx context.Context, id string) (*model.WaitlistEntry, error)

	// ListByBook は蔵書の待機リストを順位昇順・Book/Student展開付きで返す。
	ListByBook(ctx context.Context, bookID string) ([]model.WaitlistDetail, error)

	// ListByStudent は学生の待機エントリを登録日降順・Book展開付きで返す。
	ListByStudent(ctx context.Context, studentID string) ([]model.WaitlistDetail, error)

	// ListByStudentAsc は学生の待機エントリを登録日昇順で返す（学生詳細用）。
	ListByStudentAsc(ctx context.Context, studentID string) ([]model.WaitlistDetail, error)

	// CountByStudent は学生の待機エントリ数を返す。
	CountByStudent(ctx context.Context, studentID string) (int, error)
}

// GameScoreRepository はゲームスコアの永続化インターフェース。
type GameScoreRepository interface {
	// Create はスコアを作成する。
	Create(ctx context.Context, score *model.GameScore) error

	// ListByStudent は学生のスコアをスコア降順・プレイ日降順で返す。
	ListByStudent(ctx context.Context, studentID string) ([]model.GameScore, error)

	// Leaderboard はゲーム種別のリーダーボードを
	// スコア降順・所要時間昇順・プレイ日降順で最大limit件返す。
	Leaderboard(ctx context.Context, gameType model.GameType, limit int) ([]model.GameScoreDetail, error)
}

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hitoshi/libraryportal/internal/middleware"
)

// DBPinger はヘルスチェックが必要とするデータベース疎通確認インターフェース。
type DBPinger interface {
	PingContext(ctx context.Context) error
}

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter

	// ドメインサービス
	BookService     BookServiceInterface
	StudentService  StudentServiceInterface
	BorrowService   BorrowServiceInterface
	WaitlistService WaitlistServiceInterface
	GameService     GameServiceInterface

	// サービス基盤
	DB             DBPinger
	MetricsHandler http.Handler
	HTTPMetrics    middleware.HTTPMetricsRecorder
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RecoveryMiddleware → LoggingMiddleware → CORSMiddleware → RateLimitMiddleware(GeneralMiddleware)
//
// /health と /metrics はレート制限の外に配置する。
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	// リカバリとリクエストログを最上位に適用（全ルートに効く）
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(slog.Default(), deps.HTTPMetrics))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))

	bookHandler := NewBookHandler(deps.BookService)
	studentHandler := NewStudentHandler(deps.StudentService)
	borrowHandler := NewBorrowHandler(deps.BorrowService)
	waitlistHandler := NewWaitlistHandler(deps.WaitlistService)
	gameHandler := NewGameHandler(deps.GameService)

	// --- レート制限の外のルート ---

	r.Get("/", handleRoot)
	r.Get("/health", handleHealth(deps.DB))
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}

	// --- APIルート ---
	r.Group(func(r chi.Router) {
		r.Use(deps.RateLimiter.GeneralMiddleware())

		// 蔵書カタログ
		r.Route("/api/books", func(r chi.Router) {
			r.Get("/", bookHandler.ListBooks)
			r.Post("/", bookHandler.CreateBook)
			r.Get("/genre/{genre}", bookHandler.ListBooksByGenre)
			r.Get("/random/{count}", bookHandler.ListRandomBooks)
			r.Get("/genres/all", bookHandler.ListGenres)
			r.Get("/search/{query}", bookHandler.SearchBooks)
			r.Get("/{id}", bookHandler.GetBook)
		})

		// 学生管理
		r.Route("/api/students", func(r chi.Router) {
			r.Post("/", studentHandler.UpsertStudent)
			r.Get("/", studentHandler.ListStudents)
			r.Get("/studentId/{studentId}", studentHandler.GetStudentByStudentID)
			r.Get("/{id}", studentHandler.GetStudent)
		})

		// 貸出ライフサイクル
		r.Route("/api/borrow", func(r chi.Router) {
			// POST /api/borrow - 貸出（専用レート制限を追加）
			r.With(deps.RateLimiter.BorrowMiddleware()).Post("/", borrowHandler.BorrowBook)

			r.Get("/active", borrowHandler.ListActiveBorrows)
			r.Get("/{id}", borrowHandler.GetBorrow)
			r.Put("/{id}/return", borrowHandler.ReturnBook)
		})

		// 待機リスト
		r.Route("/api/waitlist", func(r chi.Router) {
			// POST /api/waitlist - 待機登録（専用レート制限を追加）
			r.With(deps.RateLimiter.BorrowMiddleware()).Post("/", waitlistHandler.JoinWaitlist)

			r.Delete("/{id}", waitlistHandler.LeaveWaitlist)
			r.Get("/book/{bookId}", waitlistHandler.ListWaitlistByBook)
			r.Get("/student/{studentId}", waitlistHandler.ListWaitlistByStudent)
		})

		// ミニゲーム
		r.Route("/api/games", func(r chi.Router) {
			r.Post("/scores", gameHandler.SubmitScore)
			r.Get("/scores/student/{studentId}", gameHandler.ListScoresByStudent)
			r.Get("/leaderboard/{gameType}", gameHandler.GetLeaderboard)
			r.Get("/counter-books/{count}", gameHandler.ListCounterBooks)
		})
	})

	// 未定義ルート
	r.NotFound(handleNotFound)

	return r
}

// handleRoot はAPIのバナーとエンドポイント一覧を返す。
// GET /
func handleRoot(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, map[string]any{
		"name":    "College Library Portal API",
		"version": "1.0",
		"endpoints": map[string]string{
			"books":    "/api/books",
			"students": "/api/students",
			"borrow":   "/api/borrow",
			"waitlist": "/api/waitlist",
			"games":    "/api/games",
			"health":   "/health",
			"metrics":  "/metrics",
		},
	})
}

// handleHealth はデータベース疎通を確認するヘルスチェックハンドラーを返す。
// GET /health
func handleHealth(db DBPinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db == nil || db.PingContext(r.Context()) != nil {
			writeEnvelope(w, http.StatusServiceUnavailable, envelope{
				Success: false,
				Error:   errorBody{Code: "UNHEALTHY", Message: "データベースに接続できません。"},
			})
			return
		}

		writeData(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// handleNotFound は未定義ルートへの404レスポンスを返す。
func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeEnvelope(w, http.StatusNotFound, envelope{
		Success: false,
		Error:   errorBody{Code: "NOT_FOUND", Message: "指定されたエンドポイントは存在しません。"},
	})
}

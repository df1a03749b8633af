package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// NewRecoveryMiddleware はpanic発生時にプロセスクラッシュを防ぎ、
// 他の500系レスポンスと同じJSONエラーエンベロープを返すミドルウェアを生成する。
func NewRecoveryMiddleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					slog.Error("panic recovered",
						slog.Any("panic", rec),
						slog.String("method", r.Method),
						slog.String("path", r.URL.Path),
						slog.String("stack", string(debug.Stack())),
					)
					writePanicResponse(w)
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// writePanicResponse はpanic回復後の500レスポンスを書き込む。
// レスポンスの書き込み中にpanicした場合はヘッダーが送信済みの
// 可能性があるが、その場合のWriteHeaderの重複はnet/httpが警告するのみ。
func writePanicResponse(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)

	json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error": map[string]string{
			"code":    "INTERNAL_ERROR",
			"message": "内部エラーが発生しました。",
		},
	})
}

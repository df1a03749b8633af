// Package handler はHTTPハンドラーとルーティングを提供する。
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/hitoshi/libraryportal/internal/model"
)

// json は標準ライブラリ互換設定のjson-iteratorインスタンス。
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// envelope はAPIレスポンスの統一フォーマット。
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Total   *int   `json:"total,omitempty"`
	Page    *int   `json:"page,omitempty"`
	Pages   *int   `json:"pages,omitempty"`
	Query   string `json:"query,omitempty"`
	Error   any    `json:"error,omitempty"`
}

// errorBody はエラーレスポンスのerrorフィールド。
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeEnvelope はエンベロープをJSONで書き込む。
func writeEnvelope(w http.ResponseWriter, statusCode int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		slog.Error("failed to encode response", slog.Any("error", err))
	}
}

// writeData は成功レスポンスを書き込む。
func writeData(w http.ResponseWriter, statusCode int, data any) {
	writeEnvelope(w, statusCode, envelope{Success: true, Data: data})
}

// writeDataMessage はメッセージ付きの成功レスポンスを書き込む。
func writeDataMessage(w http.ResponseWriter, statusCode int, data any, message string) {
	writeEnvelope(w, statusCode, envelope{Success: true, Data: data, Message: message})
}

// writePage はページネーション情報付きの成功レスポンスを書き込む。
// countは今回返した件数、totalは絞り込み後の総件数。
func writePage(w http.ResponseWriter, data any, count, total, page, limit int, query string) {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}

	writeEnvelope(w, http.StatusOK, envelope{
		Success: true,
		Data:    data,
		Count:   &count,
		Total:   &total,
		Page:    &page,
		Pages:   &pages,
		Query:   query,
	})
}

// writeAPIError はAPIErrorをカテゴリに応じたHTTPステータスで書き込む。
// resource→404、validation/conflict→400、それ以外→500。
func writeAPIError(w http.ResponseWriter, apiErr *model.APIError) {
	statusCode := http.StatusInternalServerError
	switch apiErr.Category {
	case "resource":
		statusCode = http.StatusNotFound
	case "validation", "conflict":
		statusCode = http.StatusBadRequest
	}

	writeEnvelope(w, statusCode, envelope{
		Success: false,
		Error:   errorBody{Code: apiErr.Code, Message: apiErr.Message},
	})
}

// handleServiceError はサービス層のエラーをHTTPレスポンスに変換する。
// APIErrorはカテゴリに応じたステータスで返し、それ以外は詳細をログのみに
// 記録して一般的な500レスポンスを返す。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIError(w, apiErr)
		return
	}

	slog.Error("internal error", slog.Any("error", err))
	writeEnvelope(w, http.StatusInternalServerError, envelope{
		Success: false,
		Error:   errorBody{Code: "INTERNAL_ERROR", Message: "内部エラーが発生しました。"},
	})
}

// writeBadRequestBody はリクエストボディ解析失敗のレスポンスを書き込む。
func writeBadRequestBody(w http.ResponseWriter) {
	writeAPIError(w, &model.APIError{
		Code:     "INVALID_REQUEST",
		Message:  "リクエストボディの解析に失敗しました。",
		Category: "validation",
		Action:   "正しいJSON形式でリクエストしてください。",
	})
}

// requireUUID はIDパラメータのUUID形式を検証する。
// 不正な形式の場合は400レスポンスを書き込んでfalseを返し、
// 呼び出し側はそのまま処理を打ち切る。
func requireUUID(w http.ResponseWriter, id, what string) bool {
	if uuid.Validate(id) != nil {
		writeAPIError(w, model.NewInvalidIDError(what))
		return false
	}
	return true
}

// parsePagination はクエリ文字列からpage/limitを取り出す。
// 省略時・不正時はpage=1、limit=10を返す。
func parsePagination(r *http.Request) (page, limit int) {
	page = 1
	limit = 10

	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		limit = v
	}

	return page, limit
}

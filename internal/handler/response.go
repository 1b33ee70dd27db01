// Package handler はHTTPハンドラーを提供する。
package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hitoshi/clinicman/internal/middleware"
	"github.com/hitoshi/clinicman/internal/model"
)

// maxRequestBodyBytes はJSONリクエストボディの上限。
const maxRequestBodyBytes = 1 << 20

// successResponse は単一リソースの成功レスポンス。
type successResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// listResponse は一覧の成功レスポンス。
type listResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Total   int         `json:"total"`
	Limit   int         `json:"limit"`
	Offset  int         `json:"offset"`
}

// writeJSON はJSONレスポンスを書き込む。
func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("レスポンスのエンコードに失敗しました", slog.String("error", err.Error()))
	}
}

func writeSuccess(w http.ResponseWriter, statusCode int, data interface{}) {
	writeJSON(w, statusCode, successResponse{Success: true, Data: data})
}

func writeList(w http.ResponseWriter, data interface{}, total int, page model.Page) {
	page = page.Normalize()
	writeJSON(w, http.StatusOK, listResponse{
		Success: true,
		Data:    data,
		Total:   total,
		Limit:   page.Limit,
		Offset:  page.Offset,
	})
}

// writeAPIErrorResponse は統一フォーマットでAPIErrorを書き込む。
func writeAPIErrorResponse(w http.ResponseWriter, statusCode int, apiErr *model.APIError) {
	middleware.WriteErrorResponse(w, statusCode, apiErr)
}

// handleServiceError はサービス層から返されたエラーを適切なHTTPステータスコードに変換する。
func handleServiceError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		writeAPIErrorResponse(w, mapAPIErrorToHTTPStatus(apiErr), apiErr)
		return
	}

	// APIError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapAPIErrorToHTTPStatus はAPIErrorコードからHTTPステータスコードにマッピングする。
func mapAPIErrorToHTTPStatus(apiErr *model.APIError) int {
	switch apiErr.Code {
	case model.ErrCodeInvalidRequest, model.ErrCodeValidationFailed, model.ErrCodePasswordMismatch:
		return http.StatusBadRequest
	case model.ErrCodeInvalidCredentials:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeUserNotFound, model.ErrCodeClinicNotFound, model.ErrCodePatientNotFound,
		model.ErrCodeSessionNotFound, model.ErrCodeInvoiceNotFound, model.ErrCodeBonusNotFound,
		model.ErrCodeReminderNotFound, model.ErrCodeCallNotFound:
		return http.StatusNotFound
	case model.ErrCodeEmailTaken, model.ErrCodeInvoiceNumberTaken, model.ErrCodeInvalidStatusTransition,
		model.ErrCodeInvoiceNotDraft, model.ErrCodeReminderNotPending, model.ErrCodeCannotDeactivateSelf:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON はリクエストボディをdstに読み込む。
// 未知のフィールドと複数のJSON値は拒否する。
func decodeJSON(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return model.NewInvalidRequestError("リクエストボディが空です")
		}
		return model.NewInvalidRequestError(err.Error())
	}
	if dec.More() {
		return model.NewInvalidRequestError("JSON値は1つだけ指定してください")
	}
	return nil
}

// scope は認証・テナント解決済みのリクエストの主体。
type scope struct {
	ClinicID string
	UserID   string
}

// requestScope はコンテキストからクリニックIDとユーザーIDを取り出す。
// 取り出せない場合は401を書き込み false を返す。
func requestScope(w http.ResponseWriter, r *http.Request) (scope, bool) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return scope{}, false
	}
	clinicID, err := middleware.ClinicIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return scope{}, false
	}
	return scope{ClinicID: clinicID, UserID: userID}, true
}

func writeUnauthorized(w http.ResponseWriter) {
	writeAPIErrorResponse(w, http.StatusUnauthorized, &model.APIError{
		Code:     "UNAUTHORIZED",
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	})
}

// pathID はURLパラメータ id を取り出す。UUID形式でなければ notFound を404で書き込む。
func pathID(w http.ResponseWriter, r *http.Request, notFound func(id string) *model.APIError) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		writeAPIErrorResponse(w, http.StatusNotFound, notFound(id))
		return "", false
	}
	return id, true
}

// parsePage はクエリパラメータ limit / offset を読み取る。
func parsePage(r *http.Request) (model.Page, error) {
	q := r.URL.Query()
	var page model.Page
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return model.Page{}, model.NewInvalidRequestError(fmt.Sprintf("limit が不正です: %s", v))
		}
		page.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return model.Page{}, model.NewInvalidRequestError(fmt.Sprintf("offset が不正です: %s", v))
		}
		page.Offset = n
	}
	return page.Normalize(), nil
}

// parseTimeQuery はRFC3339形式のクエリパラメータを読み取る。未指定ならnil。
func parseTimeQuery(r *http.Request, name string) (*time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("%s はRFC3339形式で指定してください: %s", name, v))
	}
	t = t.UTC()
	return &t, nil
}

// parseBoolQuery は真偽値のクエリパラメータを読み取る。未指定ならnil。
func parseBoolQuery(r *http.Request, name string) (*bool, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, model.NewInvalidRequestError(fmt.Sprintf("%s は true または false で指定してください: %s", name, v))
	}
	return &b, nil
}

// optionalUUIDQuery はUUID形式のクエリパラメータを読み取る。未指定なら空文字列。
func optionalUUIDQuery(r *http.Request, name string) (string, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return "", nil
	}
	if _, err := uuid.Parse(v); err != nil {
		return "", model.NewInvalidRequestError(fmt.Sprintf("%s はUUID形式で指定してください: %s", name, v))
	}
	return v, nil
}

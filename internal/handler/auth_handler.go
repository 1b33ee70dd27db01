package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/hitoshi/clinicman/internal/auth"
	"github.com/hitoshi/clinicman/internal/metrics"
	"github.com/hitoshi/clinicman/internal/middleware"
	"github.com/hitoshi/clinicman/internal/model"
)

// AuthServiceInterface は認証ハンドラーが必要とするサービスインターフェース。
type AuthServiceInterface interface {
	Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResult, error)
	CurrentUser(ctx context.Context, userID string) (*model.User, error)
}

// AuthHandler はログインと現在ユーザー参照のHTTPハンドラー。
type AuthHandler struct {
	service   AuthServiceInterface
	collector metrics.MetricsCollector
}

// NewAuthHandler はAuthHandlerを生成する。collectorがnilの場合は記録しない。
func NewAuthHandler(service AuthServiceInterface, collector metrics.MetricsCollector) *AuthHandler {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return &AuthHandler{
		service:   service,
		collector: collector,
	}
}

type loginResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      userResponse `json:"user"`
}

// Login はメールアドレスとパスワードでログインし、アクセストークンを返す。
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, err)
		return
	}

	result, err := h.service.Login(r.Context(), req)
	if err != nil {
		h.collector.RecordLogin(false)
		handleServiceError(w, err)
		return
	}
	h.collector.RecordLogin(true)

	writeSuccess(w, http.StatusOK, loginResponse{
		Token:     result.Token,
		TokenType: "Bearer",
		ExpiresAt: result.ExpiresAt,
		User:      toUserResponse(result.User),
	})
}

// Me は現在のログインユーザー情報を返す。
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w)
		return
	}

	user, err := h.service.CurrentUser(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, toUserResponse(user))
}

package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/hitoshi/clinicman/internal/auth"
	"github.com/hitoshi/clinicman/internal/metrics"
)

// Authenticator は Authorization ヘッダを検証し Identity を返す。
// auth.Gate が実装する。
type Authenticator interface {
	Authenticate(ctx context.Context, authorization string) (auth.Identity, error)
}

// authErrorBody は認証失敗時のレスポンスボディ。
// error は期限切れと不正トークンの場合のみ含める。
type authErrorBody struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// NewAuthMiddleware は Bearer トークンを検証するミドルウェアを返す。
// 認証に成功した場合は Identity をコンテキストに注入して次のハンドラーへ渡す。
// 失敗した場合はレスポンスを書き込んで処理を打ち切る。
func NewAuthMiddleware(gate Authenticator, collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	if collector == nil {
		collector = metrics.NopCollector{}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := gate.Authenticate(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				kind := auth.KindOf(err)
				collector.RecordAuthFailure(kind.String())

				if kind == auth.KindInternalError {
					slog.Error("認証処理に失敗しました",
						slog.String("kind", kind.String()),
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()),
					)
				} else {
					slog.Warn("認証を拒否しました",
						slog.String("kind", kind.String()),
						slog.String("path", r.URL.Path),
					)
				}

				writeAuthError(w, kind)
				return
			}

			collector.RecordAuthSuccess()
			setLogUserID(r.Context(), identity.ID)
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
		})
	}
}

func writeAuthError(w http.ResponseWriter, kind auth.ErrorKind) {
	w.Header().Set("Content-Type", "application/json")
	if kind.HTTPStatus() == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="clinicman"`)
	}
	w.WriteHeader(kind.HTTPStatus())
	json.NewEncoder(w).Encode(authErrorBody{
		Success: false,
		Message: kind.Message(),
		Error:   kind.Code(),
	})
}

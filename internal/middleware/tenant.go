package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/hitoshi/clinicman/internal/auth"
	"github.com/hitoshi/clinicman/internal/model"
)

// MemberFinder は認証済みユーザーの所属クリニックと権限を取得する。
// repository.UserRepository の部分集合として定義する。
type MemberFinder interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
}

// NewTenantMiddleware は認証済みユーザーの所属クリニックと権限をコンテキストに注入する。
// 認証ミドルウェアの後に配置する。
func NewTenantMiddleware(finder MemberFinder) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := UserIDFromContext(r.Context())
			if err != nil {
				writeAuthError(w, auth.KindUserNotFound)
				return
			}

			user, err := finder.FindByID(r.Context(), userID)
			if err != nil {
				slog.Error("所属クリニックの取得に失敗しました",
					slog.String("user_id", userID),
					slog.String("error", err.Error()),
				)
				WriteInternalServerError(w)
				return
			}
			// 認証後に無効化・削除された場合
			if user == nil || !user.Active {
				writeAuthError(w, auth.KindUserNotFound)
				return
			}

			setLogClinicID(r.Context(), user.ClinicID)
			ctx := ContextWithTenant(r.Context(), user.ClinicID, user.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole は指定した権限以外のユーザーを 403 FORBIDDEN で拒否する。
// テナントミドルウェアの後に配置する。
func RequireRole(roles ...model.Role) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}

			slog.Warn("権限不足のため拒否しました",
				slog.String("role", string(role)),
				slog.String("path", r.URL.Path),
			)
			WriteErrorResponse(w, http.StatusForbidden, model.NewForbiddenError())
		})
	}
}

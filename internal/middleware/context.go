// Package middleware はHTTPミドルウェアを提供する。
package middleware

import (
	"context"
	"fmt"

	"github.com/hitoshi/clinicman/internal/auth"
	"github.com/hitoshi/clinicman/internal/model"
)

// contextKey はコンテキストに値を格納するための型安全なキー。
type contextKey string

var (
	identityContextKey = contextKey("identity")
	clinicIDContextKey = contextKey("clinic_id")
	roleContextKey     = contextKey("role")
)

// ContextWithIdentity はコンテキストに認証済みユーザーを注入する。
// テストやミドルウェア以外のコンテキスト生成で使用する。
func ContextWithIdentity(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, id)
}

// IdentityFromContext はリクエストコンテキストから認証済みユーザーを取得する。
// 認証ミドルウェアを通過したリクエストでのみ有効。
func IdentityFromContext(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityContextKey).(auth.Identity)
	if !ok || id.ID == "" {
		return auth.Identity{}, false
	}
	return id, true
}

// UserIDFromContext はリクエストコンテキストからユーザーIDを取得する。
func UserIDFromContext(ctx context.Context) (string, error) {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return "", fmt.Errorf("user ID not found in context")
	}
	return id.ID, nil
}

// ContextWithTenant はコンテキストにクリニックIDと権限を注入する。
func ContextWithTenant(ctx context.Context, clinicID string, role model.Role) context.Context {
	ctx = context.WithValue(ctx, clinicIDContextKey, clinicID)
	return context.WithValue(ctx, roleContextKey, role)
}

// ClinicIDFromContext はリクエストコンテキストからクリニックIDを取得する。
// テナントミドルウェアを通過したリクエストでのみ有効。
func ClinicIDFromContext(ctx context.Context) (string, error) {
	clinicID, ok := ctx.Value(clinicIDContextKey).(string)
	if !ok || clinicID == "" {
		return "", fmt.Errorf("clinic ID not found in context")
	}
	return clinicID, nil
}

// RoleFromContext はリクエストコンテキストから権限を取得する。
func RoleFromContext(ctx context.Context) model.Role {
	role, _ := ctx.Value(roleContextKey).(model.Role)
	return role
}

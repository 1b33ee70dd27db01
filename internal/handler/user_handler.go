package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/clinicman/internal/model"
	"github.com/hitoshi/clinicman/internal/user"
)

// UserServiceInterface はユーザーハンドラーが必要とするサービスインターフェース。
type UserServiceInterface interface {
	List(ctx context.Context, clinicID string, page model.Page) ([]*model.User, int, error)
	Get(ctx context.Context, clinicID, id string) (*model.User, error)
	Create(ctx context.Context, clinicID string, in user.CreateInput) (*model.User, error)
	Update(ctx context.Context, clinicID, id string, in user.UpdateInput) (*model.User, error)
	// Deactivate は操作者自身を無効化しようとした場合 CANNOT_DEACTIVATE_SELF を返す。
	Deactivate(ctx context.Context, clinicID, actorID, id string) error
	Reactivate(ctx context.Context, clinicID, id string) error
	ChangePassword(ctx context.Context, userID string, in user.ChangePasswordInput) error
}

// UserHandler はクリニックのスタッフ管理のHTTPハンドラー。
type UserHandler struct {
	service UserServiceInterface
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserServiceInterface) *UserHandler {
	return &UserHandler{
		service: service,
	}
}

func userNotFound(string) *model.APIError {
	return model.NewUserNotFoundError()
}

// List はクリニックのユーザー一覧を返す。
// GET /api/users
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	page, err := parsePage(r)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	users, total, err := h.service.List(r.Context(), sc.ClinicID, page)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeList(w, toUserResponses(users), total, page)
}

// Get はユーザーを1件返す。
// GET /api/users/{id}
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, userNotFound)
	if !ok {
		return
	}

	u, err := h.service.Get(r.Context(), sc.ClinicID, id)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toUserResponse(u))
}

// Create はユーザーを作成する。
// POST /api/users
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	var in user.CreateInput
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, err)
		return
	}

	u, err := h.service.Create(r.Context(), sc.ClinicID, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusCreated, toUserResponse(u))
}

// Update はユーザーの氏名と権限を更新する。
// PUT /api/users/{id}
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, userNotFound)
	if !ok {
		return
	}
	var in user.UpdateInput
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, err)
		return
	}

	u, err := h.service.Update(r.Context(), sc.ClinicID, id, in)
	if err != nil {
		handleServiceError(w, err)
		return
	}
	writeSuccess(w, http.StatusOK, toUserResponse(u))
}

// Deactivate はユーザーを無効化する。
// POST /api/users/{id}/deactivate
func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, userNotFound)
	if !ok {
		return
	}

	if err := h.service.Deactivate(r.Context(), sc.ClinicID, sc.UserID, id); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reactivate は無効化されたユーザーを有効に戻す。
// POST /api/users/{id}/reactivate
func (h *UserHandler) Reactivate(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, userNotFound)
	if !ok {
		return
	}

	if err := h.service.Reactivate(r.Context(), sc.ClinicID, id); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ChangePassword はログイン中のユーザー自身のパスワードを変更する。
// PUT /api/users/me/password
func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	sc, ok := requestScope(w, r)
	if !ok {
		return
	}
	var in user.ChangePasswordInput
	if err := decodeJSON(r, &in); err != nil {
		handleServiceError(w, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), sc.UserID, in); err != nil {
		handleServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

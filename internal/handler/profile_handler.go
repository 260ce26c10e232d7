package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/hitoshi/linkup/internal/middleware"
	"github.com/hitoshi/linkup/internal/model"
)

// ProfileServiceInterface はプロフィールハンドラーが必要とするサービスインターフェース。
type ProfileServiceInterface interface {
	GetUserAndProfile(ctx context.Context, userID string) (*model.UserWithProfile, error)
	UpdateUser(ctx context.Context, userID string, upd model.UserUpdate) error
	UpdateProfile(ctx context.Context, userID string, upd model.ProfileUpdate) error
	UpdateProfilePicture(ctx context.Context, userID, ref string) error
	ListAll(ctx context.Context) ([]model.UserWithProfile, error)
}

// ProfileHandler はユーザー属性とプロフィールのHTTPハンドラー。
type ProfileHandler struct {
	service ProfileServiceInterface
}

// NewProfileHandler はProfileHandlerを生成する。
func NewProfileHandler(service ProfileServiceInterface) *ProfileHandler {
	return &ProfileHandler{service: service}
}

type userProfileResponse struct {
	UserID          string              `json:"userId"`
	Name            string              `json:"name"`
	Username        string              `json:"username"`
	Email           string              `json:"email"`
	ProfilePicture  string              `json:"profilePicture,omitempty"`
	Bio             string              `json:"bio"`
	CurrentPosition string              `json:"currentPost"`
	PastWork        []model.WorkHistory `json:"pastWork"`
}

func toUserProfileResponse(p *model.UserWithProfile) userProfileResponse {
	pastWork := p.Profile.PastWork
	if pastWork == nil {
		pastWork = []model.WorkHistory{}
	}
	return userProfileResponse{
		UserID:          p.User.ID,
		Name:            p.User.Name,
		Username:        p.User.Username,
		Email:           p.User.Email,
		ProfilePicture:  p.User.ProfilePicture,
		Bio:             p.Profile.Bio,
		CurrentPosition: p.Profile.CurrentPosition,
		PastWork:        pastWork,
	}
}

// GetUserAndProfile は認証済みユーザーのプロフィールを返す。
// GET /get_user_and_profile
func (h *ProfileHandler) GetUserAndProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	result, err := h.service.GetUserAndProfile(r.Context(), userID)
	if err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"userProfile": toUserProfileResponse(result)})
}

type userUpdateRequest struct {
	Name     *string `json:"name"`
	Username *string `json:"username"`
	Email    *string `json:"email"`
}

// UpdateUser はユーザー属性を更新する。許可されたフィールドのみ受け付ける。
// POST /user_update
func (h *ProfileHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req userUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidBodyError())
		return
	}

	upd := model.UserUpdate{
		Name:     req.Name,
		Username: req.Username,
		Email:    req.Email,
	}
	if err := h.service.UpdateUser(r.Context(), userID, upd); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "ユーザー情報を更新しました"})
}

type profileUpdateRequest struct {
	Bio             *string             `json:"bio"`
	CurrentPosition *string             `json:"currentPost"`
	PastWork        []model.WorkHistory `json:"pastWork"`
}

// UpdateProfile はプロフィールを更新する。
// POST /update_profile_data
func (h *ProfileHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req profileUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidBodyError())
		return
	}

	upd := model.ProfileUpdate{
		Bio:             req.Bio,
		CurrentPosition: req.CurrentPosition,
		PastWork:        req.PastWork,
	}
	if err := h.service.UpdateProfile(r.Context(), userID, upd); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "プロフィールを更新しました"})
}

type profilePictureRequest struct {
	ProfilePicture string `json:"profile_picture"`
}

// UpdateProfilePicture はプロフィール画像参照を更新する。
// POST /update_profile_picture
func (h *ProfileHandler) UpdateProfilePicture(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.UserIDFromContext(r.Context())
	if err != nil {
		writeAPIErrorResponse(w, http.StatusUnauthorized, model.NewUnauthenticatedError())
		return
	}

	var req profilePictureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeAPIErrorResponse(w, http.StatusBadRequest, invalidBodyError())
		return
	}

	if err := h.service.UpdateProfilePicture(r.Context(), userID, req.ProfilePicture); err != nil {
		handleServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "プロフィール画像を更新しました"})
}

// ListAll は全ユーザーのプロフィール一覧を返す。認証は不要。
// GET /user/get_all_users
func (h *ProfileHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.service.ListAll(r.Context())
	if err != nil {
		handleServiceError(w, err)
		return
	}

	out := make([]userProfileResponse, 0, len(profiles))
	for i := range profiles {
		out = append(out, toUserProfileResponse(&profiles[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"profiles": out})
}

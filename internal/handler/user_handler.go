// Package handler はHTTP APIのハンドラーとルーティングを提供する。
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/ghlookup/internal/middleware"
	"github.com/hitoshi/ghlookup/internal/model"
)

// UserLookupService はユーザーハンドラーが必要とする検索クライアントのインターフェース。
type UserLookupService interface {
	// LookupUser は指定されたログイン名のユーザープロフィールを取得する。
	LookupUser(ctx context.Context, login string) (*model.UserProfile, error)
}

// ProfileSanitizer はプロフィール項目からHTMLを除去するインターフェース。
type ProfileSanitizer interface {
	SanitizeText(raw string) string
}

// userProfileResponse はユーザープロフィールのAPIレスポンス。
// GitHub APIのフィールド名をそのまま踏襲する。
type userProfileResponse struct {
	ID          int64   `json:"id"`
	Login       string  `json:"login"`
	AvatarURL   string  `json:"avatar_url"`
	HTMLURL     string  `json:"html_url"`
	Name        *string `json:"name"`
	Bio         *string `json:"bio"`
	PublicRepos int     `json:"public_repos"`
	Followers   int     `json:"followers"`
	Following   int     `json:"following"`
}

// UserHandler はユーザー検索のHTTPハンドラー。
type UserHandler struct {
	service   UserLookupService
	sanitizer ProfileSanitizer
}

// NewUserHandler はUserHandlerを生成する。
func NewUserHandler(service UserLookupService, sanitizer ProfileSanitizer) *UserHandler {
	return &UserHandler{
		service:   service,
		sanitizer: sanitizer,
	}
}

// GetUser は指定されたログイン名のユーザープロフィールを返す。
// GET /api/users/{login}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	// chiはエスケープ済みのパスセグメントを返すため、ここでデコードする
	login, err := url.PathUnescape(chi.URLParam(r, "login"))
	if err != nil {
		writeLookupErrorResponse(w, http.StatusBadRequest, model.NewMalformedRequestError())
		return
	}
	login = strings.TrimSpace(login)
	if login == "" {
		writeLookupErrorResponse(w, http.StatusBadRequest, model.NewMalformedRequestError())
		return
	}

	profile, err := h.service.LookupUser(r.Context(), login)
	if err != nil {
		handleLookupError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.toResponse(profile))
}

// toResponse はドメインのUserProfileをAPIレスポンス型に変換する。
// ユーザーが編集可能なnameとbioはサニタイズしてから返す。
func (h *UserHandler) toResponse(profile *model.UserProfile) userProfileResponse {
	resp := userProfileResponse{
		ID:          profile.ID,
		Login:       profile.Login,
		AvatarURL:   profile.AvatarURL,
		HTMLURL:     profile.HTMLURL,
		PublicRepos: profile.PublicRepos,
		Followers:   profile.Followers,
		Following:   profile.Following,
	}
	if profile.Name != nil {
		name := h.sanitizer.SanitizeText(*profile.Name)
		resp.Name = &name
	}
	if profile.Bio != nil {
		bio := h.sanitizer.SanitizeText(*profile.Bio)
		resp.Bio = &bio
	}
	return resp
}

// writeLookupErrorResponse は統一エラーフォーマットでエラーレスポンスを書き込む。
func writeLookupErrorResponse(w http.ResponseWriter, statusCode int, lerr *model.LookupError) {
	middleware.WriteErrorResponse(w, statusCode, lerr)
}

// handleLookupError は検索エラーをHTTPレスポンスに変換する。
func handleLookupError(w http.ResponseWriter, err error) {
	var lerr *model.LookupError
	if errors.As(err, &lerr) {
		statusCode := mapLookupErrorToHTTPStatus(lerr)
		writeLookupErrorResponse(w, statusCode, lerr)
		return
	}

	// LookupError以外のエラーは内部サーバーエラーとして扱う
	slog.Error("internal server error", slog.String("error", err.Error()))
	middleware.WriteInternalServerError(w)
}

// mapLookupErrorToHTTPStatus はLookupErrorコードからHTTPステータスコードにマッピングする。
// 上流APIに起因する失敗は502として返す。
func mapLookupErrorToHTTPStatus(lerr *model.LookupError) int {
	switch lerr.Code {
	case model.ErrCodeUserNotFound:
		return http.StatusNotFound
	case model.ErrCodeMalformedRequest:
		return http.StatusBadRequest
	case model.ErrCodeEmptyResponse, model.ErrCodeUnexpectedResponse, model.ErrCodeDecodeFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

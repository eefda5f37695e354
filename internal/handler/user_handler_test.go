package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/ghlookup/internal/middleware"
	"github.com/hitoshi/ghlookup/internal/model"
	"github.com/hitoshi/ghlookup/internal/security"
)

// mockUserLookupService は関数フィールドで挙動を差し替えられる検索サービス。
type mockUserLookupService struct {
	lookupFn func(ctx context.Context, login string) (*model.UserProfile, error)
}

func (m *mockUserLookupService) LookupUser(ctx context.Context, login string) (*model.UserProfile, error) {
	return m.lookupFn(ctx, login)
}

func strPtr(s string) *string { return &s }

func octocatProfile() *model.UserProfile {
	return &model.UserProfile{
		ID:          583231,
		Login:       "octocat",
		AvatarURL:   "https://avatars.githubusercontent.com/u/583231",
		HTMLURL:     "https://github.com/octocat",
		Name:        strPtr("The Octocat"),
		Bio:         nil,
		PublicRepos: 8,
		Followers:   1000,
		Following:   9,
	}
}

// newTestRouter はスタブのサービスを組み込んだルーターを生成する。
func newTestRouter(svc UserLookupService) http.Handler {
	return NewRouter(&RouterDeps{
		CORSAllowedOrigin: "http://localhost:3000",
		Logger:            slog.New(slog.NewJSONHandler(io.Discard, nil)),
		UserService:       svc,
		Sanitizer:         security.NewProfileSanitizer(),
	})
}

func TestGetUser_Success(t *testing.T) {
	svc := &mockUserLookupService{
		lookupFn: func(ctx context.Context, login string) (*model.UserProfile, error) {
			if login != "octocat" {
				t.Errorf("login = %q, want octocat", login)
			}
			return octocatProfile(), nil
		},
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/users/octocat", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}

	var body userProfileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスがJSONでない: %v", err)
	}
	if body.ID != 583231 || body.Login != "octocat" {
		t.Errorf("body = %+v", body)
	}
	if body.Name == nil || *body.Name != "The Octocat" {
		t.Errorf("Name = %v, want The Octocat", body.Name)
	}
	if body.Bio != nil {
		t.Errorf("Bio = %v, want nil", body.Bio)
	}
}

// TestGetUser_SanitizesProfileFields はユーザーが編集可能な項目の
// HTMLタグが除去されて返ることを検証する。
func TestGetUser_SanitizesProfileFields(t *testing.T) {
	svc := &mockUserLookupService{
		lookupFn: func(ctx context.Context, login string) (*model.UserProfile, error) {
			p := octocatProfile()
			p.Name = strPtr(`The <script>alert("xss")</script>Octocat`)
			p.Bio = strPtr(`<img src=x onerror=alert(1)>building things`)
			return p, nil
		},
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/users/octocat", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var body userProfileResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスがJSONでない: %v", err)
	}
	if body.Name == nil || *body.Name != "The Octocat" {
		t.Errorf("Name = %v, scriptタグが除去されること", body.Name)
	}
	if body.Bio == nil || *body.Bio != "building things" {
		t.Errorf("Bio = %v, imgタグが除去されること", body.Bio)
	}
}

func TestGetUser_NotFound(t *testing.T) {
	svc := &mockUserLookupService{
		lookupFn: func(ctx context.Context, login string) (*model.UserProfile, error) {
			return nil, model.NewUserNotFoundError()
		},
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/users/no-such-user", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}

	var body middleware.ErrorResponseBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスがJSONでない: %v", err)
	}
	if body.Code != model.ErrCodeUserNotFound {
		t.Errorf("code = %q, want %s", body.Code, model.ErrCodeUserNotFound)
	}
}

func TestGetUser_UpstreamErrorsMapTo502(t *testing.T) {
	codes := []*model.LookupError{
		model.NewEmptyResponseError(),
		model.NewUnexpectedResponseError(),
		model.NewDecodeFailedError(),
	}

	for _, lerr := range codes {
		t.Run(lerr.Code, func(t *testing.T) {
			svc := &mockUserLookupService{
				lookupFn: func(ctx context.Context, login string) (*model.UserProfile, error) {
					return nil, lerr
				},
			}
			router := newTestRouter(svc)

			req := httptest.NewRequest(http.MethodGet, "/api/users/octocat", nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadGateway {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusBadGateway)
			}
		})
	}
}

func TestGetUser_MalformedRequestMapsTo400(t *testing.T) {
	svc := &mockUserLookupService{
		lookupFn: func(ctx context.Context, login string) (*model.UserProfile, error) {
			return nil, model.NewMalformedRequestError()
		},
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/users/octocat", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestGetUser_WhitespaceLoginReturns400(t *testing.T) {
	called := false
	svc := &mockUserLookupService{
		lookupFn: func(ctx context.Context, login string) (*model.UserProfile, error) {
			called = true
			return octocatProfile(), nil
		},
	}
	router := newTestRouter(svc)

	// 空白のみのログイン名（URLエンコード済み）
	req := httptest.NewRequest(http.MethodGet, "/api/users/%20%20", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if called {
		t.Error("空白のみのログイン名で検索サービスが呼ばれた")
	}

	var body middleware.ErrorResponseBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("レスポンスがJSONでない: %v", err)
	}
	if body.Code != model.ErrCodeMalformedRequest {
		t.Errorf("code = %q, want %s", body.Code, model.ErrCodeMalformedRequest)
	}
}

func TestGetUser_UnknownErrorReturns500(t *testing.T) {
	svc := &mockUserLookupService{
		lookupFn: func(ctx context.Context, login string) (*model.UserProfile, error) {
			return nil, errors.New("unexpected internal failure")
		},
	}
	router := newTestRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/users/octocat", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if strings.Contains(rec.Body.String(), "unexpected internal failure") {
		t.Error("内部エラーの詳細がレスポンスに漏れている")
	}
}

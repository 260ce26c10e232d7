package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hitoshi/linkup/internal/model"
)

type mockSessionResolver struct {
	resolveFn func(ctx context.Context, token string) (*model.User, error)
}

func (m *mockSessionResolver) ResolveSession(ctx context.Context, token string) (*model.User, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, token)
	}
	return nil, model.NewUserNotFoundError()
}

func resolverFor(token string, user *model.User) *mockSessionResolver {
	return &mockSessionResolver{
		resolveFn: func(ctx context.Context, got string) (*model.User, error) {
			if got == token {
				return user, nil
			}
			return nil, model.NewUserNotFoundError()
		},
	}
}

// トークンがCookie、Bearerヘッダー、JSONボディのいずれからも抽出されることを検証
func TestRequireSessionMiddleware_TokenSources(t *testing.T) {
	user := &model.User{ID: "user-1"}

	tests := []struct {
		name    string
		request func() *http.Request
	}{
		{
			name: "Cookieから抽出",
			request: func() *http.Request {
				r := httptest.NewRequest(http.MethodGet, "/posts", nil)
				r.AddCookie(&http.Cookie{Name: TokenCookieName, Value: "valid-token"})
				return r
			},
		},
		{
			name: "Bearerヘッダーから抽出",
			request: func() *http.Request {
				r := httptest.NewRequest(http.MethodGet, "/posts", nil)
				r.Header.Set("Authorization", "Bearer valid-token")
				return r
			},
		},
		{
			name: "JSONボディから抽出",
			request: func() *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/createPost", strings.NewReader(`{"token":"valid-token","body":"hello"}`))
				r.Header.Set("Content-Type", "application/json")
				return r
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUserID string
			handler := NewRequireSessionMiddleware(resolverFor("valid-token", user))(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					gotUserID, _ = UserIDFromContext(r.Context())
					w.WriteHeader(http.StatusOK)
				}))

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, tt.request())

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if gotUserID != "user-1" {
				t.Errorf("user ID in context = %q, want user-1", gotUserID)
			}
		})
	}
}

// Cookieのトークンがヘッダー・ボディより優先されることを検証
func TestRequireSessionMiddleware_CookieTakesPrecedence(t *testing.T) {
	var resolvedToken string
	resolver := &mockSessionResolver{
		resolveFn: func(ctx context.Context, token string) (*model.User, error) {
			resolvedToken = token
			return &model.User{ID: "user-1"}, nil
		},
	}

	handler := NewRequireSessionMiddleware(resolver)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	r := httptest.NewRequest(http.MethodPost, "/createPost", strings.NewReader(`{"token":"body-token"}`))
	r.Header.Set("Content-Type", "application/json")
	r.Header.Set("Authorization", "Bearer header-token")
	r.AddCookie(&http.Cookie{Name: TokenCookieName, Value: "cookie-token"})

	handler.ServeHTTP(httptest.NewRecorder(), r)

	if resolvedToken != "cookie-token" {
		t.Errorf("resolved token = %q, want cookie-token", resolvedToken)
	}
}

// ボディからトークンを覗いた後もハンドラーがボディ全体を読めることを検証
func TestRequireSessionMiddleware_BodyIsRestoredAfterPeek(t *testing.T) {
	var gotBody string
	handler := NewRequireSessionMiddleware(resolverFor("valid-token", &model.User{ID: "user-1"}))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, _ := io.ReadAll(r.Body)
			gotBody = string(raw)
		}))

	body := `{"token":"valid-token","body":"hello world"}`
	r := httptest.NewRequest(http.MethodPost, "/createPost", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")

	handler.ServeHTTP(httptest.NewRecorder(), r)

	if gotBody != body {
		t.Errorf("handler read body %q, want %q", gotBody, body)
	}
}

// トークンが無いリクエストに401を返すことを検証
func TestRequireSessionMiddleware_MissingToken(t *testing.T) {
	handler := NewRequireSessionMiddleware(&mockSessionResolver{})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler must not be called without a token")
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body.Code != model.ErrCodeUnauthenticated {
		t.Errorf("error code = %q, want %q", body.Code, model.ErrCodeUnauthenticated)
	}
}

// 解決できないトークンに404を返すことを検証
func TestRequireSessionMiddleware_UnresolvableToken(t *testing.T) {
	handler := NewRequireSessionMiddleware(&mockSessionResolver{})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler must not be called with an unresolvable token")
		}))

	r := httptest.NewRequest(http.MethodGet, "/posts", nil)
	r.Header.Set("Authorization", "Bearer stale-token")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body ErrorResponseBody
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	if body.Code != model.ErrCodeUserNotFound {
		t.Errorf("error code = %q, want %q", body.Code, model.ErrCodeUserNotFound)
	}
}

// OptionalSessionがトークン無しでもリクエストを通すことを検証
func TestOptionalSessionMiddleware_NoToken(t *testing.T) {
	called := false
	handler := NewOptionalSessionMiddleware(&mockSessionResolver{})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			called = true
			if _, err := UserIDFromContext(r.Context()); err == nil {
				t.Error("user ID must not be set without a token")
			}
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/posts", nil))

	if !called {
		t.Error("handler must be called for unauthenticated requests")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

// OptionalSessionが有効なトークンでユーザーIDを注入することを検証
func TestOptionalSessionMiddleware_ValidToken(t *testing.T) {
	var gotUserID string
	handler := NewOptionalSessionMiddleware(resolverFor("valid-token", &model.User{ID: "user-1"}))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotUserID, _ = UserIDFromContext(r.Context())
		}))

	r := httptest.NewRequest(http.MethodGet, "/posts", nil)
	r.Header.Set("Authorization", "Bearer valid-token")
	handler.ServeHTTP(httptest.NewRecorder(), r)

	if gotUserID != "user-1" {
		t.Errorf("user ID = %q, want user-1", gotUserID)
	}
}

// TokenFromContextがセッションミドルウェア通過後に使えることを検証
func TestTokenFromContext(t *testing.T) {
	var gotToken string
	handler := NewRequireSessionMiddleware(resolverFor("valid-token", &model.User{ID: "user-1"}))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotToken, _ = TokenFromContext(r.Context())
		}))

	r := httptest.NewRequest(http.MethodGet, "/posts", nil)
	r.Header.Set("Authorization", "Bearer valid-token")
	handler.ServeHTTP(httptest.NewRecorder(), r)

	if gotToken != "valid-token" {
		t.Errorf("token = %q, want valid-token", gotToken)
	}

	if _, err := TokenFromContext(context.Background()); err == nil {
		t.Error("expected error for context without token")
	}
}

package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/nao1215/ecshop/pkg/token"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// testTokenConfig はテスト用のトークン設定。
func testTokenConfig() token.Config {
	return token.Config{
		Secret:   "test-secret-key-for-unit-tests",
		Issuer:   token.DefaultIssuer,
		Audience: token.DefaultAudience,
	}
}

// authProbe はAuthミドルウェア通過後のプリンシパルとヘッダーを観測するルーターを作る。
func authProbe(cfg token.Config) (*gin.Engine, *struct {
	Principal token.Principal
	Header    http.Header
}) {
	seen := &struct {
		Principal token.Principal
		Header    http.Header
	}{}

	router := gin.New()
	router.Use(Auth(cfg))
	router.GET("/probe", func(c *gin.Context) {
		seen.Principal = Principal(c)
		seen.Header = c.Request.Header.Clone()
		c.Status(http.StatusOK)
	})
	return router, seen
}

// TestAuth はトークン検証ミドルウェアの全状態遷移を検証する。
func TestAuth(t *testing.T) {
	t.Parallel()

	t.Run("有効なトークンでプリンシパルと識別ヘッダーが設定されること", func(t *testing.T) {
		t.Parallel()

		cfg := testTokenConfig()
		raw, _, err := token.Issue(cfg, "user-1", "admin", "admin@ecshop.example")
		if err != nil {
			t.Fatalf("テスト用トークンの発行に失敗: %v", err)
		}

		router, seen := authProbe(cfg)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		router.ServeHTTP(w, req)

		if !seen.Principal.IsAuthenticated() {
			t.Fatal("プリンシパルが未認証")
		}
		if seen.Principal.UserID != "user-1" {
			t.Errorf("UserID = %q, want %q", seen.Principal.UserID, "user-1")
		}
		if got := seen.Header.Get(HeaderUserID); got != "user-1" {
			t.Errorf("%s = %q, want %q", HeaderUserID, got, "user-1")
		}
		if got := seen.Header.Get(HeaderUserName); got != "admin" {
			t.Errorf("%s = %q, want %q", HeaderUserName, got, "admin")
		}
		if got := seen.Header.Get(HeaderUserEmail); got != "admin@ecshop.example" {
			t.Errorf("%s = %q, want %q", HeaderUserEmail, got, "admin@ecshop.example")
		}
	})

	t.Run("トークンがない場合は匿名のまま続行すること", func(t *testing.T) {
		t.Parallel()

		router, seen := authProbe(testTokenConfig())
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/probe", nil))

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d（検証失敗自体はエラーにならない）", w.Code, http.StatusOK)
		}
		if seen.Principal.IsAuthenticated() {
			t.Error("匿名リクエストでプリンシパルが設定された")
		}
		if seen.Header.Get(HeaderUserID) != "" {
			t.Error("匿名リクエストに識別ヘッダーが付与された")
		}
	})

	t.Run("Bearer形式でないAuthorizationヘッダーは匿名扱いになること", func(t *testing.T) {
		t.Parallel()

		router, seen := authProbe(testTokenConfig())
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		if seen.Principal.IsAuthenticated() {
			t.Error("Bearer形式でないヘッダーでプリンシパルが設定された")
		}
	})

	t.Run("無効なトークンは匿名として続行しエラーにならないこと", func(t *testing.T) {
		t.Parallel()

		router, seen := authProbe(testTokenConfig())
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set("Authorization", "Bearer invalid-token")
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		if seen.Principal.IsAuthenticated() {
			t.Error("無効トークンでプリンシパルが設定された")
		}
	})

	t.Run("クライアントが持ち込んだX-User-*ヘッダーが除去されること", func(t *testing.T) {
		t.Parallel()

		router, seen := authProbe(testTokenConfig())
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set(HeaderUserID, "spoofed-id")
		req.Header.Set(HeaderUserName, "spoofed-name")
		req.Header.Set(HeaderUserEmail, "spoofed@example.com")
		router.ServeHTTP(w, req)

		if got := seen.Header.Get(HeaderUserID); got != "" {
			t.Errorf("%s = %q, なりすましヘッダーが残っている", HeaderUserID, got)
		}
		if got := seen.Header.Get(HeaderUserName); got != "" {
			t.Errorf("%s = %q, なりすましヘッダーが残っている", HeaderUserName, got)
		}
		if got := seen.Header.Get(HeaderUserEmail); got != "" {
			t.Errorf("%s = %q, なりすましヘッダーが残っている", HeaderUserEmail, got)
		}
	})

	t.Run("期限切れトークンは匿名扱いになること", func(t *testing.T) {
		t.Parallel()

		cfg := testTokenConfig()
		raw := expiredToken(t, cfg)

		router, seen := authProbe(cfg)
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/probe", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
		}
		if seen.Principal.IsAuthenticated() {
			t.Error("期限切れトークンでプリンシパルが設定された")
		}
	})
}

// expiredToken は1時間前に失効したテスト用トークンを生成する。
func expiredToken(t *testing.T, cfg token.Config) string {
	t.Helper()

	claims := token.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-expired",
			Issuer:    cfg.Issuer,
			Audience:  jwt.ClaimStrings{cfg.Audience},
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-1 * time.Hour)),
		},
		Username: "expired",
		Email:    "expired@example.com",
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.Secret))
	if err != nil {
		t.Fatalf("期限切れトークンの生成に失敗: %v", err)
	}
	return raw
}

// TestRequireAuth はルート単位の認可を検証する。
func TestRequireAuth(t *testing.T) {
	t.Parallel()

	newRouter := func(cfg token.Config) *gin.Engine {
		router := gin.New()
		router.Use(Auth(cfg))
		router.GET("/protected", RequireAuth(), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})
		return router
	}

	t.Run("認証済みリクエストは通過すること", func(t *testing.T) {
		t.Parallel()

		cfg := testTokenConfig()
		raw, _, err := token.Issue(cfg, "user-1", "admin", "admin@ecshop.example")
		if err != nil {
			t.Fatalf("テスト用トークンの発行に失敗: %v", err)
		}

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", "Bearer "+raw)
		newRouter(cfg).ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("status = %d, want %d", w.Code, http.StatusOK)
		}
	})

	t.Run("匿名リクエストは401エンベロープで拒否されること", func(t *testing.T) {
		t.Parallel()

		w := httptest.NewRecorder()
		newRouter(testTokenConfig()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/protected", nil))

		if w.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}

		var env struct {
			Success bool `json:"success"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("レスポンスのデコードに失敗: %v", err)
		}
		if env.Success {
			t.Error("Success = true, want false")
		}
	})
}

// TestForwardedPrincipal は識別ヘッダーからの復元を検証する。
func TestForwardedPrincipal(t *testing.T) {
	t.Parallel()

	t.Run("ヘッダー付きリクエストからプリンシパルを復元できること", func(t *testing.T) {
		t.Parallel()

		var seen token.Principal
		router := gin.New()
		router.GET("/", func(c *gin.Context) {
			seen = ForwardedPrincipal(c)
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderUserID, "user-9")
		req.Header.Set(HeaderUserName, "ahmed")
		req.Header.Set(HeaderUserEmail, "ahmed@example.com")
		router.ServeHTTP(w, req)

		if seen.UserID != "user-9" || seen.Username != "ahmed" || seen.Email != "ahmed@example.com" {
			t.Errorf("ForwardedPrincipal = %+v", seen)
		}
	})

	t.Run("ヘッダーがない場合はRequireForwardedAuthが401を返すこと", func(t *testing.T) {
		t.Parallel()

		router := gin.New()
		router.GET("/", RequireForwardedAuth(), func(c *gin.Context) {
			c.Status(http.StatusOK)
		})

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
		}
	})
}

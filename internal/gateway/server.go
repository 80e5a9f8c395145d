package gateway

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/ecshop/pkg/middleware"
	"github.com/nao1215/ecshop/pkg/response"
	"github.com/nao1215/ecshop/pkg/token"
)

// proxyTimeout はバックエンドサービスへのリクエストのタイムアウト。
const proxyTimeout = 30 * time.Second

// Server はAPI GatewayサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// tokenConfig はトークン検証用の設定。
	tokenConfig token.Config
	// routes はバックエンドサービスへのルーティング表。
	routes routeTable
	// client はプロキシ用のHTTPクライアント。
	client *http.Client
}

// routeTable はパスプレフィックスごとの転送先ベースURL。
// 起動時に構築し、以降は変更しない。
type routeTable struct {
	// Product は商品サービスのベースURL。
	Product string
	// User はユーザーサービスのベースURL。
	User string
	// Order は注文サービスのベースURL。
	Order string
	// Payment は決済サービスのベースURL。
	Payment string
}

// NewServer は新しいGatewayサーバーを生成する。
// 設定はすべて環境変数から読み込み、以降は不変として扱う。
func NewServer(port string) *Server {
	tokenConfig := token.Config{
		Secret:   getEnvOr("JWT_SECRET", token.InsecureDevSecret),
		Issuer:   getEnvOr("JWT_ISSUER", token.DefaultIssuer),
		Audience: getEnvOr("JWT_AUDIENCE", token.DefaultAudience),
	}

	routes := routeTable{
		Product: getEnvOr("PRODUCT_URL", "http://localhost:8081"),
		User:    getEnvOr("USER_URL", "http://localhost:8082"),
		Order:   getEnvOr("ORDER_URL", "http://localhost:8083"),
		Payment: getEnvOr("PAYMENT_URL", "http://localhost:8084"),
	}

	frontendURL := getEnvOr("FRONTEND_URL", "http://localhost:3000")

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.Metrics("gateway"))
	router.Use(middleware.CORS([]string{frontendURL}))
	router.Use(middleware.Auth(tokenConfig))

	s := &Server{
		router:      router,
		port:        port,
		tokenConfig: tokenConfig,
		routes:      routes,
		client:      &http.Client{Timeout: proxyTimeout},
	}
	s.setupRoutes()

	return s
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// setupRoutes はAPIルーティングを設定する。
// 認証ミドルウェア自体は全ルートで動くが、認証の強制はルート単位で行う。
func (s *Server) setupRoutes() {
	requireAuth := middleware.RequireAuth()

	// 商品サービス（参照は匿名可、更新系は認証必須）
	s.router.GET("/api/products", s.proxy(s.routes.Product))
	s.router.GET("/api/products/*path", s.proxy(s.routes.Product))
	s.router.POST("/api/products", requireAuth, s.proxy(s.routes.Product))
	s.router.PUT("/api/products/*path", requireAuth, s.proxy(s.routes.Product))
	s.router.DELETE("/api/products/*path", requireAuth, s.proxy(s.routes.Product))

	// ユーザーサービス（登録とログインのみ匿名可）
	s.router.POST("/api/users/register", s.proxy(s.routes.User))
	s.router.POST("/api/users/login", s.proxy(s.routes.User))
	s.router.GET("/api/users", requireAuth, s.proxy(s.routes.User))
	s.router.GET("/api/users/*path", requireAuth, s.proxy(s.routes.User))
	s.router.PUT("/api/users/*path", requireAuth, s.proxy(s.routes.User))
	s.router.DELETE("/api/users/*path", requireAuth, s.proxy(s.routes.User))

	// 注文サービス（すべて認証必須）
	s.router.GET("/api/orders", requireAuth, s.proxy(s.routes.Order))
	s.router.GET("/api/orders/*path", requireAuth, s.proxy(s.routes.Order))
	s.router.POST("/api/orders", requireAuth, s.proxy(s.routes.Order))
	s.router.PUT("/api/orders/*path", requireAuth, s.proxy(s.routes.Order))
	s.router.DELETE("/api/orders/*path", requireAuth, s.proxy(s.routes.Order))

	// 決済サービス（すべて認証必須）
	s.router.GET("/api/payments", requireAuth, s.proxy(s.routes.Payment))
	s.router.GET("/api/payments/*path", requireAuth, s.proxy(s.routes.Payment))
	s.router.POST("/api/payments/*path", requireAuth, s.proxy(s.routes.Payment))

	// 対応表にないパスには決定的な404を返す
	s.router.NoRoute(func(c *gin.Context) {
		response.Fail(c, http.StatusNotFound, "ルートが見つかりません")
	})

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"service":   "gateway",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	// Prometheusメトリクス
	s.router.GET("/metrics", middleware.MetricsHandler())
}

// proxy は指定されたベースURLへリクエストを中継するハンドラを返す。
//
// パス・クエリ・メソッド・ボディをそのまま転送し、レスポンスのステータスと
// ボディを加工せずに返す。レスポンスのエンベロープには関与しない。
// クライアントが切断した場合はリクエストコンテキスト経由で下流の呼び出しも
// キャンセルされる。
func (s *Server) proxy(baseURL string) gin.HandlerFunc {
	return func(c *gin.Context) {
		target := baseURL + c.Request.URL.Path
		if q := c.Request.URL.RawQuery; q != "" {
			target += "?" + q
		}

		req, err := http.NewRequestWithContext(c.Request.Context(), c.Request.Method, target, c.Request.Body)
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "プロキシリクエストの作成に失敗しました")
			log.Printf("プロキシリクエスト作成エラー: url=%s, error=%v", target, err)
			return
		}

		if ct := c.GetHeader("Content-Type"); ct != "" {
			req.Header.Set("Content-Type", ct)
		}
		// Authミドルウェアが検証済みの場合のみ付与した識別ヘッダーを転送する
		for _, h := range []string{middleware.HeaderUserID, middleware.HeaderUserName, middleware.HeaderUserEmail} {
			if v := c.Request.Header.Get(h); v != "" {
				req.Header.Set(h, v)
			}
		}

		resp, err := s.client.Do(req)
		if err != nil {
			// 接続エラーの生の内容はログにのみ残し、クライアントには合成502を返す
			response.Fail(c, http.StatusBadGateway, "バックエンドサービスとの通信に失敗しました")
			log.Printf("プロキシエラー: url=%s, error=%v", target, err)
			return
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			response.Fail(c, http.StatusBadGateway, "バックエンドサービスの応答の読み取りに失敗しました")
			log.Printf("プロキシ応答読み取りエラー: url=%s, error=%v", target, err)
			return
		}

		contentType := resp.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/json"
		}
		c.Data(resp.StatusCode, contentType, body)
	}
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

package user

import (
	"database/sql"
	"embed"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	userdb "github.com/nao1215/ecshop/internal/user/db"
	"github.com/nao1215/ecshop/pkg/middleware"
	"github.com/nao1215/ecshop/pkg/migration"
	"github.com/nao1215/ecshop/pkg/response"
	"github.com/nao1215/ecshop/pkg/token"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Server はユーザーサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// queries はsqlcが生成したクエリ実行オブジェクト。
	queries *userdb.Queries
	// db はSQLiteデータベース接続。
	db *sql.DB
	// tokenConfig はJWTの署名・検証設定。ゲートウェイと共有する。
	tokenConfig token.Config
}

// NewServer は新しいユーザーサーバーを生成する。
func NewServer(port string) (*Server, error) {
	sqlDB, err := sql.Open("sqlite", "/data/user.db?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := migration.Run(sqlDB, migrationsFS, "migrations"); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.Metrics("user"))

	s := &Server{
		router:  router,
		port:    port,
		queries: userdb.New(sqlDB),
		db:      sqlDB,
		tokenConfig: token.Config{
			Secret:   getEnvOr("JWT_SECRET", token.InsecureDevSecret),
			Issuer:   getEnvOr("JWT_ISSUER", token.DefaultIssuer),
			Audience: getEnvOr("JWT_AUDIENCE", token.DefaultAudience),
		},
	}

	if err := s.seed(); err != nil {
		return nil, fmt.Errorf("シードデータの投入に失敗: %w", err)
	}
	s.setupRoutes()

	return s, nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// setupRoutes はAPIルーティングを設定する。
// 登録とログインは匿名で利用できる。それ以外はゲートウェイの識別ヘッダーを要求する。
func (s *Server) setupRoutes() {
	users := s.router.Group("/api/users")
	{
		// ユーザー登録
		users.POST("/register", s.handleRegister())
		// ログイン（JWT発行）
		users.POST("/login", s.handleLogin())
		// ユーザー一覧取得
		users.GET("", middleware.RequireForwardedAuth(), s.handleList())
		// ユーザー詳細取得
		users.GET("/:id", middleware.RequireForwardedAuth(), s.handleGetByID())
		// プロフィール更新
		users.PUT("/:id", middleware.RequireForwardedAuth(), s.handleUpdate())
		// アカウント無効化
		users.DELETE("/:id", middleware.RequireForwardedAuth(), s.handleDeactivate())
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"service":   "user",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	// Prometheusメトリクス
	s.router.GET("/metrics", middleware.MetricsHandler())
}

// registerRequest はユーザー登録リクエストのJSON構造。
type registerRequest struct {
	// Username はログイン用のユーザー名。
	Username string `json:"username" binding:"required,min=3,max=50"`
	// Email はメールアドレス。
	Email string `json:"email" binding:"required,email"`
	// Password は平文パスワード。保存前にbcryptでハッシュ化する。
	Password string `json:"password" binding:"required,min=6,max=72"`
	// FirstName は名。
	FirstName string `json:"first_name" binding:"max=50"`
	// LastName は姓。
	LastName string `json:"last_name" binding:"max=50"`
}

// loginRequest はログインリクエストのJSON構造。
type loginRequest struct {
	// Username はログイン用のユーザー名。
	Username string `json:"username" binding:"required"`
	// Password は平文パスワード。
	Password string `json:"password" binding:"required"`
}

// updateUserRequest はプロフィール更新リクエストのJSON構造。
// nilのフィールドは変更しない。
type updateUserRequest struct {
	// Email はメールアドレス。
	Email *string `json:"email" binding:"omitempty,email"`
	// FirstName は名。
	FirstName *string `json:"first_name" binding:"omitempty,max=50"`
	// LastName は姓。
	LastName *string `json:"last_name" binding:"omitempty,max=50"`
}

// userResponse はユーザーのJSONレスポンス構造。
// パスワードハッシュは決して含めない。
type userResponse struct {
	// ID はユーザーの一意識別子。
	ID string `json:"id"`
	// Username はユーザー名。
	Username string `json:"username"`
	// Email はメールアドレス。
	Email string `json:"email"`
	// FirstName は名。
	FirstName string `json:"first_name"`
	// LastName は姓。
	LastName string `json:"last_name"`
	// IsActive は有効フラグ。
	IsActive bool `json:"is_active"`
	// CreatedAt は作成日時。
	CreatedAt string `json:"created_at"`
}

// loginResponse はログイン成功時のJSONレスポンス構造。
type loginResponse struct {
	// Token は発行したJWTアクセストークン。
	Token string `json:"token"`
	// User はログインしたユーザーの情報。
	User userResponse `json:"user"`
	// ExpiresAt はトークンの有効期限。
	ExpiresAt string `json:"expires_at"`
}

// toUserResponse はDB行をJSONレスポンスに変換する。
func toUserResponse(u userdb.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// handleRegister はユーザー登録を処理するハンドラを返す。
// 登録に成功した場合はログインと同様にJWTアクセストークンを発行し、
// クライアントが再ログインせずにそのまま認証済み操作へ進めるようにする。
func (s *Server) handleRegister() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BindError(c, err)
			return
		}

		count, err := s.queries.CountUsersByUsernameOrEmail(c.Request.Context(), userdb.CountUsersByUsernameOrEmailParams{
			Username: req.Username,
			Email:    req.Email,
		})
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "ユーザー登録に失敗しました")
			log.Printf("重複チェックエラー: %v", err)
			return
		}
		if count > 0 {
			response.Fail(c, http.StatusBadRequest, "ユーザー名またはメールアドレスは既に使用されています")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "ユーザー登録に失敗しました")
			log.Printf("パスワードハッシュ化エラー: %v", err)
			return
		}

		userID := uuid.New().String()
		if err := s.queries.CreateUser(c.Request.Context(), userdb.CreateUserParams{
			ID:           userID,
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: string(hash),
			FirstName:    req.FirstName,
			LastName:     req.LastName,
		}); err != nil {
			response.Fail(c, http.StatusInternalServerError, "ユーザー登録に失敗しました")
			log.Printf("ユーザー作成エラー: %v", err)
			return
		}

		created, err := s.queries.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "作成したユーザーの取得に失敗しました")
			log.Printf("ユーザー取得エラー: %v", err)
			return
		}

		signed, expiresAt, err := token.Issue(s.tokenConfig, created.ID, created.Username, created.Email)
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "トークンの発行に失敗しました")
			log.Printf("トークン発行エラー: %v", err)
			return
		}

		response.Created(c, "ユーザーを登録しました", loginResponse{
			Token:     signed,
			User:      toUserResponse(created),
			ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
		})
	}
}

// handleLogin はログインを処理するハンドラを返す。
// 認証に成功した場合はJWTアクセストークンを発行する。
func (s *Server) handleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BindError(c, err)
			return
		}

		u, ok := s.validateCredentials(c.Request.Context(), req.Username, req.Password)
		if !ok {
			// 失敗理由は区別せず同じメッセージを返す。
			response.Fail(c, http.StatusUnauthorized, "ユーザー名またはパスワードが正しくありません")
			return
		}

		signed, expiresAt, err := token.Issue(s.tokenConfig, u.ID, u.Username, u.Email)
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "トークンの発行に失敗しました")
			log.Printf("トークン発行エラー: %v", err)
			return
		}

		response.OK(c, "ログインしました", loginResponse{
			Token:     signed,
			User:      toUserResponse(u),
			ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
		})
	}
}

// handleList はユーザー一覧取得を処理するハンドラを返す。
func (s *Server) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
		if err != nil || page < 1 {
			page = 1
		}
		pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "10"))
		if err != nil || pageSize < 1 {
			pageSize = 10
		}
		if pageSize > 100 {
			pageSize = 100
		}

		total, err := s.queries.CountUsers(c.Request.Context())
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "ユーザー一覧の取得に失敗しました")
			log.Printf("ユーザー数取得エラー: %v", err)
			return
		}

		users, err := s.queries.ListUsers(c.Request.Context(), userdb.ListUsersParams{
			Limit:  int64(pageSize),
			Offset: int64((page - 1) * pageSize),
		})
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "ユーザー一覧の取得に失敗しました")
			log.Printf("ユーザー一覧取得エラー: %v", err)
			return
		}

		items := make([]userResponse, 0, len(users))
		for _, u := range users {
			items = append(items, toUserResponse(u))
		}

		response.OK(c, "ユーザー一覧を取得しました", response.NewPaged(items, total, page, pageSize))
	}
}

// handleGetByID はユーザー詳細取得を処理するハンドラを返す。
func (s *Server) handleGetByID() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := s.queries.GetUserByID(c.Request.Context(), c.Param("id"))
		if err == sql.ErrNoRows {
			response.Fail(c, http.StatusNotFound, "ユーザーが見つかりません")
			return
		}
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "ユーザーの取得に失敗しました")
			log.Printf("ユーザー取得エラー: %v", err)
			return
		}

		response.OK(c, "ユーザーを取得しました", toUserResponse(u))
	}
}

// handleUpdate はプロフィール更新を処理するハンドラを返す。
// リクエストに含まれるフィールドだけを上書きする。
func (s *Server) handleUpdate() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("id")

		existing, err := s.queries.GetUserByID(c.Request.Context(), userID)
		if err == sql.ErrNoRows {
			response.Fail(c, http.StatusNotFound, "ユーザーが見つかりません")
			return
		}
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "ユーザーの取得に失敗しました")
			log.Printf("ユーザー取得エラー: %v", err)
			return
		}

		var req updateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BindError(c, err)
			return
		}

		if req.Email != nil {
			existing.Email = *req.Email
		}
		if req.FirstName != nil {
			existing.FirstName = *req.FirstName
		}
		if req.LastName != nil {
			existing.LastName = *req.LastName
		}

		if err := s.queries.UpdateUser(c.Request.Context(), userdb.UpdateUserParams{
			Email:     existing.Email,
			FirstName: existing.FirstName,
			LastName:  existing.LastName,
			ID:        userID,
		}); err != nil {
			response.Fail(c, http.StatusInternalServerError, "ユーザーの更新に失敗しました")
			log.Printf("ユーザー更新エラー: %v", err)
			return
		}

		updated, err := s.queries.GetUserByID(c.Request.Context(), userID)
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "更新後のユーザーの取得に失敗しました")
			log.Printf("ユーザー取得エラー: %v", err)
			return
		}

		response.OK(c, "ユーザーを更新しました", toUserResponse(updated))
	}
}

// handleDeactivate はアカウント無効化を処理するハンドラを返す。
// レコードは削除せず、有効フラグを落とすだけにする。
func (s *Server) handleDeactivate() gin.HandlerFunc {
	return func(c *gin.Context) {
		affected, err := s.queries.DeactivateUser(c.Request.Context(), c.Param("id"))
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "ユーザーの無効化に失敗しました")
			log.Printf("ユーザー無効化エラー: %v", err)
			return
		}
		if affected == 0 {
			response.Fail(c, http.StatusNotFound, "ユーザーが見つかりません")
			return
		}

		response.OK(c, "ユーザーを無効化しました", true)
	}
}

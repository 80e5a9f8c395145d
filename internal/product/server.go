package product

import (
	"database/sql"
	"embed"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	productdb "github.com/nao1215/ecshop/internal/product/db"
	"github.com/nao1215/ecshop/pkg/middleware"
	"github.com/nao1215/ecshop/pkg/migration"
	"github.com/nao1215/ecshop/pkg/response"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Server は商品サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// queries はsqlcが生成したクエリ実行オブジェクト。
	queries *productdb.Queries
	// db はSQLiteデータベース接続。
	db *sql.DB
}

// NewServer は新しい商品サーバーを生成する。
// SQLiteデータベースの初期化とシードデータの投入を行う。
func NewServer(port string) (*Server, error) {
	sqlDB, err := sql.Open("sqlite", "/data/product.db?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := migration.Run(sqlDB, migrationsFS, "migrations"); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.Metrics("product"))

	s := &Server{
		router:  router,
		port:    port,
		queries: productdb.New(sqlDB),
		db:      sqlDB,
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
// 参照系は匿名で利用できる。更新系はゲートウェイの識別ヘッダーを要求する。
func (s *Server) setupRoutes() {
	products := s.router.Group("/api/products")
	{
		// 商品一覧取得（ページング・絞り込み付き）
		products.GET("", s.handleList())
		// 商品詳細取得
		products.GET("/:id", s.handleGetByID())
		// 商品作成
		products.POST("", middleware.RequireForwardedAuth(), s.handleCreate())
		// 商品更新（部分更新）
		products.PUT("/:id", middleware.RequireForwardedAuth(), s.handleUpdate())
		// 商品削除
		products.DELETE("/:id", middleware.RequireForwardedAuth(), s.handleDelete())
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"service":   "product",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	// Prometheusメトリクス
	s.router.GET("/metrics", middleware.MetricsHandler())
}

// createProductRequest は商品作成リクエストのJSON構造。
type createProductRequest struct {
	// Name は商品名。
	Name string `json:"name" binding:"required,max=100"`
	// Description は商品の説明。
	Description string `json:"description" binding:"max=500"`
	// Price は価格。0より大きいこと。
	Price float64 `json:"price" binding:"required,gt=0"`
	// Stock は在庫数。
	Stock int64 `json:"stock" binding:"gte=0"`
	// Category はカテゴリ。
	Category string `json:"category"`
}

// updateProductRequest は商品の部分更新リクエストのJSON構造。
// nilのフィールドは変更しない。
type updateProductRequest struct {
	// Name は商品名。
	Name *string `json:"name" binding:"omitempty,max=100"`
	// Description は商品の説明。
	Description *string `json:"description" binding:"omitempty,max=500"`
	// Price は価格。
	Price *float64 `json:"price" binding:"omitempty,gt=0"`
	// Stock は在庫数。
	Stock *int64 `json:"stock" binding:"omitempty,gte=0"`
	// Category はカテゴリ。
	Category *string `json:"category"`
}

// productResponse は商品のJSONレスポンス構造。
type productResponse struct {
	// ID は商品の一意識別子。
	ID string `json:"id"`
	// Name は商品名。
	Name string `json:"name"`
	// Description は商品の説明。
	Description string `json:"description"`
	// Price は価格。
	Price float64 `json:"price"`
	// Stock は在庫数。
	Stock int64 `json:"stock"`
	// Category はカテゴリ。
	Category string `json:"category"`
	// CreatedAt は作成日時。
	CreatedAt string `json:"created_at"`
	// UpdatedAt は更新日時。
	UpdatedAt string `json:"updated_at"`
}

// toProductResponse はDB行をJSONレスポンスに変換する。
func toProductResponse(p productdb.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Stock:       p.Stock,
		Category:    p.Category,
		CreatedAt:   p.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:   p.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// handleList は商品一覧取得を処理するハンドラを返す。
// page・page_sizeによるページングと、category・searchによる絞り込みに対応する。
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
		category := c.Query("category")
		search := c.Query("search")

		total, err := s.queries.CountProducts(c.Request.Context(), productdb.CountProductsParams{
			Category: category,
			Search:   search,
		})
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "商品一覧の取得に失敗しました")
			log.Printf("商品数取得エラー: %v", err)
			return
		}

		products, err := s.queries.ListProducts(c.Request.Context(), productdb.ListProductsParams{
			Category: category,
			Search:   search,
			Limit:    int64(pageSize),
			Offset:   int64((page - 1) * pageSize),
		})
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "商品一覧の取得に失敗しました")
			log.Printf("商品一覧取得エラー: %v", err)
			return
		}

		items := make([]productResponse, 0, len(products))
		for _, p := range products {
			items = append(items, toProductResponse(p))
		}

		response.OK(c, "商品一覧を取得しました", response.NewPaged(items, total, page, pageSize))
	}
}

// handleGetByID は商品詳細取得を処理するハンドラを返す。
func (s *Server) handleGetByID() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := s.queries.GetProductByID(c.Request.Context(), c.Param("id"))
		if err == sql.ErrNoRows {
			response.Fail(c, http.StatusNotFound, "商品が見つかりません")
			return
		}
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "商品の取得に失敗しました")
			log.Printf("商品取得エラー: %v", err)
			return
		}

		response.OK(c, "商品を取得しました", toProductResponse(p))
	}
}

// handleCreate は商品作成を処理するハンドラを返す。
func (s *Server) handleCreate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BindError(c, err)
			return
		}

		productID := uuid.New().String()
		if err := s.queries.CreateProduct(c.Request.Context(), productdb.CreateProductParams{
			ID:          productID,
			Name:        req.Name,
			Description: req.Description,
			Price:       req.Price,
			Stock:       req.Stock,
			Category:    req.Category,
		}); err != nil {
			response.Fail(c, http.StatusInternalServerError, "商品の作成に失敗しました")
			log.Printf("商品作成エラー: %v", err)
			return
		}

		created, err := s.queries.GetProductByID(c.Request.Context(), productID)
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "作成した商品の取得に失敗しました")
			log.Printf("商品取得エラー: %v", err)
			return
		}

		response.Created(c, "商品を作成しました", toProductResponse(created))
	}
}

// handleUpdate は商品の部分更新を処理するハンドラを返す。
// リクエストに含まれるフィールドだけを上書きする。
func (s *Server) handleUpdate() gin.HandlerFunc {
	return func(c *gin.Context) {
		productID := c.Param("id")

		existing, err := s.queries.GetProductByID(c.Request.Context(), productID)
		if err == sql.ErrNoRows {
			response.Fail(c, http.StatusNotFound, "商品が見つかりません")
			return
		}
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "商品の取得に失敗しました")
			log.Printf("商品取得エラー: %v", err)
			return
		}

		var req updateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BindError(c, err)
			return
		}

		if req.Name != nil {
			existing.Name = *req.Name
		}
		if req.Description != nil {
			existing.Description = *req.Description
		}
		if req.Price != nil {
			existing.Price = *req.Price
		}
		if req.Stock != nil {
			existing.Stock = *req.Stock
		}
		if req.Category != nil {
			existing.Category = *req.Category
		}

		if err := s.queries.UpdateProduct(c.Request.Context(), productdb.UpdateProductParams{
			Name:        existing.Name,
			Description: existing.Description,
			Price:       existing.Price,
			Stock:       existing.Stock,
			Category:    existing.Category,
			ID:          productID,
		}); err != nil {
			response.Fail(c, http.StatusInternalServerError, "商品の更新に失敗しました")
			log.Printf("商品更新エラー: %v", err)
			return
		}

		updated, err := s.queries.GetProductByID(c.Request.Context(), productID)
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "更新後の商品の取得に失敗しました")
			log.Printf("商品取得エラー: %v", err)
			return
		}

		response.OK(c, "商品を更新しました", toProductResponse(updated))
	}
}

// handleDelete は商品削除を処理するハンドラを返す。
func (s *Server) handleDelete() gin.HandlerFunc {
	return func(c *gin.Context) {
		affected, err := s.queries.DeleteProduct(c.Request.Context(), c.Param("id"))
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "商品の削除に失敗しました")
			log.Printf("商品削除エラー: %v", err)
			return
		}
		if affected == 0 {
			response.Fail(c, http.StatusNotFound, "商品が見つかりません")
			return
		}

		response.OK(c, "商品を削除しました", true)
	}
}

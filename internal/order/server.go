package order

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	orderdb "github.com/nao1215/ecshop/internal/order/db"
	"github.com/nao1215/ecshop/pkg/httpclient"
	"github.com/nao1215/ecshop/pkg/middleware"
	"github.com/nao1215/ecshop/pkg/migration"
	"github.com/nao1215/ecshop/pkg/response"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Server は注文サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// queries はsqlcが生成したクエリ実行オブジェクト。
	queries *orderdb.Queries
	// db はSQLiteデータベース接続。
	db *sql.DB
	// productClient は商品サービスへの問い合わせに使うHTTPクライアント。
	productClient *httpclient.Client
}

// NewServer は新しい注文サーバーを生成する。
func NewServer(port string) (*Server, error) {
	// 明細のカスケード削除に外部キー制約を使うため、foreign_keysを有効にする。
	sqlDB, err := sql.Open("sqlite", "/data/order.db?_journal_mode=WAL&_busy_timeout=5000&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := migration.Run(sqlDB, migrationsFS, "migrations"); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.Metrics("order"))

	s := &Server{
		router:        router,
		port:          port,
		queries:       orderdb.New(sqlDB),
		db:            sqlDB,
		productClient: httpclient.New(getEnvOr("PRODUCT_URL", "http://localhost:8081")),
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
// 注文APIはすべてゲートウェイの識別ヘッダーを要求する。
func (s *Server) setupRoutes() {
	orders := s.router.Group("/api/orders", middleware.RequireForwardedAuth())
	{
		// 注文作成
		orders.POST("", s.handleCreate())
		// 注文一覧取得
		orders.GET("", s.handleList())
		// 注文詳細取得（明細付き）
		orders.GET("/:id", s.handleGetByID())
		// ステータス更新
		orders.PUT("/:id/status", s.handleUpdateStatus())
		// 注文削除
		orders.DELETE("/:id", s.handleDelete())
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"service":   "order",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})

	// Prometheusメトリクス
	s.router.GET("/metrics", middleware.MetricsHandler())
}

// getEnvOr は環境変数を取得し、設定されていない場合はデフォルト値を返す。
func getEnvOr(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// createOrderItemRequest は注文明細のJSON構造。
type createOrderItemRequest struct {
	// ProductID は注文する商品のID。
	ProductID string `json:"product_id" binding:"required"`
	// Quantity は数量。
	Quantity int64 `json:"quantity" binding:"required,gt=0"`
}

// createOrderRequest は注文作成リクエストのJSON構造。
type createOrderRequest struct {
	// ShippingAddress は配送先住所。
	ShippingAddress string `json:"shipping_address" binding:"required,max=200"`
	// Items は注文明細。1件以上必要。
	Items []createOrderItemRequest `json:"items" binding:"required,min=1,dive"`
}

// updateStatusRequest はステータス更新リクエストのJSON構造。
type updateStatusRequest struct {
	// Status は遷移先のステータス。
	Status string `json:"status" binding:"required"`
}

// orderItemResponse は注文明細のJSONレスポンス構造。
type orderItemResponse struct {
	// ID は注文明細の一意識別子。
	ID string `json:"id"`
	// ProductID は商品のID。
	ProductID string `json:"product_id"`
	// ProductName は注文時点の商品名。
	ProductName string `json:"product_name"`
	// Quantity は数量。
	Quantity int64 `json:"quantity"`
	// UnitPrice は注文時点の単価。
	UnitPrice float64 `json:"unit_price"`
}

// orderResponse は注文のJSONレスポンス構造。
type orderResponse struct {
	// ID は注文の一意識別子。
	ID string `json:"id"`
	// UserID は注文したユーザーのID。
	UserID string `json:"user_id"`
	// Status は注文ステータス。
	Status string `json:"status"`
	// TotalAmount は合計金額。
	TotalAmount float64 `json:"total_amount"`
	// ShippingAddress は配送先住所。
	ShippingAddress string `json:"shipping_address"`
	// Items は注文明細。一覧取得では省略される。
	Items []orderItemResponse `json:"items,omitempty"`
	// CreatedAt は作成日時。
	CreatedAt string `json:"created_at"`
	// UpdatedAt は更新日時。
	UpdatedAt string `json:"updated_at"`
}

// toOrderResponse はDB行をJSONレスポンスに変換する。
func toOrderResponse(o orderdb.Order, items []orderdb.OrderItem) orderResponse {
	resp := orderResponse{
		ID:              o.ID,
		UserID:          o.UserID,
		Status:          o.Status,
		TotalAmount:     o.TotalAmount,
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       o.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:       o.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, orderItemResponse{
			ID:          item.ID,
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}
	return resp
}

// productInfo は商品サービスから取得する商品情報。
type productInfo struct {
	// ID は商品の一意識別子。
	ID string `json:"id"`
	// Name は商品名。
	Name string `json:"name"`
	// Price は価格。
	Price float64 `json:"price"`
	// Stock は在庫数。
	Stock int64 `json:"stock"`
}

// handleCreate は注文作成を処理するハンドラを返す。
// 単価は商品サービスから取得し、合計金額はサーバー側で計算する。
func (s *Server) handleCreate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createOrderRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BindError(c, err)
			return
		}

		principal := middleware.ForwardedPrincipal(c)
		ctx := httpclient.WithPrincipal(c.Request.Context(), principal)

		// 商品サービスに問い合わせて単価と在庫を確認する。
		var total float64
		items := make([]orderdb.CreateOrderItemParams, 0, len(req.Items))
		for _, item := range req.Items {
			var envelope struct {
				Data productInfo `json:"data"`
			}
			err := s.productClient.GetJSON(ctx, "/api/products/"+item.ProductID, &envelope)
			if errors.Is(err, httpclient.ErrNotFound) {
				response.Fail(c, http.StatusBadRequest, fmt.Sprintf("商品%sが見つかりません", item.ProductID))
				return
			}
			if err != nil {
				response.Fail(c, http.StatusBadGateway, "商品情報の取得に失敗しました")
				log.Printf("商品取得エラー: %v", err)
				return
			}
			if envelope.Data.Stock < item.Quantity {
				response.Fail(c, http.StatusBadRequest, fmt.Sprintf("商品%sの在庫が不足しています", envelope.Data.Name))
				return
			}

			total += envelope.Data.Price * float64(item.Quantity)
			items = append(items, orderdb.CreateOrderItemParams{
				ID:          uuid.New().String(),
				ProductID:   item.ProductID,
				ProductName: envelope.Data.Name,
				Quantity:    item.Quantity,
				UnitPrice:   envelope.Data.Price,
			})
		}

		orderID := uuid.New().String()
		tx, err := s.db.BeginTx(c.Request.Context(), nil)
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "注文の作成に失敗しました")
			log.Printf("トランザクション開始エラー: %v", err)
			return
		}
		defer tx.Rollback()

		qtx := s.queries.WithTx(tx)
		if err := qtx.CreateOrder(c.Request.Context(), orderdb.CreateOrderParams{
			ID:              orderID,
			UserID:          principal.UserID,
			Status:          StatusPending,
			TotalAmount:     total,
			ShippingAddress: req.ShippingAddress,
		}); err != nil {
			response.Fail(c, http.StatusInternalServerError, "注文の作成に失敗しました")
			log.Printf("注文作成エラー: %v", err)
			return
		}
		for _, item := range items {
			item.OrderID = orderID
			if err := qtx.CreateOrderItem(c.Request.Context(), item); err != nil {
				response.Fail(c, http.StatusInternalServerError, "注文明細の作成に失敗しました")
				log.Printf("注文明細作成エラー: %v", err)
				return
			}
		}
		if err := tx.Commit(); err != nil {
			response.Fail(c, http.StatusInternalServerError, "注文の作成に失敗しました")
			log.Printf("トランザクションコミットエラー: %v", err)
			return
		}

		created, err := s.queries.GetOrderByID(c.Request.Context(), orderID)
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "作成した注文の取得に失敗しました")
			log.Printf("注文取得エラー: %v", err)
			return
		}
		createdItems, err := s.queries.ListOrderItems(c.Request.Context(), orderID)
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "注文明細の取得に失敗しました")
			log.Printf("注文明細取得エラー: %v", err)
			return
		}

		response.Created(c, "注文を作成しました", toOrderResponse(created, createdItems))
	}
}

// handleList は注文一覧取得を処理するハンドラを返す。
// user_idクエリパラメータで特定ユーザーの注文に絞り込める。
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
		userID := c.Query("user_id")

		total, err := s.queries.CountOrders(c.Request.Context(), userID)
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "注文一覧の取得に失敗しました")
			log.Printf("注文数取得エラー: %v", err)
			return
		}

		orders, err := s.queries.ListOrders(c.Request.Context(), orderdb.ListOrdersParams{
			UserID: userID,
			Limit:  int64(pageSize),
			Offset: int64((page - 1) * pageSize),
		})
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "注文一覧の取得に失敗しました")
			log.Printf("注文一覧取得エラー: %v", err)
			return
		}

		items := make([]orderResponse, 0, len(orders))
		for _, o := range orders {
			items = append(items, toOrderResponse(o, nil))
		}

		response.OK(c, "注文一覧を取得しました", response.NewPaged(items, total, page, pageSize))
	}
}

// handleGetByID は注文詳細取得を処理するハンドラを返す。明細も一緒に返す。
func (s *Server) handleGetByID() gin.HandlerFunc {
	return func(c *gin.Context) {
		o, err := s.queries.GetOrderByID(c.Request.Context(), c.Param("id"))
		if err == sql.ErrNoRows {
			response.Fail(c, http.StatusNotFound, "注文が見つかりません")
			return
		}
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "注文の取得に失敗しました")
			log.Printf("注文取得エラー: %v", err)
			return
		}

		items, err := s.queries.ListOrderItems(c.Request.Context(), o.ID)
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "注文明細の取得に失敗しました")
			log.Printf("注文明細取得エラー: %v", err)
			return
		}

		response.OK(c, "注文を取得しました", toOrderResponse(o, items))
	}
}

// handleUpdateStatus はステータス更新を処理するハンドラを返す。
// 許可されない遷移は400を返す。
func (s *Server) handleUpdateStatus() gin.HandlerFunc {
	return func(c *gin.Context) {
		orderID := c.Param("id")

		var req updateStatusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BindError(c, err)
			return
		}
		if !isValidStatus(req.Status) {
			response.Fail(c, http.StatusBadRequest, fmt.Sprintf("不正なステータスです: %s", req.Status))
			return
		}

		o, err := s.queries.GetOrderByID(c.Request.Context(), orderID)
		if err == sql.ErrNoRows {
			response.Fail(c, http.StatusNotFound, "注文が見つかりません")
			return
		}
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "注文の取得に失敗しました")
			log.Printf("注文取得エラー: %v", err)
			return
		}

		if !canTransition(o.Status, req.Status) {
			response.Fail(c, http.StatusBadRequest,
				fmt.Sprintf("%sから%sへは遷移できません", o.Status, req.Status))
			return
		}

		if err := s.queries.UpdateOrderStatus(c.Request.Context(), orderdb.UpdateOrderStatusParams{
			Status: req.Status,
			ID:     orderID,
		}); err != nil {
			response.Fail(c, http.StatusInternalServerError, "ステータスの更新に失敗しました")
			log.Printf("ステータス更新エラー: %v", err)
			return
		}

		updated, err := s.queries.GetOrderByID(c.Request.Context(), orderID)
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "更新後の注文の取得に失敗しました")
			log.Printf("注文取得エラー: %v", err)
			return
		}

		response.OK(c, "ステータスを更新しました", toOrderResponse(updated, nil))
	}
}

// handleDelete は注文削除を処理するハンドラを返す。
// 明細は外部キーのカスケードで一緒に削除される。
func (s *Server) handleDelete() gin.HandlerFunc {
	return func(c *gin.Context) {
		affected, err := s.queries.DeleteOrder(c.Request.Context(), c.Param("id"))
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "注文の削除に失敗しました")
			log.Printf("注文削除エラー: %v", err)
			return
		}
		if affected == 0 {
			response.Fail(c, http.StatusNotFound, "注文が見つかりません")
			return
		}

		response.OK(c, "注文を削除しました", true)
	}
}

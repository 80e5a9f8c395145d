package payment

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	paymentdb "github.com/nao1215/ecshop/internal/payment/db"
	"github.com/nao1215/ecshop/pkg/httpclient"
	"github.com/nao1215/ecshop/pkg/middleware"
	"github.com/nao1215/ecshop/pkg/migration"
	"github.com/nao1215/ecshop/pkg/response"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// 決済ステータス。
const (
	// StatusCompleted は決済成功。
	StatusCompleted = "completed"
	// StatusFailed は決済失敗。
	StatusFailed = "failed"
	// StatusRefunded は返金済み。
	StatusRefunded = "refunded"
)

// validMethods は受け付ける決済方法の一覧。
var validMethods = map[string]bool{
	"credit_card":      true,
	"debit_card":       true,
	"paypal":           true,
	"bank_transfer":    true,
	"cash_on_delivery": true,
}

// Server は決済サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// queries はsqlcが生成したクエリ実行オブジェクト。
	queries *paymentdb.Queries
	// db はSQLiteデータベース接続。
	db *sql.DB
	// orderClient は注文サービスへの問い合わせに使うHTTPクライアント。
	orderClient *httpclient.Client
	// gateway は決済ゲートウェイ。テストでは決定的な実装に差し替える。
	gateway paymentGateway
}

// NewServer は新しい決済サーバーを生成する。
func NewServer(port string) (*Server, error) {
	sqlDB, err := sql.Open("sqlite", "/data/payment.db?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if err := migration.Run(sqlDB, migrationsFS, "migrations"); err != nil {
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.Metrics("payment"))

	s := &Server{
		router:      router,
		port:        port,
		queries:     paymentdb.New(sqlDB),
		db:          sqlDB,
		orderClient: httpclient.New(getEnvOr("ORDER_URL", "http://localhost:8083")),
		gateway:     newSimulatedGateway(),
	}
	s.setupRoutes()

	return s, nil
}

// Run はHTTPサーバーを起動する。
func (s *Server) Run() error {
	return s.router.Run(fmt.Sprintf(":%s", s.port))
}

// setupRoutes はAPIルーティングを設定する。
// 決済APIはすべてゲートウェイの識別ヘッダーを要求する。
func (s *Server) setupRoutes() {
	payments := s.router.Group("/api/payments", middleware.RequireForwardedAuth())
	{
		// 決済実行
		payments.POST("/process", s.handleProcess())
		// 決済詳細取得
		payments.GET("/:id", s.handleGetByID())
		// 注文ごとの決済履歴取得
		payments.GET("/order/:orderID", s.handleListByOrder())
		// 返金
		payments.POST("/:id/refund", s.handleRefund())
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"service":   "payment",
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

// processPaymentRequest は決済実行リクエストのJSON構造。
type processPaymentRequest struct {
	// OrderID は決済対象の注文ID。
	OrderID string `json:"order_id" binding:"required"`
	// Method は決済方法。
	Method string `json:"method" binding:"required"`
}

// paymentResponse は決済のJSONレスポンス構造。
type paymentResponse struct {
	// ID は決済の一意識別子。
	ID string `json:"id"`
	// OrderID は対象となる注文のID。
	OrderID string `json:"order_id"`
	// Amount は決済金額。
	Amount float64 `json:"amount"`
	// Method は決済方法。
	Method string `json:"method"`
	// Status は決済ステータス。
	Status string `json:"status"`
	// TransactionID はゲートウェイが発行したトランザクションID。
	TransactionID string `json:"transaction_id"`
	// CreatedAt は作成日時。
	CreatedAt string `json:"created_at"`
	// UpdatedAt は更新日時。
	UpdatedAt string `json:"updated_at"`
}

// toPaymentResponse はDB行をJSONレスポンスに変換する。
func toPaymentResponse(p paymentdb.Payment) paymentResponse {
	return paymentResponse{
		ID:            p.ID,
		OrderID:       p.OrderID,
		Amount:        p.Amount,
		Method:        p.Method,
		Status:        p.Status,
		TransactionID: p.TransactionID,
		CreatedAt:     p.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:     p.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// orderInfo は注文サービスから取得する注文情報。
type orderInfo struct {
	// ID は注文の一意識別子。
	ID string `json:"id"`
	// TotalAmount は合計金額。
	TotalAmount float64 `json:"total_amount"`
	// Status は注文ステータス。
	Status string `json:"status"`
}

// handleProcess は決済実行を処理するハンドラを返す。
// 決済金額はクライアントから受け取らず、注文サービスに問い合わせる。
func (s *Server) handleProcess() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req processPaymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BindError(c, err)
			return
		}
		if !validMethods[req.Method] {
			response.Fail(c, http.StatusBadRequest, fmt.Sprintf("不正な決済方法です: %s", req.Method))
			return
		}

		ctx := httpclient.WithPrincipal(c.Request.Context(), middleware.ForwardedPrincipal(c))

		var envelope struct {
			Data orderInfo `json:"data"`
		}
		err := s.orderClient.GetJSON(ctx, "/api/orders/"+req.OrderID, &envelope)
		if errors.Is(err, httpclient.ErrNotFound) {
			response.Fail(c, http.StatusBadRequest, fmt.Sprintf("注文%sが見つかりません", req.OrderID))
			return
		}
		if err != nil {
			response.Fail(c, http.StatusBadGateway, "注文情報の取得に失敗しました")
			log.Printf("注文取得エラー: %v", err)
			return
		}

		// 同一注文への二重決済を防ぐ。
		completed, err := s.queries.CountCompletedPaymentsByOrderID(c.Request.Context(), req.OrderID)
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "決済処理に失敗しました")
			log.Printf("決済重複チェックエラー: %v", err)
			return
		}
		if completed > 0 {
			response.Fail(c, http.StatusBadRequest, "この注文は既に決済済みです")
			return
		}

		amount := envelope.Data.TotalAmount
		transactionID, chargeErr := s.gateway.Charge(c.Request.Context(), amount, req.Method)
		status := StatusCompleted
		if chargeErr != nil {
			if !errors.Is(chargeErr, errDeclined) {
				response.Fail(c, http.StatusInternalServerError, "決済処理に失敗しました")
				log.Printf("決済ゲートウェイエラー: %v", chargeErr)
				return
			}
			status = StatusFailed
		}

		paymentID := uuid.New().String()
		if err := s.queries.CreatePayment(c.Request.Context(), paymentdb.CreatePaymentParams{
			ID:            paymentID,
			OrderID:       req.OrderID,
			Amount:        amount,
			Method:        req.Method,
			Status:        status,
			TransactionID: transactionID,
		}); err != nil {
			response.Fail(c, http.StatusInternalServerError, "決済結果の保存に失敗しました")
			log.Printf("決済作成エラー: %v", err)
			return
		}

		created, err := s.queries.GetPaymentByID(c.Request.Context(), paymentID)
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "決済結果の取得に失敗しました")
			log.Printf("決済取得エラー: %v", err)
			return
		}

		if status == StatusFailed {
			response.Fail(c, http.StatusBadRequest, "決済が拒否されました")
			return
		}

		response.Created(c, "決済が完了しました", toPaymentResponse(created))
	}
}

// handleGetByID は決済詳細取得を処理するハンドラを返す。
func (s *Server) handleGetByID() gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := s.queries.GetPaymentByID(c.Request.Context(), c.Param("id"))
		if err == sql.ErrNoRows {
			response.Fail(c, http.StatusNotFound, "決済が見つかりません")
			return
		}
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "決済の取得に失敗しました")
			log.Printf("決済取得エラー: %v", err)
			return
		}

		response.OK(c, "決済を取得しました", toPaymentResponse(p))
	}
}

// handleListByOrder は注文ごとの決済履歴取得を処理するハンドラを返す。
func (s *Server) handleListByOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		payments, err := s.queries.ListPaymentsByOrderID(c.Request.Context(), c.Param("orderID"))
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "決済履歴の取得に失敗しました")
			log.Printf("決済履歴取得エラー: %v", err)
			return
		}

		items := make([]paymentResponse, 0, len(payments))
		for _, p := range payments {
			items = append(items, toPaymentResponse(p))
		}

		response.OK(c, "決済履歴を取得しました", items)
	}
}

// handleRefund は返金を処理するハンドラを返す。
// 返金できるのは決済成功した決済だけ。
func (s *Server) handleRefund() gin.HandlerFunc {
	return func(c *gin.Context) {
		paymentID := c.Param("id")

		p, err := s.queries.GetPaymentByID(c.Request.Context(), paymentID)
		if err == sql.ErrNoRows {
			response.Fail(c, http.StatusNotFound, "決済が見つかりません")
			return
		}
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "決済の取得に失敗しました")
			log.Printf("決済取得エラー: %v", err)
			return
		}

		if p.Status != StatusCompleted {
			response.Fail(c, http.StatusBadRequest,
				fmt.Sprintf("ステータス%sの決済は返金できません", p.Status))
			return
		}

		if err := s.queries.UpdatePaymentStatus(c.Request.Context(), paymentdb.UpdatePaymentStatusParams{
			Status: StatusRefunded,
			ID:     paymentID,
		}); err != nil {
			response.Fail(c, http.StatusInternalServerError, "返金処理に失敗しました")
			log.Printf("返金エラー: %v", err)
			return
		}

		refunded, err := s.queries.GetPaymentByID(c.Request.Context(), paymentID)
		if err != nil {
			response.Fail(c, http.StatusInternalServerError, "返金後の決済の取得に失敗しました")
			log.Printf("決済取得エラー: %v", err)
			return
		}

		response.OK(c, "返金しました", toPaymentResponse(refunded))
	}
}

package payment

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	paymentdb "github.com/nao1215/ecshop/internal/payment/db"
	"github.com/nao1215/ecshop/pkg/httpclient"
	"github.com/nao1215/ecshop/pkg/middleware"
	"github.com/nao1215/ecshop/pkg/migration"
	_ "modernc.org/sqlite"
)

// stubGateway はテスト用の決定的な決済ゲートウェイ。
type stubGateway struct {
	// decline がtrueの場合、常に決済を拒否する。
	decline bool
}

// Charge は待機せずに即座に結果を返す。
func (g *stubGateway) Charge(_ context.Context, _ float64, _ string) (string, error) {
	if g.decline {
		return "", errDeclined
	}
	return "TXN0000001", nil
}

// fakeOrders はテスト用の注文サービスが返す注文のカタログ。
var fakeOrders = map[string]orderInfo{
	"order-1": {ID: "order-1", TotalAmount: 1290.00, Status: "confirmed"},
	"order-2": {ID: "order-2", TotalAmount: 45.00, Status: "pending"},
}

// newFakeOrderService は注文サービスの代わりになるテスト用HTTPサーバーを起動する。
func newFakeOrderService(t *testing.T) *httptest.Server {
	t.Helper()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/orders/")
		o, ok := fakeOrders[id]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]any{"success": true, "data": o}); err != nil {
			t.Errorf("レスポンスの書き込みに失敗: %v", err)
		}
	}))
	t.Cleanup(ts.Close)

	return ts
}

// newTestServer はインメモリSQLiteと決定的なゲートウェイを使うサーバーを生成する。
func newTestServer(t *testing.T, orderURL string, gateway paymentGateway) *Server {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("テスト用データベースのオープンに失敗: %v", err)
	}
	// インメモリDBは接続ごとに独立するため、接続数を1に固定する。
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() {
		if err := sqlDB.Close(); err != nil {
			t.Errorf("データベースのクローズに失敗: %v", err)
		}
	})

	if err := migration.Run(sqlDB, migrationsFS, "migrations"); err != nil {
		t.Fatalf("スキーマ初期化に失敗: %v", err)
	}

	gin.SetMode(gin.TestMode)
	s := &Server{
		router:      gin.New(),
		port:        "8084",
		queries:     paymentdb.New(sqlDB),
		db:          sqlDB,
		orderClient: httpclient.New(orderURL),
		gateway:     gateway,
	}
	s.setupRoutes()

	return s
}

// processTestPayment はテスト用の決済を実行してIDを返す。
func processTestPayment(t *testing.T, s *Server, orderID, method string) string {
	t.Helper()

	body := `{"order_id":"` + orderID + `","method":"` + method + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/payments/process", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderUserID, "user-1")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("決済実行に失敗: status=%d body=%s", w.Code, w.Body.String())
	}

	var resp struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("レスポンスの解析に失敗: %v", err)
	}

	return resp.Data.ID
}

func TestServerHandleProcess(t *testing.T) {
	t.Parallel()

	t.Run("決済を実行できる", func(t *testing.T) {
		t.Parallel()

		ts := newFakeOrderService(t)
		s := newTestServer(t, ts.URL, &stubGateway{})

		body := `{"order_id":"order-1","method":"credit_card"}`
		req := httptest.NewRequest(http.MethodPost, "/api/payments/process", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(middleware.HeaderUserID, "user-1")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		if w.Code != http.StatusCreated {
			t.Fatalf("ステータスコードが%dであるべきところ%dだった: %s", http.StatusCreated, w.Code, w.Body.String())
		}

		var resp struct {
			Data paymentResponse `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("レスポンスの解析に失敗: %v", err)
		}
		if resp.Data.Status != StatusCompleted {
			t.Errorf("ステータスが%qであるべきところ%qだった", StatusCompleted, resp.Data.Status)
		}
		// 金額は注文サービスから取得した合計金額になる。
		if resp.Data.Amount != 1290.00 {
			t.Errorf("金額が1290.00であるべきところ%gだった", resp.Data.Amount)
		}
		if resp.Data.TransactionID == "" {
			t.Error("トランザクションIDが設定されるべき")
		}
	})

	t.Run("ゲートウェイに拒否された場合は400を返す", func(t *testing.T) {
		t.Parallel()

		ts := newFakeOrderService(t)
		s := newTestServer(t, ts.URL, &stubGateway{decline: true})

		body := `{"order_id":"order-1","method":"credit_card"}`
		req := httptest.NewRequest(http.MethodPost, "/api/payments/process", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(middleware.HeaderUserID, "user-1")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Fatalf("ステータスコードが%dであるべきところ%dだった", http.StatusBadRequest, w.Code)
		}

		// 失敗した決済も履歴として保存される。
		listReq := httptest.NewRequest(http.MethodGet, "/api/payments/order/order-1", nil)
		listReq.Header.Set(middleware.HeaderUserID, "user-1")
		listW := httptest.NewRecorder()
		s.router.ServeHTTP(listW, listReq)

		var resp struct {
			Data []paymentResponse `json:"data"`
		}
		if err := json.Unmarshal(listW.Body.Bytes(), &resp); err != nil {
			t.Fatalf("レスポンスの解析に失敗: %v", err)
		}
		if len(resp.Data) != 1 {
			t.Fatalf("決済履歴が1件であるべきところ%d件だった", len(resp.Data))
		}
		if resp.Data[0].Status != StatusFailed {
			t.Errorf("ステータスが%qであるべきところ%qだった", StatusFailed, resp.Data[0].Status)
		}
	})

	t.Run("決済済みの注文への二重決済は400を返す", func(t *testing.T) {
		t.Parallel()

		ts := newFakeOrderService(t)
		s := newTestServer(t, ts.URL, &stubGateway{})
		processTestPayment(t, s, "order-1", "credit_card")

		body := `{"order_id":"order-1","method":"paypal"}`
		req := httptest.NewRequest(http.MethodPost, "/api/payments/process", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(middleware.HeaderUserID, "user-1")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコードが%dであるべきところ%dだった", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("存在しない注文は400を返す", func(t *testing.T) {
		t.Parallel()

		ts := newFakeOrderService(t)
		s := newTestServer(t, ts.URL, &stubGateway{})

		body := `{"order_id":"order-unknown","method":"credit_card"}`
		req := httptest.NewRequest(http.MethodPost, "/api/payments/process", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(middleware.HeaderUserID, "user-1")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコードが%dであるべきところ%dだった", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("注文サービスに接続できない場合は502を返す", func(t *testing.T) {
		t.Parallel()

		ts := newFakeOrderService(t)
		ts.Close()
		s := newTestServer(t, ts.URL, &stubGateway{})

		body := `{"order_id":"order-1","method":"credit_card"}`
		req := httptest.NewRequest(http.MethodPost, "/api/payments/process", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(middleware.HeaderUserID, "user-1")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		if w.Code != http.StatusBadGateway {
			t.Errorf("ステータスコードが%dであるべきところ%dだった", http.StatusBadGateway, w.Code)
		}
	})

	t.Run("不正な決済方法は400を返す", func(t *testing.T) {
		t.Parallel()

		ts := newFakeOrderService(t)
		s := newTestServer(t, ts.URL, &stubGateway{})

		body := `{"order_id":"order-1","method":"bitcoin"}`
		req := httptest.NewRequest(http.MethodPost, "/api/payments/process", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set(middleware.HeaderUserID, "user-1")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("ステータスコードが%dであるべきところ%dだった", http.StatusBadRequest, w.Code)
		}
	})

	t.Run("識別ヘッダーがない場合は401を返す", func(t *testing.T) {
		t.Parallel()

		ts := newFakeOrderService(t)
		s := newTestServer(t, ts.URL, &stubGateway{})

		body := `{"order_id":"order-1","method":"credit_card"}`
		req := httptest.NewRequest(http.MethodPost, "/api/payments/process", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		if w.Code != http.StatusUnauthorized {
			t.Errorf("ステータスコードが%dであるべきところ%dだった", http.StatusUnauthorized, w.Code)
		}
	})
}

func TestServerHandleGetByID(t *testing.T) {
	t.Parallel()

	t.Run("決済を取得できる", func(t *testing.T) {
		t.Parallel()

		ts := newFakeOrderService(t)
		s := newTestServer(t, ts.URL, &stubGateway{})
		id := processTestPayment(t, s, "order-1", "credit_card")

		req := httptest.NewRequest(http.MethodGet, "/api/payments/"+id, nil)
		req.Header.Set(middleware.HeaderUserID, "user-1")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコードが%dであるべきところ%dだった", http.StatusOK, w.Code)
		}

		var resp struct {
			Data paymentResponse `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("レスポンスの解析に失敗: %v", err)
		}
		if resp.Data.ID != id {
			t.Errorf("IDが%qであるべきところ%qだった", id, resp.Data.ID)
		}
	})

	t.Run("存在しない決済は404を返す", func(t *testing.T) {
		t.Parallel()

		ts := newFakeOrderService(t)
		s := newTestServer(t, ts.URL, &stubGateway{})
		req := httptest.NewRequest(http.MethodGet, "/api/payments/unknown-id", nil)
		req.Header.Set(middleware.HeaderUserID, "user-1")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("ステータスコードが%dであるべきところ%dだった", http.StatusNotFound, w.Code)
		}
	})
}

func TestServerHandleListByOrder(t *testing.T) {
	t.Parallel()

	t.Run("注文ごとの決済履歴を取得できる", func(t *testing.T) {
		t.Parallel()

		ts := newFakeOrderService(t)
		s := newTestServer(t, ts.URL, &stubGateway{})
		processTestPayment(t, s, "order-1", "credit_card")
		processTestPayment(t, s, "order-2", "paypal")

		req := httptest.NewRequest(http.MethodGet, "/api/payments/order/order-1", nil)
		req.Header.Set(middleware.HeaderUserID, "user-1")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコードが%dであるべきところ%dだった", http.StatusOK, w.Code)
		}

		var resp struct {
			Data []paymentResponse `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("レスポンスの解析に失敗: %v", err)
		}
		if len(resp.Data) != 1 {
			t.Fatalf("決済履歴が1件であるべきところ%d件だった", len(resp.Data))
		}
		if resp.Data[0].OrderID != "order-1" {
			t.Errorf("order_idが%qであるべきところ%qだった", "order-1", resp.Data[0].OrderID)
		}
	})

	t.Run("決済のない注文は空の配列を返す", func(t *testing.T) {
		t.Parallel()

		ts := newFakeOrderService(t)
		s := newTestServer(t, ts.URL, &stubGateway{})

		req := httptest.NewRequest(http.MethodGet, "/api/payments/order/order-2", nil)
		req.Header.Set(middleware.HeaderUserID, "user-1")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコードが%dであるべきところ%dだった", http.StatusOK, w.Code)
		}
		if !bytes.Contains(w.Body.Bytes(), []byte(`"data":[]`)) {
			t.Errorf("dataが空の配列であるべき: %s", w.Body.String())
		}
	})
}

func TestServerHandleRefund(t *testing.T) {
	t.Parallel()

	t.Run("決済成功した決済を返金できる", func(t *testing.T) {
		t.Parallel()

		ts := newFakeOrderService(t)
		s := newTestServer(t, ts.URL, &stubGateway{})
		id := processTestPayment(t, s, "order-1", "credit_card")

		req := httptest.NewRequest(http.MethodPost, "/api/payments/"+id+"/refund", nil)
		req.Header.Set(middleware.HeaderUserID, "user-1")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("ステータスコードが%dであるべきところ%dだった: %s", http.StatusOK, w.Code, w.Body.String())
		}

		var resp struct {
			Data paymentResponse `json:"data"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("レスポンスの解析に失敗: %v", err)
		}
		if resp.Data.Status != StatusRefunded {
			t.Errorf("ステータスが%qであるべきところ%qだった", StatusRefunded, resp.Data.Status)
		}
	})

	t.Run("返金済みの決済は再返金できない", func(t *testing.T) {
		t.Parallel()

		ts := newFakeOrderService(t)
		s := newTestServer(t, ts.URL, &stubGateway{})
		id := processTestPayment(t, s, "order-1", "credit_card")

		first := httptest.NewRequest(http.MethodPost, "/api/payments/"+id+"/refund", nil)
		first.Header.Set(middleware.HeaderUserID, "user-1")
		firstW := httptest.NewRecorder()
		s.router.ServeHTTP(firstW, first)
		if firstW.Code != http.StatusOK {
			t.Fatalf("1回目の返金に失敗: status=%d", firstW.Code)
		}

		second := httptest.NewRequest(http.MethodPost, "/api/payments/"+id+"/refund", nil)
		second.Header.Set(middleware.HeaderUserID, "user-1")
		secondW := httptest.NewRecorder()
		s.router.ServeHTTP(secondW, second)
		if secondW.Code != http.StatusBadRequest {
			t.Errorf("2回目の返金は400を返すべきところ%dだった", secondW.Code)
		}
	})

	t.Run("存在しない決済の返金は404を返す", func(t *testing.T) {
		t.Parallel()

		ts := newFakeOrderService(t)
		s := newTestServer(t, ts.URL, &stubGateway{})
		req := httptest.NewRequest(http.MethodPost, "/api/payments/unknown-id/refund", nil)
		req.Header.Set(middleware.HeaderUserID, "user-1")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("ステータスコードが%dであるべきところ%dだった", http.StatusNotFound, w.Code)
		}
	})
}

package payment

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
)

// errDeclined は決済ゲートウェイが決済を拒否したことを表す。
var errDeclined = errors.New("決済が拒否されました")

// paymentGateway は外部決済ゲートウェイとの通信を抽象化する。
// 成功時はトランザクションIDを返す。
type paymentGateway interface {
	Charge(ctx context.Context, amount float64, method string) (string, error)
}

// simulatedGateway は外部決済ゲートウェイの挙動を模擬する実装。
// 一定時間待機した後、確率的に決済を拒否する。
type simulatedGateway struct {
	// delay は決済処理にかかる時間の模擬。
	delay time.Duration
	// declineRate は決済を拒否する確率（0.0〜1.0）。
	declineRate float64
}

// newSimulatedGateway は処理時間1秒、拒否率2割の模擬ゲートウェイを生成する。
func newSimulatedGateway() *simulatedGateway {
	return &simulatedGateway{
		delay:       time.Second,
		declineRate: 0.2,
	}
}

// Charge は決済を実行する。コンテキストの取消を尊重して待機する。
func (g *simulatedGateway) Charge(ctx context.Context, amount float64, method string) (string, error) {
	select {
	case <-time.After(g.delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	if rand.Float64() < g.declineRate {
		return "", errDeclined
	}

	return newTransactionID(), nil
}

// newTransactionID はゲートウェイのトランザクションIDを模擬した
// 10文字の大文字英数字を生成する。
func newTransactionID() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return strings.ToUpper(raw[:10])
}

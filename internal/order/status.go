package order

// 注文ステータス。pendingから始まり、配送完了または取消で終端する。
const (
	// StatusPending は注文直後の状態。
	StatusPending = "pending"
	// StatusConfirmed は注文確定済みの状態。
	StatusConfirmed = "confirmed"
	// StatusProcessing は出荷準備中の状態。
	StatusProcessing = "processing"
	// StatusShipped は出荷済みの状態。
	StatusShipped = "shipped"
	// StatusDelivered は配送完了の状態。終端ステータス。
	StatusDelivered = "delivered"
	// StatusCancelled は取消済みの状態。終端ステータス。
	StatusCancelled = "cancelled"
)

// statusTransitions は許可されるステータス遷移の定義。
// 取消はpendingまたはconfirmedからのみ可能。
var statusTransitions = map[string][]string{
	StatusPending:    {StatusConfirmed, StatusCancelled},
	StatusConfirmed:  {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped},
	StatusShipped:    {StatusDelivered},
	StatusDelivered:  {},
	StatusCancelled:  {},
}

// canTransition は現在のステータスから次のステータスへ遷移できるか判定する。
func canTransition(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// isValidStatus はステータス値として妥当か判定する。
func isValidStatus(status string) bool {
	_, ok := statusTransitions[status]
	return ok
}

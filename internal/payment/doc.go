// Package payment は決済を管理するマイクロサービスを提供する。
// 決済金額は注文サービスから取得し、外部決済ゲートウェイの挙動を
// 模擬した実装で決済処理を行う。返金にも対応する。
package payment

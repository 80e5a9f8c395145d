// Package order は注文を管理するマイクロサービスを提供する。
// 注文の作成時に商品サービスへ問い合わせて単価と在庫を確認し、
// 合計金額をサーバー側で計算する。ステータス遷移も本パッケージが管理する。
package order

// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// ゲートウェイでのベアラートークン検証と識別ヘッダーの付与、ルート単位の
// 認可、CORS設定、パニックリカバリ、Prometheusメトリクス収集など、
// 全サービスで共通して使用するミドルウェアを含む。
package middleware

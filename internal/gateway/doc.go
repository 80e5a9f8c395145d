// Package gateway はAPI Gatewayサービスを実装する。
//
// 外部からアクセス可能な唯一のサービスであり、セキュリティの境界線となる。
// すべてのリクエストでベアラートークンの検証を試み、検証済みの識別情報を
// X-User-*ヘッダーとしてバックエンドサービスへ転送する。ルーティングは
// 起動時に構築する静的なパスプレフィックス→ベースURLの対応表で行い、
// バックエンドの応答（ステータス・ボディ）は加工せずそのまま中継する。
package gateway

// Package httpclient はサービス間通信用のHTTPクライアントを提供する。
//
// JSONのリクエスト/レスポンスを扱い、コンテキストに設定されたプリンシパルの
// 識別ヘッダー（X-User-Id等）を下流サービスへ伝播する。タイムアウトを持ち、
// 呼び出し元のコンテキストがキャンセルされると進行中のリクエストも中断される。
package httpclient

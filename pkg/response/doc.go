// Package response は全サービス共通のレスポンスエンベロープを提供する。
//
// すべてのAPIレスポンスは success / message / data / errors の4フィールドを
// 持つJSONオブジェクトで包まれる。ゲートウェイはこのエンベロープを解釈せず、
// バックエンドサービスの応答をそのまま中継する。
package response

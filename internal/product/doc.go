// Package product は商品カタログを管理するマイクロサービスを提供する。
// 商品のCRUD操作とページング付きの一覧取得APIを公開し、
// データはSQLiteデータベースに永続化する。
package product

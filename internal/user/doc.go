// Package user はユーザー管理と認証を担当するマイクロサービスを提供する。
// ユーザー登録・ログイン・プロフィール管理のAPIを公開し、
// ログイン成功時にJWTアクセストークンを発行する。
package user

// Package token は署名付きIDトークンの発行と検証を提供する。
//
// トークンはHS256で署名されたJWTで、ユーザーID・ユーザー名・メールアドレスを
// 運ぶ。発行から60分で失効し、リフレッシュの仕組みは持たない。再認証には
// 再ログインが必要。署名鍵は全サービスで共有する対称鍵で、設定から注入する。
package token

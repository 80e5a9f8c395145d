package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/ecshop/pkg/response"
	"github.com/nao1215/ecshop/pkg/token"
)

// バックエンドサービスへユーザー識別情報を伝播するHTTPヘッダー。
// ゲートウェイのネットワーク境界を通過したリクエストでのみ信頼できる。
const (
	// HeaderUserID はユーザーIDを運ぶヘッダー。
	HeaderUserID = "X-User-Id"
	// HeaderUserName はユーザー名を運ぶヘッダー。
	HeaderUserName = "X-User-Name"
	// HeaderUserEmail はメールアドレスを運ぶヘッダー。
	HeaderUserEmail = "X-User-Email"
)

// contextKeyPrincipal はGinコンテキストにプリンシパルを格納するためのキー。
const contextKeyPrincipal = "principal"

// Auth はベアラートークンを検証するゲートウェイ用ミドルウェアを返す。
//
// 検証はすべてのリクエストで試みるが、トークンの欠如や検証失敗そのものは
// エラーにしない。その場合リクエストは匿名のまま続行し、認証必須のルートで
// RequireAuthが401を返す。検証に成功した場合はプリンシパルをコンテキストに
// 格納し、下流サービス向けの識別ヘッダーをリクエストに付与する。
//
// クライアントが直接X-User-*ヘッダーを付けてなりすますことを防ぐため、
// 外部から持ち込まれた識別ヘッダーは検証結果に関わらず必ず除去する。
func Auth(cfg token.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Header.Del(HeaderUserID)
		c.Request.Header.Del(HeaderUserName)
		c.Request.Header.Del(HeaderUserEmail)

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.Next()
			return
		}

		raw, found := strings.CutPrefix(authHeader, "Bearer ")
		if !found {
			c.Next()
			return
		}

		p, err := token.Validate(cfg, strings.TrimSpace(raw))
		if err != nil {
			// 無効トークンはログに残すだけで、それ自体をエラーにはしない
			log.Printf("トークン検証に失敗（匿名として続行）: %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
			c.Next()
			return
		}

		c.Set(contextKeyPrincipal, p)
		c.Request.Header.Set(HeaderUserID, p.UserID)
		c.Request.Header.Set(HeaderUserName, p.Username)
		c.Request.Header.Set(HeaderUserEmail, p.Email)
		c.Next()
	}
}

// RequireAuth は認証済みでないリクエストを401で拒否するミドルウェアを返す。
// Authミドルウェアの後段に適用すること。
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Principal(c).IsAuthenticated() {
			response.Fail(c, http.StatusUnauthorized, "認証が必要です")
			c.Abort()
			return
		}
		c.Next()
	}
}

// Principal はGinコンテキストからプリンシパルを取得する。
// 未認証の場合はゼロ値（匿名）を返す。
func Principal(c *gin.Context) token.Principal {
	v, ok := c.Get(contextKeyPrincipal)
	if !ok {
		return token.Principal{}
	}
	p, ok := v.(token.Principal)
	if !ok {
		return token.Principal{}
	}
	return p
}

// ForwardedPrincipal はゲートウェイが付与した識別ヘッダーからプリンシパルを
// 復元する。バックエンドサービスがトークンを再検証せずにユーザーを特定する
// ために使う。ヘッダーはゲートウェイを経由したリクエストでのみ信頼できる
// （このパッケージ単体では強制できないデプロイ上の前提）。
func ForwardedPrincipal(c *gin.Context) token.Principal {
	return token.Principal{
		UserID:   c.GetHeader(HeaderUserID),
		Username: c.GetHeader(HeaderUserName),
		Email:    c.GetHeader(HeaderUserEmail),
	}
}

// RequireForwardedAuth は識別ヘッダーを持たないリクエストを401で拒否する
// バックエンドサービス用のミドルウェアを返す。
func RequireForwardedAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !ForwardedPrincipal(c).IsAuthenticated() {
			response.Fail(c, http.StatusUnauthorized, "認証が必要です")
			c.Abort()
			return
		}
		c.Next()
	}
}

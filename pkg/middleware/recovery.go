package middleware

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/ecshop/pkg/response"
)

// Recovery はパニックからの回復を行うGinミドルウェアを返す。
// パニック発生時に詳細をログに出力し、クライアントには汎用メッセージの
// エンベロープで500を返す。パニックの内容はクライアントに漏らさない。
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("[PANIC] %s %s: %v", c.Request.Method, c.Request.URL.Path, r)
				response.Fail(c, http.StatusInternalServerError, "内部サーバーエラーが発生しました")
				c.Abort()
			}
		}()
		c.Next()
	}
}

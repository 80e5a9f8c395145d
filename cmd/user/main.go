// ユーザーサービスのエントリポイント。
// ユーザー登録・ログイン・プロフィール管理のAPIを提供する。
package main

import (
	"log"
	"os"

	"github.com/nao1215/ecshop/internal/user"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8082"
	}

	server, err := user.NewServer(port)
	if err != nil {
		log.Fatalf("ユーザーサーバーの初期化に失敗: %v", err)
	}

	log.Printf("ユーザーサービスを起動します: :%s", port)
	if err := server.Run(); err != nil {
		log.Fatalf("ユーザーサービスの起動に失敗: %v", err)
	}
}

// 注文サービスのエントリポイント。
// 注文の作成・ステータス管理のAPIを提供する。
package main

import (
	"log"
	"os"

	"github.com/nao1215/ecshop/internal/order"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8083"
	}

	server, err := order.NewServer(port)
	if err != nil {
		log.Fatalf("注文サーバーの初期化に失敗: %v", err)
	}

	log.Printf("注文サービスを起動します: :%s", port)
	if err := server.Run(); err != nil {
		log.Fatalf("注文サービスの起動に失敗: %v", err)
	}
}

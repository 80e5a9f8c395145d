// 決済サービスのエントリポイント。
// 決済の実行・返金のAPIを提供する。
package main

import (
	"log"
	"os"

	"github.com/nao1215/ecshop/internal/payment"
)

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8084"
	}

	server, err := payment.NewServer(port)
	if err != nil {
		log.Fatalf("決済サーバーの初期化に失敗: %v", err)
	}

	log.Printf("決済サービスを起動します: :%s", port)
	if err := server.Run(); err != nil {
		log.Fatalf("決済サービスの起動に失敗: %v", err)
	}
}

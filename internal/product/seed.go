package product

import (
	"context"
	"log"

	"github.com/google/uuid"
	productdb "github.com/nao1215/ecshop/internal/product/db"
)

// seed はテーブルが空の場合にデモ用の商品データを投入する。
func (s *Server) seed() error {
	ctx := context.Background()

	total, err := s.queries.CountProducts(ctx, productdb.CountProductsParams{})
	if err != nil {
		return err
	}
	if total > 0 {
		return nil
	}

	seeds := []productdb.CreateProductParams{
		{Name: "Dell XPS 13", Description: "高性能な13インチノートパソコン", Price: 1200.00, Stock: 15, Category: "Electronics"},
		{Name: "iPhone 14 Pro", Description: "Appleの最新スマートフォン", Price: 999.00, Stock: 30, Category: "Electronics"},
		{Name: "AirPods Pro", Description: "アクティブノイズキャンセリング搭載ワイヤレスイヤホン", Price: 249.00, Stock: 50, Category: "Electronics"},
		{Name: "Apple Watch Series 8", Description: "健康管理機能を備えたスマートウォッチ", Price: 399.00, Stock: 25, Category: "Electronics"},
		{Name: "Clean Code", Description: "ソフトウェア職人のためのアジャイル技法", Price: 45.00, Stock: 40, Category: "Books"},
		{Name: "The Pragmatic Programmer", Description: "達人プログラマーへの道", Price: 55.00, Stock: 35, Category: "Books"},
	}

	for _, p := range seeds {
		p.ID = uuid.New().String()
		if err := s.queries.CreateProduct(ctx, p); err != nil {
			return err
		}
	}
	log.Printf("商品シードデータを%d件投入しました", len(seeds))

	return nil
}

package order

import (
	"context"
	"log"

	"github.com/google/uuid"
	orderdb "github.com/nao1215/ecshop/internal/order/db"
)

// seed はテーブルが空の場合にデモ用の注文データを投入する。
func (s *Server) seed() error {
	ctx := context.Background()

	total, err := s.queries.CountOrders(ctx, "")
	if err != nil {
		return err
	}
	if total > 0 {
		return nil
	}

	type seedItem struct {
		productName string
		quantity    int64
		unitPrice   float64
	}
	seeds := []struct {
		status          string
		shippingAddress string
		items           []seedItem
	}{
		{
			status:          StatusDelivered,
			shippingAddress: "東京都千代田区1-1-1",
			items: []seedItem{
				{productName: "Dell XPS 13", quantity: 1, unitPrice: 1200.00},
				{productName: "Clean Code", quantity: 1, unitPrice: 45.00},
			},
		},
		{
			status:          StatusProcessing,
			shippingAddress: "大阪府大阪市2-2-2",
			items: []seedItem{
				{productName: "Clean Code", quantity: 1, unitPrice: 45.00},
				{productName: "The Pragmatic Programmer", quantity: 1, unitPrice: 55.00},
			},
		},
		{
			status:          StatusPending,
			shippingAddress: "東京都港区3-3-3",
			items: []seedItem{
				{productName: "Apple Watch Series 8", quantity: 1, unitPrice: 399.00},
			},
		},
	}

	for _, o := range seeds {
		orderID := uuid.New().String()
		var amount float64
		for _, item := range o.items {
			amount += item.unitPrice * float64(item.quantity)
		}
		if err := s.queries.CreateOrder(ctx, orderdb.CreateOrderParams{
			ID:              orderID,
			UserID:          uuid.New().String(),
			Status:          o.status,
			TotalAmount:     amount,
			ShippingAddress: o.shippingAddress,
		}); err != nil {
			return err
		}
		for _, item := range o.items {
			if err := s.queries.CreateOrderItem(ctx, orderdb.CreateOrderItemParams{
				ID:          uuid.New().String(),
				OrderID:     orderID,
				ProductID:   uuid.New().String(),
				ProductName: item.productName,
				Quantity:    item.quantity,
				UnitPrice:   item.unitPrice,
			}); err != nil {
				return err
			}
		}
	}
	log.Printf("注文シードデータを%d件投入しました", len(seeds))

	return nil
}

package mapper

import (
	"time"

	"github.com/sellsutra/ms-go-orders/app/entity"
	"github.com/sellsutra/ms-go-orders/app/types"
)

func OrderToResponse(item *entity.Order) *types.Order {
	if item == nil {
		return nil
	}

	items := make([]types.OrderItem, 0, len(item.Items))
	for _, line := range item.Items {
		items = append(items, types.OrderItem{
			Name:           line.Name,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
		})
	}

	return &types.Order{
		Id:            item.ID,
		Reference:     item.Reference,
		SellerId:      item.SellerID,
		CustomerName:  item.CustomerName,
		CustomerPhone: item.CustomerPhone,
		Items:         items,
		SubtotalCents: item.SubtotalCents,
		TotalCents:    item.TotalCents,
		Currency:      item.Currency,
		Status:        string(item.Status),
		PaymentStatus: string(item.PaymentStatus),
		InvoiceNumber: derefString(item.InvoiceNumber),
		InvoiceUrl:    derefString(item.InvoiceURL),
		CreatedAt:     item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func PaymentToResponse(item *entity.Payment) *types.Payment {
	if item == nil {
		return nil
	}

	return &types.Payment{
		Id:               item.ID,
		OrderId:          item.OrderID,
		Method:           string(item.Method),
		Status:           string(item.Status),
		AmountCents:      item.AmountCents,
		Currency:         item.Currency,
		GatewayOrderId:   derefString(item.GatewayOrderID),
		GatewayPaymentId: derefString(item.GatewayPaymentID),
		UpiReference:     derefString(item.UPIReference),
		CreatedAt:        item.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func PaymentsToResponse(orderID uint64, payments []*entity.Payment) *types.PaymentsResponse {
	result := &types.PaymentsResponse{
		OrderId:  orderID,
		Payments: make([]*types.Payment, 0, len(payments)),
	}
	for _, payment := range payments {
		if payment == nil {
			continue
		}
		result.Payments = append(result.Payments, PaymentToResponse(payment))
	}
	return result
}

func TimelineToResponse(orderID uint64, entries []*entity.TimelineEntry) *types.TimelineResponse {
	result := &types.TimelineResponse{
		OrderId: orderID,
		Entries: make([]*types.TimelineEntry, 0, len(entries)),
	}
	for _, entry := range entries {
		if entry == nil {
			continue
		}
		result.Entries = append(result.Entries, &types.TimelineEntry{
			Status:    entry.Status,
			Note:      entry.Note,
			CreatedBy: entry.CreatedBy,
			CreatedAt: entry.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	return result
}

func derefString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

package workflow

import (
	"context"

	"github.com/Abraxas-365/courier/pkg/kernel"
	"github.com/Abraxas-365/courier/pkg/messages"
	"github.com/Abraxas-365/courier/pkg/token"
)

func toBilling(o *messages.Order) func(resolved) (string, string) {
	return func(resolved) (string, string) {
		return o.BillingAddress.Email, o.BillingAddress.FullName()
	}
}

func (d *Dispatcher) orderTokens(o *messages.Order, vendorID int64) func(*token.List, resolved) {
	return func(l *token.List, r resolved) {
		d.tokens.AddOrderTokens(l, r.store, o, vendorID)
		if o.Customer != nil {
			d.tokens.AddCustomerTokens(l, r.store, o.Customer)
		}
	}
}

func orderModel(o *messages.Order) messages.Model {
	return messages.Model{Order: o, Customer: o.Customer}
}

func (d *Dispatcher) orderNotification(ctx context.Context, name string, o *messages.Order, languageID kernel.LanguageID, recipient func(resolved) (string, string), attachment messages.Attachment) (int64, error) {
	if o == nil {
		return 0, missing("order")
	}
	if recipient == nil {
		recipient = toBilling(o)
	}
	return d.send(ctx, notification{
		template:   name,
		storeID:    o.StoreID,
		language:   languageID,
		tokens:     d.orderTokens(o, 0),
		model:      orderModel(o),
		recipient:  recipient,
		attachment: attachment,
	})
}

// SendOrderPlacedVendorNotification tells a vendor about an order holding
// their products. Only the vendor's items appear in the product table.
func (d *Dispatcher) SendOrderPlacedVendorNotification(ctx context.Context, o *messages.Order, v *messages.Vendor, languageID kernel.LanguageID) (int64, error) {
	if o == nil {
		return 0, missing("order")
	}
	if v == nil {
		return 0, missing("vendor")
	}
	tokens := d.orderTokens(o, v.ID)
	model := orderModel(o)
	model.Vendor = v
	return d.send(ctx, notification{
		template: messages.TemplateOrderPlacedVendor,
		storeID:  o.StoreID,
		language: languageID,
		tokens: func(l *token.List, r resolved) {
			tokens(l, r)
			d.tokens.AddVendorTokens(l, v)
		},
		model: model,
		recipient: func(resolved) (string, string) {
			return v.Email, v.Name
		},
	})
}

func (d *Dispatcher) SendOrderPlacedStoreOwnerNotification(ctx context.Context, o *messages.Order, languageID kernel.LanguageID) (int64, error) {
	return d.orderNotification(ctx, messages.TemplateOrderPlacedStoreOwner, o, languageID, toAccount, messages.Attachment{})
}

func (d *Dispatcher) SendOrderPaidStoreOwnerNotification(ctx context.Context, o *messages.Order, languageID kernel.LanguageID) (int64, error) {
	return d.orderNotification(ctx, messages.TemplateOrderPaidStoreOwner, o, languageID, toAccount, messages.Attachment{})
}

// SendOrderPlacedCustomerNotification confirms an order to the billing
// address, optionally attaching a file such as the order PDF.
func (d *Dispatcher) SendOrderPlacedCustomerNotification(ctx context.Context, o *messages.Order, languageID kernel.LanguageID, attachment messages.Attachment) (int64, error) {
	return d.orderNotification(ctx, messages.TemplateOrderPlacedCustomer, o, languageID, nil, attachment)
}

func (d *Dispatcher) SendOrderCompletedCustomerNotification(ctx context.Context, o *messages.Order, languageID kernel.LanguageID, attachment messages.Attachment) (int64, error) {
	return d.orderNotification(ctx, messages.TemplateOrderCompletedCustomer, o, languageID, nil, attachment)
}

func (d *Dispatcher) SendOrderCancelledCustomerNotification(ctx context.Context, o *messages.Order, languageID kernel.LanguageID) (int64, error) {
	return d.orderNotification(ctx, messages.TemplateOrderCancelledCustomer, o, languageID, nil, messages.Attachment{})
}

func (d *Dispatcher) shipmentNotification(ctx context.Context, name string, s *messages.Shipment, languageID kernel.LanguageID) (int64, error) {
	if s == nil {
		return 0, missing("shipment")
	}
	if s.Order == nil {
		return 0, missing("shipment.order")
	}
	o := s.Order
	orderTokens := d.orderTokens(o, 0)
	model := orderModel(o)
	model.Shipment = s
	return d.send(ctx, notification{
		template: name,
		storeID:  o.StoreID,
		language: languageID,
		tokens: func(l *token.List, r resolved) {
			d.tokens.AddShipmentTokens(l, r.store, s)
			orderTokens(l, r)
		},
		model:     model,
		recipient: toBilling(o),
	})
}

func (d *Dispatcher) SendShipmentSentCustomerNotification(ctx context.Context, s *messages.Shipment, languageID kernel.LanguageID) (int64, error) {
	return d.shipmentNotification(ctx, messages.TemplateShipmentSentCustomer, s, languageID)
}

func (d *Dispatcher) SendShipmentDeliveredCustomerNotification(ctx context.Context, s *messages.Shipment, languageID kernel.LanguageID) (int64, error) {
	return d.shipmentNotification(ctx, messages.TemplateShipmentDeliveredCustomer, s, languageID)
}

func (d *Dispatcher) SendNewOrderNoteAddedCustomerNotification(ctx context.Context, n *messages.OrderNote, languageID kernel.LanguageID) (int64, error) {
	if n == nil {
		return 0, missing("order_note")
	}
	if n.Order == nil {
		return 0, missing("order_note.order")
	}
	o := n.Order
	orderTokens := d.orderTokens(o, 0)
	model := orderModel(o)
	model.OrderNote = n
	return d.send(ctx, notification{
		template: messages.TemplateNewOrderNote,
		storeID:  o.StoreID,
		language: languageID,
		tokens: func(l *token.List, r resolved) {
			d.tokens.AddOrderNoteTokens(l, n)
			orderTokens(l, r)
		},
		model:     model,
		recipient: toBilling(o),
	})
}

func (d *Dispatcher) SendRecurringPaymentCancelledStoreOwnerNotification(ctx context.Context, rp *messages.RecurringPayment, languageID kernel.LanguageID) (int64, error) {
	if rp == nil {
		return 0, missing("recurring_payment")
	}
	if rp.InitialOrder == nil {
		return 0, missing("recurring_payment.initial_order")
	}
	o := rp.InitialOrder
	orderTokens := d.orderTokens(o, 0)
	model := orderModel(o)
	model.RecurringPayment = rp
	return d.send(ctx, notification{
		template: messages.TemplateRecurringPaymentCancelledOwner,
		storeID:  o.StoreID,
		language: languageID,
		tokens: func(l *token.List, r resolved) {
			orderTokens(l, r)
			d.tokens.AddRecurringPaymentTokens(l, rp)
		},
		model:     model,
		recipient: toAccount,
	})
}

// SendGiftCardNotification delivers a gift card to its recipient, from the
// store the card was bought in.
func (d *Dispatcher) SendGiftCardNotification(ctx context.Context, g *messages.GiftCard, languageID kernel.LanguageID) (int64, error) {
	if g == nil {
		return 0, missing("gift_card")
	}
	var store kernel.StoreID
	if g.PurchasedWithOrder != nil {
		store = g.PurchasedWithOrder.StoreID
	}
	return d.send(ctx, notification{
		template: messages.TemplateGiftCard,
		storeID:  store,
		language: languageID,
		tokens: func(l *token.List, r resolved) {
			d.tokens.AddGiftCardTokens(l, g)
		},
		model: messages.Model{GiftCard: g, Order: g.PurchasedWithOrder},
		recipient: func(resolved) (string, string) {
			return g.RecipientEmail, g.RecipientName
		},
	})
}

func (d *Dispatcher) SendNewReturnRequestStoreOwnerNotification(ctx context.Context, rr *messages.ReturnRequest, item *messages.OrderItem, languageID kernel.LanguageID) (int64, error) {
	return d.returnRequestNotification(ctx, messages.TemplateNewReturnRequestStoreOwner, rr, item, languageID, true)
}

// SendReturnRequestStatusChangedCustomerNotification tells the customer the
// return request moved on. Guests are reached through the order's billing
// address.
func (d *Dispatcher) SendReturnRequestStatusChangedCustomerNotification(ctx context.Context, rr *messages.ReturnRequest, item *messages.OrderItem, languageID kernel.LanguageID) (int64, error) {
	return d.returnRequestNotification(ctx, messages.TemplateReturnRequestStatusChangedCustomer, rr, item, languageID, false)
}

func (d *Dispatcher) returnRequestNotification(ctx context.Context, name string, rr *messages.ReturnRequest, item *messages.OrderItem, languageID kernel.LanguageID, toOwner bool) (int64, error) {
	if rr == nil {
		return 0, missing("return_request")
	}
	if item == nil {
		return 0, missing("order_item")
	}
	if item.Order == nil {
		return 0, missing("order_item.order")
	}
	if !toOwner && rr.Customer == nil {
		return 0, missing("return_request.customer")
	}

	o := item.Order
	recipient := toAccount
	if !toOwner {
		recipient = func(resolved) (string, string) {
			if rr.Customer.IsGuest {
				return o.BillingAddress.Email, o.BillingAddress.FirstName
			}
			return rr.Customer.Email, rr.Customer.FullName()
		}
	}

	return d.send(ctx, notification{
		template: name,
		storeID:  o.StoreID,
		language: languageID,
		tokens: func(l *token.List, r resolved) {
			if rr.Customer != nil {
				d.tokens.AddCustomerTokens(l, r.store, rr.Customer)
			}
			d.tokens.AddReturnRequestTokens(l, rr, item)
		},
		model: messages.Model{
			ReturnRequest: rr,
			OrderItem:     item,
			Order:         o,
			Customer:      rr.Customer,
		},
		recipient: recipient,
	})
}

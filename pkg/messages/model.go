package messages

// Model is the object message templates are evaluated against. Only the
// entities involved in an event are set; templates that reference an absent
// entity fail at evaluation time, not at dispatch time.
type Model struct {
	Event string

	Store                   *Store
	Customer                *Customer
	Vendor                  *Vendor
	Order                   *Order
	OrderItem               *OrderItem
	OrderNote               *OrderNote
	Shipment                *Shipment
	RecurringPayment        *RecurringPayment
	Subscription            *NewsLetterSubscription
	Product                 *Product
	ProductReview           *ProductReview
	ReturnRequest           *ReturnRequest
	Forum                   *Forum
	ForumTopic              *ForumTopic
	ForumPost               *ForumPost
	PrivateMessage          *PrivateMessage
	GiftCard                *GiftCard
	BlogComment             *BlogComment
	NewsComment             *NewsComment
	BackInStockSubscription *BackInStockSubscription

	VatName         string
	VatAddress      string
	PersonalMessage string
	CustomerEmail   string
	RefundedAmount  float64
}

// PlaceholderModel returns a model with every entity set to its zero value
// and related entities linked to each other, so any template can be
// evaluated without a real event.
func PlaceholderModel() *Model {
	customer := &Customer{}
	order := &Order{Customer: customer}
	item := &OrderItem{Order: order}
	order.Items = []*OrderItem{item}
	product := &Product{}
	forum := &Forum{}
	topic := &ForumTopic{Forum: forum}

	return &Model{
		Event:                   "placeholder",
		Store:                   &Store{},
		Customer:                customer,
		Vendor:                  &Vendor{},
		Order:                   order,
		OrderItem:               item,
		OrderNote:               &OrderNote{Order: order},
		Shipment:                &Shipment{Order: order, Items: []*OrderItem{item}},
		RecurringPayment:        &RecurringPayment{InitialOrder: order},
		Subscription:            &NewsLetterSubscription{},
		Product:                 product,
		ProductReview:           &ProductReview{Product: product, Customer: customer},
		ReturnRequest:           &ReturnRequest{Customer: customer},
		Forum:                   forum,
		ForumTopic:              topic,
		ForumPost:               &ForumPost{ForumTopic: topic, Customer: customer},
		PrivateMessage:          &PrivateMessage{FromCustomer: customer, ToCustomer: customer},
		GiftCard:                &GiftCard{PurchasedWithOrder: order},
		BlogComment:             &BlogComment{Customer: customer},
		NewsComment:             &NewsComment{},
		BackInStockSubscription: &BackInStockSubscription{Customer: customer, Product: product},
	}
}

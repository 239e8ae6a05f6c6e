// Package messages is the notification bounded context: business entities
// carried by events, localized message templates, queued messages and the
// collaborator contracts the workflow depends on.
package messages

import (
	"strconv"
	"time"

	"github.com/Abraxas-365/courier/pkg/kernel"
)

// Store is a storefront; every template, language and message is scoped to one.
type Store struct {
	ID                 kernel.StoreID `db:"id" json:"id"`
	Name               string         `db:"name" json:"name"`
	URL                string         `db:"url" json:"url"`
	CompanyName        string         `db:"company_name" json:"company_name"`
	CompanyAddress     string         `db:"company_address" json:"company_address"`
	CompanyPhoneNumber string         `db:"company_phone_number" json:"company_phone_number"`
	CompanyVat         string         `db:"company_vat" json:"company_vat"`
	DisplayOrder       int            `db:"display_order" json:"display_order"`
}

// Language is published when it may be used to localize messages. An empty
// StoreIDs list makes the language available to every store.
type Language struct {
	ID              kernel.LanguageID `db:"id" json:"id"`
	Name            string            `db:"name" json:"name"`
	LanguageCulture string            `db:"language_culture" json:"language_culture"`
	Published       bool              `db:"published" json:"published"`
	DisplayOrder    int               `db:"display_order" json:"display_order"`
	StoreIDs        []kernel.StoreID  `db:"-" json:"store_ids,omitempty"`
}

// AvailableIn reports whether the language is mapped to store.
func (l *Language) AvailableIn(store kernel.StoreID) bool {
	if len(l.StoreIDs) == 0 || store.IsZero() {
		return true
	}
	for _, id := range l.StoreIDs {
		if id == store {
			return true
		}
	}
	return false
}

// EmailAccount is a sender identity.
type EmailAccount struct {
	ID          kernel.AccountID `db:"id" json:"id"`
	Email       string           `db:"email" json:"email"`
	DisplayName string           `db:"display_name" json:"display_name"`
}

// ─── Business entities ──────────────────────────────────────────────────────

type Address struct {
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	Email         string `json:"email"`
	Company       string `json:"company"`
	Address1      string `json:"address1"`
	City          string `json:"city"`
	ZipPostalCode string `json:"zip_postal_code"`
	Country       string `json:"country"`
	PhoneNumber   string `json:"phone_number"`
}

func (a Address) FullName() string {
	return joinName(a.FirstName, a.LastName)
}

type Customer struct {
	ID                     int64  `json:"id"`
	Email                  string `json:"email"`
	Username               string `json:"username"`
	FirstName              string `json:"first_name"`
	LastName               string `json:"last_name"`
	IsGuest                bool   `json:"is_guest"`
	VatNumber              string `json:"vat_number"`
	AccountActivationToken string `json:"-"`
	PasswordRecoveryToken  string `json:"-"`
}

func (c *Customer) FullName() string {
	return joinName(c.FirstName, c.LastName)
}

type Vendor struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type OrderItem struct {
	ID          int64   `json:"id"`
	Order       *Order  `json:"-"`
	ProductName string  `json:"product_name"`
	SKU         string  `json:"sku"`
	VendorID    int64   `json:"vendor_id"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	PriceTotal  float64 `json:"price_total"`
}

type Order struct {
	ID                int64          `json:"id"`
	CustomOrderNumber string         `json:"custom_order_number"`
	StoreID           kernel.StoreID `json:"store_id"`
	Customer          *Customer      `json:"customer"`
	BillingAddress    Address        `json:"billing_address"`
	ShippingAddress   *Address       `json:"shipping_address,omitempty"`
	Items             []*OrderItem   `json:"items"`
	CurrencyCode      string         `json:"currency_code"`
	OrderSubtotal     float64        `json:"order_subtotal"`
	OrderShipping     float64        `json:"order_shipping"`
	OrderTax          float64        `json:"order_tax"`
	OrderTotal        float64        `json:"order_total"`
	PaymentMethod     string         `json:"payment_method"`
	ShippingMethod    string         `json:"shipping_method"`
	Status            string         `json:"status"`
	CreatedOnUtc      time.Time      `json:"created_on_utc"`
}

// Number returns the customer facing order number.
func (o *Order) Number() string {
	if o.CustomOrderNumber != "" {
		return o.CustomOrderNumber
	}
	return strconv.FormatInt(o.ID, 10)
}

type OrderNote struct {
	ID           int64     `json:"id"`
	Order        *Order    `json:"-"`
	Note         string    `json:"note"`
	CreatedOnUtc time.Time `json:"created_on_utc"`
}

type Shipment struct {
	ID              int64        `json:"id"`
	Order           *Order       `json:"-"`
	TrackingNumber  string       `json:"tracking_number"`
	ShippedDateUtc  *time.Time   `json:"shipped_date_utc,omitempty"`
	DeliveryDateUtc *time.Time   `json:"delivery_date_utc,omitempty"`
	Items           []*OrderItem `json:"items"`
}

type RecurringPayment struct {
	ID           int64     `json:"id"`
	InitialOrder *Order    `json:"-"`
	CycleLength  int       `json:"cycle_length"`
	CyclePeriod  string    `json:"cycle_period"`
	TotalCycles  int       `json:"total_cycles"`
	StartDateUtc time.Time `json:"start_date_utc"`
}

type NewsLetterSubscription struct {
	ID      int64          `json:"id"`
	GUID    string         `json:"guid"`
	Email   string         `json:"email"`
	Active  bool           `json:"active"`
	StoreID kernel.StoreID `json:"store_id"`
}

type Product struct {
	ID               int64   `json:"id"`
	Name             string  `json:"name"`
	ShortDescription string  `json:"short_description"`
	SKU              string  `json:"sku"`
	StockQuantity    int     `json:"stock_quantity"`
	Price            float64 `json:"price"`
	SeName           string  `json:"se_name"`
}

type ProductReview struct {
	ID         int64     `json:"id"`
	Product    *Product  `json:"-"`
	Customer   *Customer `json:"-"`
	Title      string    `json:"title"`
	ReviewText string    `json:"review_text"`
	Rating     int       `json:"rating"`
}

type ReturnRequest struct {
	ID               int64     `json:"id"`
	Customer         *Customer `json:"-"`
	Quantity         int       `json:"quantity"`
	ReasonForReturn  string    `json:"reason_for_return"`
	RequestedAction  string    `json:"requested_action"`
	CustomerComments string    `json:"customer_comments"`
	StaffNotes       string    `json:"staff_notes"`
	Status           string    `json:"status"`
}

type Forum struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type ForumTopic struct {
	ID       int64  `json:"id"`
	Forum    *Forum `json:"-"`
	Subject  string `json:"subject"`
	NumPosts int    `json:"num_posts"`
	SeName   string `json:"se_name"`
}

type ForumPost struct {
	ID         int64       `json:"id"`
	ForumTopic *ForumTopic `json:"-"`
	Customer   *Customer   `json:"-"`
	Text       string      `json:"text"`
}

type PrivateMessage struct {
	ID           int64          `json:"id"`
	StoreID      kernel.StoreID `json:"store_id"`
	FromCustomer *Customer      `json:"-"`
	ToCustomer   *Customer      `json:"-"`
	Subject      string         `json:"subject"`
	Text         string         `json:"text"`
}

type GiftCard struct {
	ID                 int64   `json:"id"`
	Code               string  `json:"code"`
	Amount             float64 `json:"amount"`
	RecipientName      string  `json:"recipient_name"`
	RecipientEmail     string  `json:"recipient_email"`
	SenderName         string  `json:"sender_name"`
	SenderEmail        string  `json:"sender_email"`
	Message            string  `json:"message"`
	PurchasedWithOrder *Order  `json:"-"`
}

type BlogComment struct {
	ID            int64     `json:"id"`
	BlogPostTitle string    `json:"blog_post_title"`
	CommentText   string    `json:"comment_text"`
	Customer      *Customer `json:"-"`
}

type NewsComment struct {
	ID           int64  `json:"id"`
	NewsTitle    string `json:"news_title"`
	CommentTitle string `json:"comment_title"`
	CommentText  string `json:"comment_text"`
}

type BackInStockSubscription struct {
	ID       int64          `json:"id"`
	StoreID  kernel.StoreID `json:"store_id"`
	Customer *Customer      `json:"-"`
	Product  *Product       `json:"-"`
}

func joinName(first, last string) string {
	switch {
	case first == "":
		return last
	case last == "":
		return first
	default:
		return first + " " + last
	}
}

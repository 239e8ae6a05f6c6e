package workflow

import (
	"fmt"
	"html"
	"net/url"
	"strconv"
	"strings"

	"github.com/Abraxas-365/courier/pkg/messages"
	"github.com/Abraxas-365/courier/pkg/render"
	"github.com/Abraxas-365/courier/pkg/token"
)

// TokenProvider builds the %Key% tokens each event contributes. Values that
// are already HTML (tables, formatted notes) or URLs are added raw.
type TokenProvider struct {
	dateLayout string
}

func NewTokenProvider() *TokenProvider {
	return &TokenProvider{dateLayout: "2006-01-02 15:04"}
}

// add ignores the empty key error; keys here are constants.
func add(l *token.List, t token.Token) {
	_ = l.Add(t)
}

func storeLink(store *messages.Store, path string, query url.Values) string {
	link := strings.TrimRight(store.URL, "/") + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		link += "?" + query.Encode()
	}
	return link
}

// formatText escapes user text and keeps its line breaks.
// customerMarkup keeps HTML written by a customer raw when it is well formed
// and encodes it otherwise, so a stray "<" cannot break the body template.
func customerMarkup(key, value string) token.Token {
	if render.BalancedMarkup(value) {
		return token.NewRaw(key, value)
	}
	return token.New(key, value)
}

func formatText(s string) string {
	s = html.EscapeString(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "<br />")
}

func money(amount float64, currency string) string {
	s := strconv.FormatFloat(amount, 'f', 2, 64)
	if currency == "" {
		return s
	}
	return s + " " + currency
}

func (p *TokenProvider) AddStoreTokens(l *token.List, store *messages.Store, account *messages.EmailAccount) {
	add(l, token.New("Store.Name", store.Name))
	add(l, token.NewRaw("Store.URL", store.URL))
	add(l, token.New("Store.Email", account.Email))
	add(l, token.New("Store.CompanyName", store.CompanyName))
	add(l, token.New("Store.CompanyAddress", store.CompanyAddress))
	add(l, token.New("Store.CompanyPhoneNumber", store.CompanyPhoneNumber))
	add(l, token.New("Store.CompanyVat", store.CompanyVat))
}

func (p *TokenProvider) AddCustomerTokens(l *token.List, store *messages.Store, c *messages.Customer) {
	add(l, token.New("Customer.Email", c.Email))
	add(l, token.New("Customer.Username", c.Username))
	add(l, token.New("Customer.FullName", c.FullName()))
	add(l, token.New("Customer.FirstName", c.FirstName))
	add(l, token.New("Customer.LastName", c.LastName))
	add(l, token.New("Customer.VatNumber", c.VatNumber))

	q := url.Values{"email": {c.Email}}
	q.Set("token", c.AccountActivationToken)
	add(l, token.NewRaw("Customer.AccountActivationURL", storeLink(store, "customer/activation", q)))
	q.Set("token", c.PasswordRecoveryToken)
	add(l, token.NewRaw("Customer.PasswordRecoveryURL", storeLink(store, "passwordrecovery/confirm", q)))
}

func (p *TokenProvider) AddVendorTokens(l *token.List, v *messages.Vendor) {
	add(l, token.New("Vendor.Name", v.Name))
	add(l, token.New("Vendor.Email", v.Email))
}

// AddOrderTokens adds order tokens. A non-zero vendorID limits the product
// table to that vendor's items.
func (p *TokenProvider) AddOrderTokens(l *token.List, store *messages.Store, o *messages.Order, vendorID int64) {
	add(l, token.New("Order.OrderNumber", o.Number()))
	if o.Customer != nil {
		add(l, token.New("Order.CustomerFullName", o.Customer.FullName()))
		add(l, token.New("Order.CustomerEmail", o.Customer.Email))
	}
	b := o.BillingAddress
	add(l, token.New("Order.BillingFirstName", b.FirstName))
	add(l, token.New("Order.BillingLastName", b.LastName))
	add(l, token.New("Order.BillingEmail", b.Email))
	add(l, token.New("Order.BillingCompany", b.Company))
	add(l, token.New("Order.BillingAddress1", b.Address1))
	add(l, token.New("Order.BillingCity", b.City))
	add(l, token.New("Order.BillingZipPostalCode", b.ZipPostalCode))
	add(l, token.New("Order.BillingCountry", b.Country))
	add(l, token.New("Order.BillingPhoneNumber", b.PhoneNumber))
	if s := o.ShippingAddress; s != nil {
		add(l, token.New("Order.ShippingFirstName", s.FirstName))
		add(l, token.New("Order.ShippingLastName", s.LastName))
		add(l, token.New("Order.ShippingAddress1", s.Address1))
		add(l, token.New("Order.ShippingCity", s.City))
		add(l, token.New("Order.ShippingCountry", s.Country))
	}
	add(l, token.New("Order.ShippingMethod", o.ShippingMethod))
	add(l, token.New("Order.PaymentMethod", o.PaymentMethod))
	add(l, token.New("Order.Status", o.Status))
	add(l, token.NewRaw("Order.Product(s)", p.productTable(o.Items, vendorID, o.CurrencyCode)))
	add(l, token.New("Order.SubTotal", money(o.OrderSubtotal, o.CurrencyCode)))
	add(l, token.New("Order.Shipping", money(o.OrderShipping, o.CurrencyCode)))
	add(l, token.New("Order.Tax", money(o.OrderTax, o.CurrencyCode)))
	add(l, token.New("Order.OrderTotal", money(o.OrderTotal, o.CurrencyCode)))
	add(l, token.New("Order.CreatedOn", o.CreatedOnUtc.Format(p.dateLayout)))
	add(l, token.NewRaw("Order.OrderURLForCustomer", storeLink(store, "orderdetails/"+strconv.FormatInt(o.ID, 10), nil)))
}

func (p *TokenProvider) productTable(items []*messages.OrderItem, vendorID int64, currency string) string {
	var sb strings.Builder
	sb.WriteString(`<table border="0" style="width:100%;">`)
	sb.WriteString("<tr><th>Name</th><th>Price</th><th>Quantity</th><th>Total</th></tr>")
	for _, it := range items {
		if vendorID != 0 && it.VendorID != vendorID {
			continue
		}
		fmt.Fprintf(&sb, "<tr><td>%s</td><td>%s</td><td>%d</td><td>%s</td></tr>",
			html.EscapeString(it.ProductName),
			money(it.UnitPrice, currency),
			it.Quantity,
			money(it.PriceTotal, currency))
	}
	sb.WriteString("</table>")
	return sb.String()
}

func (p *TokenProvider) AddOrderNoteTokens(l *token.List, n *messages.OrderNote) {
	add(l, token.NewRaw("Order.NewNoteText", formatText(n.Note)))
}

func (p *TokenProvider) AddShipmentTokens(l *token.List, store *messages.Store, s *messages.Shipment) {
	add(l, token.New("Shipment.ShipmentNumber", strconv.FormatInt(s.ID, 10)))
	add(l, token.New("Shipment.TrackingNumber", s.TrackingNumber))
	currency := ""
	if s.Order != nil {
		currency = s.Order.CurrencyCode
	}
	add(l, token.NewRaw("Shipment.Product(s)", p.productTable(s.Items, 0, currency)))
	add(l, token.NewRaw("Shipment.URLForCustomer", storeLink(store, "orderdetails/shipment/"+strconv.FormatInt(s.ID, 10), nil)))
}

func (p *TokenProvider) AddRecurringPaymentTokens(l *token.List, rp *messages.RecurringPayment) {
	add(l, token.New("RecurringPayment.ID", strconv.FormatInt(rp.ID, 10)))
	add(l, token.New("RecurringPayment.CycleLength", strconv.Itoa(rp.CycleLength)))
	add(l, token.New("RecurringPayment.CyclePeriod", rp.CyclePeriod))
	add(l, token.New("RecurringPayment.TotalCycles", strconv.Itoa(rp.TotalCycles)))
}

func (p *TokenProvider) AddNewsLetterSubscriptionTokens(l *token.List, store *messages.Store, s *messages.NewsLetterSubscription) {
	add(l, token.New("NewsLetterSubscription.Email", s.Email))
	add(l, token.NewRaw("NewsLetterSubscription.ActivationURL", storeLink(store, "newsletter/subscriptionactivation/"+s.GUID+"/true", nil)))
	add(l, token.NewRaw("NewsLetterSubscription.DeactivationURL", storeLink(store, "newsletter/subscriptionactivation/"+s.GUID+"/false", nil)))
}

func (p *TokenProvider) AddProductTokens(l *token.List, store *messages.Store, pr *messages.Product) {
	add(l, token.New("Product.ID", strconv.FormatInt(pr.ID, 10)))
	add(l, token.New("Product.Name", pr.Name))
	add(l, token.NewRaw("Product.ShortDescription", pr.ShortDescription))
	add(l, token.New("Product.SKU", pr.SKU))
	add(l, token.New("Product.StockQuantity", strconv.Itoa(pr.StockQuantity)))
	add(l, token.NewRaw("Product.ProductURLForCustomer", storeLink(store, pr.SeName, nil)))
}

func (p *TokenProvider) AddProductReviewTokens(l *token.List, r *messages.ProductReview) {
	if r.Product != nil {
		add(l, token.New("ProductReview.ProductName", r.Product.Name))
	}
	add(l, token.New("ProductReview.Title", r.Title))
	add(l, token.NewRaw("ProductReview.ReviewText", formatText(r.ReviewText)))
}

func (p *TokenProvider) AddReturnRequestTokens(l *token.List, rr *messages.ReturnRequest, item *messages.OrderItem) {
	add(l, token.New("ReturnRequest.ID", strconv.FormatInt(rr.ID, 10)))
	if item.Order != nil {
		add(l, token.New("ReturnRequest.OrderID", item.Order.Number()))
	}
	add(l, token.New("ReturnRequest.Product.Quantity", strconv.Itoa(rr.Quantity)))
	add(l, token.New("ReturnRequest.Product.Name", item.ProductName))
	add(l, token.New("ReturnRequest.Reason", rr.ReasonForReturn))
	add(l, token.New("ReturnRequest.RequestedAction", rr.RequestedAction))
	add(l, token.NewRaw("ReturnRequest.CustomerComment", formatText(rr.CustomerComments)))
	add(l, token.NewRaw("ReturnRequest.StaffNotes", formatText(rr.StaffNotes)))
	add(l, token.New("ReturnRequest.Status", rr.Status))
}

func (p *TokenProvider) AddForumTokens(l *token.List, store *messages.Store, f *messages.Forum) {
	add(l, token.New("Forums.ForumName", f.Name))
	add(l, token.NewRaw("Forums.ForumURL", storeLink(store, "boards/forum/"+strconv.FormatInt(f.ID, 10), nil)))
}

// AddForumTopicTokens links to the topic; a positive pageIndex and postID
// link to that page and post.
func (p *TokenProvider) AddForumTopicTokens(l *token.List, store *messages.Store, t *messages.ForumTopic, pageIndex int, postID int64) {
	link := storeLink(store, "boards/topic/"+strconv.FormatInt(t.ID, 10), nil)
	if pageIndex > 1 {
		link += "/page/" + strconv.Itoa(pageIndex)
	}
	if postID > 0 {
		link += "#" + strconv.FormatInt(postID, 10)
	}
	add(l, token.New("Forums.TopicName", t.Subject))
	add(l, token.NewRaw("Forums.TopicURL", link))
}

func (p *TokenProvider) AddForumPostTokens(l *token.List, post *messages.ForumPost) {
	if post.Customer != nil {
		add(l, token.New("Forums.PostAuthor", post.Customer.FullName()))
	}
	add(l, token.NewRaw("Forums.PostBody", formatText(post.Text)))
}

func (p *TokenProvider) AddPrivateMessageTokens(l *token.List, pm *messages.PrivateMessage) {
	add(l, token.New("PrivateMessage.Subject", pm.Subject))
	add(l, token.NewRaw("PrivateMessage.Text", formatText(pm.Text)))
}

func (p *TokenProvider) AddGiftCardTokens(l *token.List, g *messages.GiftCard) {
	currency := ""
	if g.PurchasedWithOrder != nil {
		currency = g.PurchasedWithOrder.CurrencyCode
	}
	add(l, token.New("GiftCard.SenderName", g.SenderName))
	add(l, token.New("GiftCard.SenderEmail", g.SenderEmail))
	add(l, token.New("GiftCard.RecipientName", g.RecipientName))
	add(l, token.New("GiftCard.RecipientEmail", g.RecipientEmail))
	add(l, token.New("GiftCard.Amount", money(g.Amount, currency)))
	add(l, token.New("GiftCard.CouponCode", g.Code))
	add(l, token.NewRaw("GiftCard.Message", formatText(g.Message)))
}

func (p *TokenProvider) AddBlogCommentTokens(l *token.List, c *messages.BlogComment) {
	add(l, token.New("BlogComment.BlogPostTitle", c.BlogPostTitle))
}

func (p *TokenProvider) AddNewsCommentTokens(l *token.List, c *messages.NewsComment) {
	add(l, token.New("NewsComment.NewsTitle", c.NewsTitle))
}

func (p *TokenProvider) AddBackInStockTokens(l *token.List, store *messages.Store, s *messages.BackInStockSubscription) {
	if s.Product == nil {
		return
	}
	add(l, token.New("BackInStockSubscription.ProductName", s.Product.Name))
	add(l, token.NewRaw("BackInStockSubscription.ProductURL", storeLink(store, s.Product.SeName, nil)))
}

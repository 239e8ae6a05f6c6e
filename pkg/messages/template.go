package messages

import (
	"fmt"
	"strings"

	"github.com/Abraxas-365/courier/pkg/kernel"
)

// LocalizedTemplate overrides template fields for one language. Empty fields
// fall back to the template defaults.
type LocalizedTemplate struct {
	LanguageID        kernel.LanguageID `db:"language_id" json:"language_id"`
	Subject           string            `db:"subject" json:"subject"`
	Body              string            `db:"body" json:"body"`
	BccEmailAddresses string            `db:"bcc_email_addresses" json:"bcc_email_addresses"`
	EmailAccountID    kernel.AccountID  `db:"email_account_id" json:"email_account_id"`
}

// MessageTemplate is the subject/body pair sent for one business event,
// identified by its system name (e.g. "Customer.WelcomeMessage").
type MessageTemplate struct {
	ID                kernel.TemplateID `db:"id" json:"id"`
	Name              string            `db:"name" json:"name"`
	Subject           string            `db:"subject" json:"subject"`
	Body              string            `db:"body" json:"body"`
	BccEmailAddresses string            `db:"bcc_email_addresses" json:"bcc_email_addresses"`
	EmailAccountID    kernel.AccountID  `db:"email_account_id" json:"email_account_id"`
	IsActive          bool              `db:"is_active" json:"is_active"`

	// StoreIDs limits the template to the listed stores; empty means all.
	StoreIDs []kernel.StoreID `db:"-" json:"store_ids,omitempty"`

	Locales map[kernel.LanguageID]LocalizedTemplate `db:"-" json:"locales,omitempty"`
}

// Localized resolves every field for language.
func (t *MessageTemplate) Localized(language kernel.LanguageID) LocalizedTemplate {
	out := LocalizedTemplate{
		LanguageID:        language,
		Subject:           t.Subject,
		Body:              t.Body,
		BccEmailAddresses: t.BccEmailAddresses,
		EmailAccountID:    t.EmailAccountID,
	}

	loc, ok := t.Locales[language]
	if !ok {
		return out
	}
	if strings.TrimSpace(loc.Subject) != "" {
		out.Subject = loc.Subject
	}
	if strings.TrimSpace(loc.Body) != "" {
		out.Body = loc.Body
	}
	if strings.TrimSpace(loc.BccEmailAddresses) != "" {
		out.BccEmailAddresses = loc.BccEmailAddresses
	}
	if !loc.EmailAccountID.IsZero() {
		out.EmailAccountID = loc.EmailAccountID
	}
	return out
}

func (t *MessageTemplate) AvailableIn(store kernel.StoreID) bool {
	if len(t.StoreIDs) == 0 {
		return true
	}
	for _, id := range t.StoreIDs {
		if id == store {
			return true
		}
	}
	return false
}

// CacheIdentity is the identity compiled subjects and bodies of this
// template are cached under.
func (t *MessageTemplate) CacheIdentity() string {
	return fmt.Sprintf("MailTemplate:%d", t.ID)
}

// Template system names.
const (
	TemplateNewCustomerNotification            = "NewCustomer.Notification"
	TemplateCustomerWelcome                    = "Customer.WelcomeMessage"
	TemplateCustomerEmailValidation            = "Customer.EmailValidationMessage"
	TemplateCustomerPasswordRecovery           = "Customer.PasswordRecovery"
	TemplateOrderPlacedVendor                  = "OrderPlaced.VendorNotification"
	TemplateOrderPlacedStoreOwner              = "OrderPlaced.StoreOwnerNotification"
	TemplateOrderPaidStoreOwner                = "OrderPaid.StoreOwnerNotification"
	TemplateOrderPlacedCustomer                = "OrderPlaced.CustomerNotification"
	TemplateShipmentSentCustomer               = "ShipmentSent.CustomerNotification"
	TemplateShipmentDeliveredCustomer          = "ShipmentDelivered.CustomerNotification"
	TemplateOrderCompletedCustomer             = "OrderCompleted.CustomerNotification"
	TemplateOrderCancelledCustomer             = "OrderCancelled.CustomerNotification"
	TemplateNewOrderNote                       = "Customer.NewOrderNote"
	TemplateRecurringPaymentCancelledOwner     = "RecurringPaymentCancelled.StoreOwnerNotification"
	TemplateNewsLetterActivation               = "NewsLetterSubscription.ActivationMessage"
	TemplateEmailAFriend                       = "Service.EmailAFriend"
	TemplateWishlistEmailAFriend               = "Wishlist.EmailAFriend"
	TemplateNewReturnRequestStoreOwner         = "NewReturnRequest.StoreOwnerNotification"
	TemplateReturnRequestStatusChangedCustomer = "ReturnRequestStatusChanged.CustomerNotification"
	TemplateNewForumTopic                      = "Forums.NewForumTopic"
	TemplateNewForumPost                       = "Forums.NewForumPost"
	TemplateNewPrivateMessage                  = "Customer.NewPM"
	TemplateGiftCard                           = "GiftCard.Notification"
	TemplateProductReview                      = "Product.ProductReview"
	TemplateQuantityBelowStoreOwner            = "QuantityBelow.StoreOwnerNotification"
	TemplateNewVatSubmittedStoreOwner          = "NewVATSubmitted.StoreOwnerNotification"
	TemplateBlogComment                        = "Blog.BlogComment"
	TemplateNewsComment                        = "News.NewsComment"
	TemplateBackInStock                        = "Customer.BackInStock"
)

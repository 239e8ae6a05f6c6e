package workflow

import (
	"context"

	"github.com/Abraxas-365/courier/pkg/kernel"
	"github.com/Abraxas-365/courier/pkg/messages"
	"github.com/Abraxas-365/courier/pkg/token"
)

func toCustomer(c *messages.Customer) func(resolved) (string, string) {
	return func(resolved) (string, string) {
		return c.Email, c.FullName()
	}
}

func (d *Dispatcher) customerNotification(ctx context.Context, name string, c *messages.Customer, languageID kernel.LanguageID, toOwner bool) (int64, error) {
	if c == nil {
		return 0, missing("customer")
	}
	recipient := toCustomer(c)
	if toOwner {
		recipient = toAccount
	}
	return d.send(ctx, notification{
		template: name,
		language: languageID,
		tokens: func(l *token.List, r resolved) {
			d.tokens.AddCustomerTokens(l, r.store, c)
		},
		model:     messages.Model{Customer: c},
		recipient: recipient,
	})
}

// SendCustomerRegisteredNotification tells the store owner about a new customer.
func (d *Dispatcher) SendCustomerRegisteredNotification(ctx context.Context, c *messages.Customer, languageID kernel.LanguageID) (int64, error) {
	return d.customerNotification(ctx, messages.TemplateNewCustomerNotification, c, languageID, true)
}

func (d *Dispatcher) SendCustomerWelcomeMessage(ctx context.Context, c *messages.Customer, languageID kernel.LanguageID) (int64, error) {
	return d.customerNotification(ctx, messages.TemplateCustomerWelcome, c, languageID, false)
}

func (d *Dispatcher) SendCustomerEmailValidationMessage(ctx context.Context, c *messages.Customer, languageID kernel.LanguageID) (int64, error) {
	return d.customerNotification(ctx, messages.TemplateCustomerEmailValidation, c, languageID, false)
}

func (d *Dispatcher) SendCustomerPasswordRecoveryMessage(ctx context.Context, c *messages.Customer, languageID kernel.LanguageID) (int64, error) {
	return d.customerNotification(ctx, messages.TemplateCustomerPasswordRecovery, c, languageID, false)
}

// SendNewsLetterSubscriptionActivationMessage asks the subscriber to confirm.
// It is sent from the current store.
func (d *Dispatcher) SendNewsLetterSubscriptionActivationMessage(ctx context.Context, s *messages.NewsLetterSubscription, languageID kernel.LanguageID) (int64, error) {
	if s == nil {
		return 0, missing("subscription")
	}
	return d.send(ctx, notification{
		template: messages.TemplateNewsLetterActivation,
		language: languageID,
		tokens: func(l *token.List, r resolved) {
			d.tokens.AddNewsLetterSubscriptionTokens(l, r.store, s)
		},
		model: messages.Model{Subscription: s},
		recipient: func(resolved) (string, string) {
			return s.Email, ""
		},
	})
}

// SendProductEmailAFriendMessage sends a product link to a friend of the customer.
func (d *Dispatcher) SendProductEmailAFriendMessage(ctx context.Context, c *messages.Customer, languageID kernel.LanguageID, p *messages.Product, customerEmail, friendsEmail, personalMessage string) (int64, error) {
	if c == nil {
		return 0, missing("customer")
	}
	if p == nil {
		return 0, missing("product")
	}
	return d.send(ctx, notification{
		template: messages.TemplateEmailAFriend,
		language: languageID,
		tokens: func(l *token.List, r resolved) {
			d.tokens.AddCustomerTokens(l, r.store, c)
			d.tokens.AddProductTokens(l, r.store, p)
			add(l, customerMarkup("EmailAFriend.PersonalMessage", personalMessage))
			add(l, token.New("EmailAFriend.Email", customerEmail))
		},
		model: messages.Model{
			Customer:        c,
			Product:         p,
			CustomerEmail:   customerEmail,
			PersonalMessage: personalMessage,
		},
		recipient: func(resolved) (string, string) {
			return friendsEmail, ""
		},
	})
}

// SendWishlistEmailAFriendMessage shares the customer's wishlist with a friend.
func (d *Dispatcher) SendWishlistEmailAFriendMessage(ctx context.Context, c *messages.Customer, languageID kernel.LanguageID, customerEmail, friendsEmail, personalMessage string) (int64, error) {
	if c == nil {
		return 0, missing("customer")
	}
	return d.send(ctx, notification{
		template: messages.TemplateWishlistEmailAFriend,
		language: languageID,
		tokens: func(l *token.List, r resolved) {
			d.tokens.AddCustomerTokens(l, r.store, c)
			add(l, customerMarkup("Wishlist.PersonalMessage", personalMessage))
			add(l, token.New("Wishlist.Email", customerEmail))
		},
		model: messages.Model{
			Customer:        c,
			CustomerEmail:   customerEmail,
			PersonalMessage: personalMessage,
		},
		recipient: func(resolved) (string, string) {
			return friendsEmail, ""
		},
	})
}

// SendNewVatSubmittedStoreOwnerNotification reports a VAT number submitted by
// a customer together with the validation service's answer.
func (d *Dispatcher) SendNewVatSubmittedStoreOwnerNotification(ctx context.Context, c *messages.Customer, vatName, vatAddress string, languageID kernel.LanguageID) (int64, error) {
	if c == nil {
		return 0, missing("customer")
	}
	return d.send(ctx, notification{
		template: messages.TemplateNewVatSubmittedStoreOwner,
		language: languageID,
		tokens: func(l *token.List, r resolved) {
			d.tokens.AddCustomerTokens(l, r.store, c)
			add(l, token.New("VatValidationResult.Name", vatName))
			add(l, token.New("VatValidationResult.Address", vatAddress))
		},
		model:     messages.Model{Customer: c, VatName: vatName, VatAddress: vatAddress},
		recipient: toAccount,
	})
}

func (d *Dispatcher) SendPrivateMessageNotification(ctx context.Context, pm *messages.PrivateMessage, languageID kernel.LanguageID) (int64, error) {
	if pm == nil {
		return 0, missing("private_message")
	}
	if pm.ToCustomer == nil {
		return 0, missing("private_message.to_customer")
	}
	return d.send(ctx, notification{
		template: messages.TemplateNewPrivateMessage,
		storeID:  pm.StoreID,
		language: languageID,
		tokens: func(l *token.List, r resolved) {
			d.tokens.AddPrivateMessageTokens(l, pm)
			d.tokens.AddCustomerTokens(l, r.store, pm.ToCustomer)
		},
		model:     messages.Model{PrivateMessage: pm, Customer: pm.ToCustomer},
		recipient: toCustomer(pm.ToCustomer),
	})
}

func (d *Dispatcher) SendBackInStockNotification(ctx context.Context, s *messages.BackInStockSubscription, languageID kernel.LanguageID) (int64, error) {
	if s == nil {
		return 0, missing("subscription")
	}
	if s.Customer == nil {
		return 0, missing("subscription.customer")
	}
	return d.send(ctx, notification{
		template: messages.TemplateBackInStock,
		storeID:  s.StoreID,
		language: languageID,
		tokens: func(l *token.List, r resolved) {
			d.tokens.AddCustomerTokens(l, r.store, s.Customer)
			d.tokens.AddBackInStockTokens(l, r.store, s)
		},
		model: messages.Model{
			BackInStockSubscription: s,
			Customer:                s.Customer,
			Product:                 s.Product,
		},
		recipient: toCustomer(s.Customer),
	})
}

package workflow

import (
	"context"

	"github.com/Abraxas-365/courier/pkg/kernel"
	"github.com/Abraxas-365/courier/pkg/messages"
	"github.com/Abraxas-365/courier/pkg/token"
)

// SendNewForumTopicMessage notifies a forum subscriber about a new topic.
func (d *Dispatcher) SendNewForumTopicMessage(ctx context.Context, c *messages.Customer, topic *messages.ForumTopic, forum *messages.Forum, languageID kernel.LanguageID) (int64, error) {
	switch {
	case c == nil:
		return 0, missing("customer")
	case topic == nil:
		return 0, missing("forum_topic")
	case forum == nil:
		return 0, missing("forum")
	}
	return d.send(ctx, notification{
		template: messages.TemplateNewForumTopic,
		language: languageID,
		tokens: func(l *token.List, r resolved) {
			d.tokens.AddForumTopicTokens(l, r.store, topic, 0, 0)
			d.tokens.AddForumTokens(l, r.store, forum)
		},
		model:     messages.Model{Customer: c, ForumTopic: topic, Forum: forum},
		recipient: toCustomer(c),
	})
}

// SendNewForumPostMessage notifies a topic subscriber about a new post.
// pageIndex is the page of the topic the post lands on.
func (d *Dispatcher) SendNewForumPostMessage(ctx context.Context, c *messages.Customer, post *messages.ForumPost, topic *messages.ForumTopic, forum *messages.Forum, pageIndex int, languageID kernel.LanguageID) (int64, error) {
	switch {
	case c == nil:
		return 0, missing("customer")
	case post == nil:
		return 0, missing("forum_post")
	case topic == nil:
		return 0, missing("forum_topic")
	case forum == nil:
		return 0, missing("forum")
	}
	return d.send(ctx, notification{
		template: messages.TemplateNewForumPost,
		language: languageID,
		tokens: func(l *token.List, r resolved) {
			d.tokens.AddForumPostTokens(l, post)
			d.tokens.AddForumTopicTokens(l, r.store, topic, pageIndex, post.ID)
			d.tokens.AddForumTokens(l, r.store, forum)
		},
		model:     messages.Model{Customer: c, ForumPost: post, ForumTopic: topic, Forum: forum},
		recipient: toCustomer(c),
	})
}

func (d *Dispatcher) SendProductReviewNotification(ctx context.Context, review *messages.ProductReview, languageID kernel.LanguageID) (int64, error) {
	if review == nil {
		return 0, missing("product_review")
	}
	return d.send(ctx, notification{
		template: messages.TemplateProductReview,
		language: languageID,
		tokens: func(l *token.List, r resolved) {
			d.tokens.AddProductReviewTokens(l, review)
		},
		model: messages.Model{
			ProductReview: review,
			Product:       review.Product,
			Customer:      review.Customer,
		},
		recipient: toAccount,
	})
}

// SendQuantityBelowStoreOwnerNotification warns the store owner that a
// product's stock fell under its threshold.
func (d *Dispatcher) SendQuantityBelowStoreOwnerNotification(ctx context.Context, p *messages.Product, languageID kernel.LanguageID) (int64, error) {
	if p == nil {
		return 0, missing("product")
	}
	return d.send(ctx, notification{
		template: messages.TemplateQuantityBelowStoreOwner,
		language: languageID,
		tokens: func(l *token.List, r resolved) {
			d.tokens.AddProductTokens(l, r.store, p)
		},
		model:     messages.Model{Product: p},
		recipient: toAccount,
	})
}

func (d *Dispatcher) SendBlogCommentNotification(ctx context.Context, c *messages.BlogComment, languageID kernel.LanguageID) (int64, error) {
	if c == nil {
		return 0, missing("blog_comment")
	}
	return d.send(ctx, notification{
		template: messages.TemplateBlogComment,
		language: languageID,
		tokens: func(l *token.List, r resolved) {
			d.tokens.AddBlogCommentTokens(l, c)
		},
		model:     messages.Model{BlogComment: c, Customer: c.Customer},
		recipient: toAccount,
	})
}

func (d *Dispatcher) SendNewsCommentNotification(ctx context.Context, c *messages.NewsComment, languageID kernel.LanguageID) (int64, error) {
	if c == nil {
		return 0, missing("news_comment")
	}
	return d.send(ctx, notification{
		template: messages.TemplateNewsComment,
		language: languageID,
		tokens: func(l *token.List, r resolved) {
			d.tokens.AddNewsCommentTokens(l, c)
		},
		model:     messages.Model{NewsComment: c},
		recipient: toAccount,
	})
}

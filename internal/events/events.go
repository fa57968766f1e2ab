// Package events publishes article lifecycle notifications.
package events

import (
	"context"
	"time"
)

// Type names a lifecycle transition of a queue item.
type Type string

const (
	ArticleGenerating Type = "article.generating"
	ArticleGenerated  Type = "article.generated"
	ArticleFailed     Type = "article.failed"
)

// Event is one lifecycle notification.
type Event struct {
	Type       Type      `json:"type"`
	ItemID     int64     `json:"item_id"`
	Title      string    `json:"title"`
	ArticleID  *int64    `json:"article_id,omitempty"`
	ImageError string    `json:"image_error,omitempty"`
	Error      string    `json:"error,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers events to interested consumers.
// Delivery is best-effort: callers log publish errors and carry on.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Nop discards every event. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

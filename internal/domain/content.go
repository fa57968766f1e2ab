package domain

import (
	"strings"
	"time"
	"unicode"
)

// Content types searched for link candidates.
const (
	ContentPost = "post"
	ContentPage = "page"
)

// Article meta keys written by the pipeline.
const (
	MetaGenerated  = "generated"
	MetaOptions    = "options"
	MetaImageError = "image_error"
)

// Candidate is a published article eligible to be linked to.
type Candidate struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

// Article is the publication record created at the end of the pipeline.
type Article struct {
	ID            int64             `json:"id"`
	Title         string            `json:"title"`
	Slug          string            `json:"slug"`
	Body          string            `json:"body"`
	Status        PostStatus        `json:"status"`
	Type          string            `json:"type"`
	Category      *int64            `json:"category,omitempty"`
	Tags          []string          `json:"tags,omitempty"`
	FeaturedImage *int64            `json:"featured_image,omitempty"`
	Meta          map[string]string `json:"meta,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
}

// MediaAsset is a stored binary image.
type MediaAsset struct {
	ID        int64     `json:"id"`
	Filename  string    `json:"filename"`
	MIME      string    `json:"mime"`
	Data      []byte    `json:"-"`
	AltText   string    `json:"alt_text"`
	CreatedAt time.Time `json:"created_at"`
}

// Slugify lowercases title and joins its alphanumeric runs with hyphens.
func Slugify(title string) string {
	var b strings.Builder
	pendingDash := false
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
			continue
		}
		pendingDash = true
	}
	if b.Len() == 0 {
		return "untitled"
	}
	return b.String()
}

// ImageExtension maps an image MIME type to a file extension.
func ImageExtension(mime string) string {
	switch mime {
	case "image/jpeg", "image/jpg":
		return "jpg"
	case "image/webp":
		return "webp"
	}
	return "png"
}

package domain

import "strings"

// ArticleType selects the article format label used in the system prompt.
type ArticleType string

const (
	ArticleBlogPost   ArticleType = "blog_post"
	ArticleListicle   ArticleType = "listicle"
	ArticleHowTo      ArticleType = "how_to"
	ArticleReview     ArticleType = "review"
	ArticleComparison ArticleType = "comparison"
	ArticleNews       ArticleType = "news"
)

// PostStatus is the publication status of a created article.
type PostStatus string

const (
	PostDraft   PostStatus = "draft"
	PostPublish PostStatus = "publish"
	PostPending PostStatus = "pending"
)

// Normalize maps any unrecognised status to draft.
func (s PostStatus) Normalize() PostStatus {
	switch s {
	case PostDraft, PostPublish, PostPending:
		return s
	}
	return PostDraft
}

// ImageProviderNone disables the image stage.
const ImageProviderNone = "none"

// Options is the generation configuration captured when a title is enqueued.
// It is stored with the queue item so later settings changes never affect
// in-flight or historical items.
type Options struct {
	WordCount       int         `json:"word_count"`
	ArticleType     ArticleType `json:"article_type"`
	Tone            string      `json:"tone"`
	POV             string      `json:"pov"`
	FAQCount        int         `json:"faq_count"`
	TakeawayCount   int         `json:"takeaway_count"`
	PostStatus      PostStatus  `json:"post_status"`
	Category        int64       `json:"category"`
	Tags            string      `json:"tags"`
	ImageProvider   string      `json:"image_provider"`
	ImageStyle      string      `json:"image_style"`
	InternalLinking bool        `json:"internal_linking"`
	MaxLinks        int         `json:"max_links"`
}

// ImageEnabled reports whether the image stage should run.
func (o Options) ImageEnabled() bool {
	return o.ImageProvider != "" && o.ImageProvider != ImageProviderNone
}

// TagList splits the comma-separated tag string, dropping empty entries.
func (o Options) TagList() []string {
	if strings.TrimSpace(o.Tags) == "" {
		return nil
	}
	var tags []string
	for _, t := range strings.Split(o.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// GenerateRequest is the inbound payload for POST /generate.
// Pointer fields distinguish "absent" from an explicit zero so configured
// defaults only fill what the caller left out.
type GenerateRequest struct {
	Titles          []string `json:"titles"`
	WordCount       *int     `json:"word_count,omitempty"`
	ArticleType     *string  `json:"article_type,omitempty"`
	Tone            *string  `json:"tone,omitempty"`
	POV             *string  `json:"pov,omitempty"`
	FAQCount        *int     `json:"faq_count,omitempty"`
	TakeawayCount   *int     `json:"takeaway_count,omitempty"`
	PostStatus      *string  `json:"post_status,omitempty"`
	Category        *int64   `json:"category,omitempty"`
	Tags            *string  `json:"tags,omitempty"`
	ImageProvider   *string  `json:"image_provider,omitempty"`
	ImageStyle      *string  `json:"image_style,omitempty"`
	InternalLinking *int     `json:"internal_linking,omitempty"`
	MaxLinks        *int     `json:"max_links,omitempty"`
}

// Validate checks the request has at least one title.
func (r *GenerateRequest) Validate() error {
	if len(r.Titles) == 0 {
		return ErrValidation
	}
	return nil
}

// Resolve fills every absent field from defaults and returns the snapshot.
// Negative counts are clamped to zero.
func (r *GenerateRequest) Resolve(defaults Options) Options {
	o := defaults
	if r.WordCount != nil && *r.WordCount > 0 {
		o.WordCount = *r.WordCount
	}
	if r.ArticleType != nil && *r.ArticleType != "" {
		o.ArticleType = ArticleType(strings.ToLower(*r.ArticleType))
	}
	if r.Tone != nil && *r.Tone != "" {
		o.Tone = strings.ToLower(*r.Tone)
	}
	if r.POV != nil && *r.POV != "" {
		o.POV = strings.ToLower(*r.POV)
	}
	if r.FAQCount != nil {
		o.FAQCount = max(*r.FAQCount, 0)
	}
	if r.TakeawayCount != nil {
		o.TakeawayCount = max(*r.TakeawayCount, 0)
	}
	if r.PostStatus != nil && *r.PostStatus != "" {
		o.PostStatus = PostStatus(strings.ToLower(*r.PostStatus))
	}
	if r.Category != nil {
		o.Category = max(*r.Category, 0)
	}
	if r.Tags != nil {
		o.Tags = strings.TrimSpace(*r.Tags)
	}
	if r.ImageProvider != nil && *r.ImageProvider != "" {
		o.ImageProvider = strings.ToLower(*r.ImageProvider)
	}
	if r.ImageStyle != nil && *r.ImageStyle != "" {
		o.ImageStyle = strings.ToLower(*r.ImageStyle)
	}
	if r.InternalLinking != nil {
		o.InternalLinking = *r.InternalLinking != 0
	}
	if r.MaxLinks != nil {
		o.MaxLinks = max(*r.MaxLinks, 0)
	}
	return o
}

package pipeline

import (
	"fmt"
	"strings"

	"github.com/ricirt/autoblog/internal/domain"
)

const (
	defaultTone      = "informative"
	defaultWordCount = 1500
)

func povLabel(pov string) string {
	switch pov {
	case "first":
		return "first person (I/we)"
	case "second":
		return "second person (you)"
	}
	return "third person"
}

func articleTypeLabel(t domain.ArticleType) string {
	switch t {
	case domain.ArticleListicle:
		return "listicle (numbered list format)"
	case domain.ArticleHowTo:
		return "how-to guide with step-by-step instructions"
	case domain.ArticleReview:
		return "detailed review"
	case domain.ArticleComparison:
		return "comparison article"
	case domain.ArticleNews:
		return "news article"
	}
	return "standard blog post"
}

// SystemPrompt builds the writer instructions for opts.
func SystemPrompt(opts domain.Options) string {
	tone := opts.Tone
	if tone == "" {
		tone = defaultTone
	}

	parts := []string{
		fmt.Sprintf("You are an expert blog writer. Write in a %s tone using %s point of view.", tone, povLabel(opts.POV)),
		fmt.Sprintf("Article format: %s.", articleTypeLabel(opts.ArticleType)),
		"Write well-structured HTML content with proper headings (h2, h3), paragraphs, and lists where appropriate.",
		"Do NOT include the article title as an h1. The title is rendered separately.",
		"Use semantic HTML. Do not include <html>, <head>, or <body> tags.",
	}
	if opts.FAQCount > 0 {
		parts = append(parts, fmt.Sprintf("Include a FAQ section at the end with exactly %d questions and answers, using an h2 heading 'Frequently Asked Questions' and h3 for each question.", opts.FAQCount))
	}
	if opts.TakeawayCount > 0 {
		parts = append(parts, fmt.Sprintf("Include a 'Key Takeaways' section near the top with exactly %d bullet points summarizing the main points, using an h2 heading.", opts.TakeawayCount))
	}
	return strings.Join(parts, "\n\n")
}

// UserPrompt asks for the article body. relatedTopics is omitted when empty.
func UserPrompt(title string, opts domain.Options, relatedTopics string) string {
	words := opts.WordCount
	if words <= 0 {
		words = defaultWordCount
	}

	parts := []string{
		fmt.Sprintf("Write a comprehensive article titled: \"%s\"", title),
		fmt.Sprintf("Target word count: approximately %d words.", words),
	}
	if relatedTopics != "" {
		parts = append(parts, "When relevant, naturally reference these related topics from our site (you don't need to add links, just mention the topics naturally):\n"+relatedTopics)
	}
	parts = append(parts, "Return only the HTML article body content. No preamble or commentary.")
	return strings.Join(parts, "\n\n")
}

func styleDescriptor(style string) string {
	switch style {
	case "photorealistic":
		return "photorealistic, high quality photography"
	case "illustration":
		return "digital illustration, vibrant colors"
	case "3d_render":
		return "3D rendered, professional lighting"
	case "digital_art":
		return "digital art, modern aesthetic"
	case "watercolor":
		return "watercolor painting, artistic"
	}
	return "high quality"
}

// ImagePrompt describes the featured image for title in style.
func ImagePrompt(title, style string) string {
	return fmt.Sprintf("A featured blog image for an article titled \"%s\". Style: %s. Clean, professional, suitable for a blog header. No text or words in the image.",
		title, styleDescriptor(style))
}

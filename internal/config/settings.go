package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/ricirt/autoblog/internal/domain"
)

// Settings is the optional TOML settings file. It carries the generation
// defaults an operator would otherwise edit on an admin screen, plus the
// encrypted image provider credential.
//
//	[defaults]
//	word_count = 2000
//	tone = "friendly"
//
//	[credentials]
//	stability_api_key = "base64(iv||ciphertext)"
type Settings struct {
	Defaults    DefaultSettings     `toml:"defaults"`
	Credentials CredentialsSettings `toml:"credentials"`
}

// DefaultSettings uses pointers so keys missing from the file keep the
// built-in value.
type DefaultSettings struct {
	WordCount       *int    `toml:"word_count"`
	ArticleType     *string `toml:"article_type"`
	Tone            *string `toml:"tone"`
	POV             *string `toml:"pov"`
	FAQCount        *int    `toml:"faq_count"`
	TakeawayCount   *int    `toml:"takeaway_count"`
	PostStatus      *string `toml:"post_status"`
	Category        *int64  `toml:"category"`
	Tags            *string `toml:"tags"`
	ImageProvider   *string `toml:"image_provider"`
	ImageStyle      *string `toml:"image_style"`
	InternalLinking *bool   `toml:"internal_linking"`
	MaxLinks        *int    `toml:"max_links"`
}

type CredentialsSettings struct {
	StabilityAPIKey string `toml:"stability_api_key"`
}

// LoadSettings decodes the settings file at path. An empty path yields empty settings.
func LoadSettings(path string) (*Settings, error) {
	s := &Settings{}
	if path == "" {
		return s, nil
	}
	md, err := toml.DecodeFile(path, s)
	if err != nil {
		return nil, fmt.Errorf("decode settings %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("settings %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return s, nil
}

// apply overlays the file's values onto base with the same rules as a request.
func (d DefaultSettings) apply(base domain.Options) domain.Options {
	var linking *int
	if d.InternalLinking != nil {
		v := 0
		if *d.InternalLinking {
			v = 1
		}
		linking = &v
	}
	req := domain.GenerateRequest{
		WordCount:       d.WordCount,
		ArticleType:     d.ArticleType,
		Tone:            d.Tone,
		POV:             d.POV,
		FAQCount:        d.FAQCount,
		TakeawayCount:   d.TakeawayCount,
		PostStatus:      d.PostStatus,
		Category:        d.Category,
		Tags:            d.Tags,
		ImageProvider:   d.ImageProvider,
		ImageStyle:      d.ImageStyle,
		InternalLinking: linking,
		MaxLinks:        d.MaxLinks,
	}
	return req.Resolve(base)
}

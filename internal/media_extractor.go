package internal

import (
	"fmt"
	"regexp"
	"strings"
)

// MediaRule is one entry of the ordered URL pattern cascade.
type MediaRule struct {
	Name    string
	Pattern *regexp.Regexp
}

// MediaConfig configures a MediaExtractor.
type MediaConfig struct {
	// Rules are applied in order, most specific first.
	Rules []MediaRule
	// LineScan enables the per-line recovery pass for irregular agent output.
	LineScan bool
	// LineKeywords gate which lines the line scan looks at.
	LineKeywords []string
}

// LineScanSource tags references found by the line scan.
const LineScanSource = "fallback_search"

const (
	mediaExt    = `(?:png|jpg|jpeg|gif|webp|mp4|mov|avi)`
	mediaExtPDF = `(?:png|jpg|jpeg|gif|webp|mp4|mov|avi|pdf)`
)

var (
	trailingPunct   = regexp.MustCompile(`[,;)\]}]+$`)
	videoExt        = regexp.MustCompile(`(?i)\.(?:mp4|mov|avi)$`)
	documentExt     = regexp.MustCompile(`(?i)\.pdf$`)
	recognizedExt   = regexp.MustCompile(`(?i)\.` + mediaExtPDF + `$`)
	httpsFragment   = regexp.MustCompile(`https://[^\s,;)]+`)
	mediaURLLiteral = []string{".jpg", ".png", ".mp4", ".gif", ".jpeg"}
)

// KnownAgentImagePath is the output path that always signals generated media.
const KnownAgentImagePath = "liblibai-online.liblib.cloud/agent_images/"

// DefaultMediaRules returns the built-in cascade.
func DefaultMediaRules() []MediaRule {
	return []MediaRule{
		{Name: "pattern_1", Pattern: regexp.MustCompile(`(?i)https://liblibai-online\.liblib\.cloud/agent_images/[a-f0-9-]+\.` + mediaExt)},
		{Name: "pattern_2", Pattern: regexp.MustCompile(`(?i)https://liblibai-online\.liblib\.cloud/sd-images/[a-f0-9-]+\.` + mediaExt)},
		{Name: "pattern_3", Pattern: regexp.MustCompile(`(?i)https://[^/\s]*\.?liblib\.cloud/[^/\s]+/[a-zA-Z0-9_-]+\.` + mediaExtPDF)},
		{Name: "pattern_4", Pattern: regexp.MustCompile(`(?i)https://[^\s,;)]+\.` + mediaExt)},
	}
}

// DefaultMediaConfig returns the default rules with the line scan enabled.
func DefaultMediaConfig() MediaConfig {
	return MediaConfig{
		Rules:        DefaultMediaRules(),
		LineScan:     true,
		LineKeywords: []string{"liblib", "generated", "image"},
	}
}

// CompileMediaRule builds a rule from a user-supplied pattern.
func CompileMediaRule(name, pattern string) (MediaRule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return MediaRule{}, fmt.Errorf("compile media rule %s: %w", name, err)
	}
	return MediaRule{Name: name, Pattern: re}, nil
}

// MediaExtractor mines free text for media URLs.
// It holds no mutable state and is safe for concurrent use.
type MediaExtractor struct {
	cfg MediaConfig
}

// NewMediaExtractor creates a MediaExtractor
func NewMediaExtractor(cfg MediaConfig) *MediaExtractor {
	return &MediaExtractor{cfg: cfg}
}

// Extract returns every media reference in text, first match per URL wins.
// The result is never nil.
func (m *MediaExtractor) Extract(text string) []MediaReference {
	refs := []MediaReference{}
	if text == "" {
		return refs
	}
	seen := make(map[string]bool)

	add := func(url, source string) {
		if url == "" || seen[url] {
			return
		}
		seen[url] = true
		refs = append(refs, MediaReference{Type: ClassifyMedia(url), URL: url, Source: source})
	}

	for _, rule := range m.cfg.Rules {
		for _, match := range rule.Pattern.FindAllString(text, -1) {
			add(cleanURL(match), rule.Name)
		}
	}

	if m.cfg.LineScan {
		for _, url := range m.scanLines(text) {
			add(url, LineScanSource)
		}
	}
	return refs
}

func (m *MediaExtractor) scanLines(text string) []string {
	var urls []string
	for _, line := range strings.Split(text, "\n") {
		if !strings.Contains(line, "http") || !containsAny(line, m.cfg.LineKeywords) {
			continue
		}
		for _, fragment := range httpsFragment.FindAllString(line, -1) {
			url := cleanURL(fragment)
			if recognizedExt.MatchString(url) {
				urls = append(urls, url)
			}
		}
	}
	return urls
}

// ClassifyMedia maps a URL's extension to a media type.
func ClassifyMedia(url string) MediaType {
	switch {
	case videoExt.MatchString(url):
		return MediaVideo
	case documentExt.MatchString(url):
		return MediaDocument
	default:
		return MediaImage
	}
}

// ContainsMediaURL is the cheap literal check used for media detection.
func ContainsMediaURL(s string) bool {
	return s != "" && strings.Contains(s, "http") && containsAny(s, mediaURLLiteral)
}

func cleanURL(url string) string {
	return trailingPunct.ReplaceAllString(url, "")
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

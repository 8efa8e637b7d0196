package internal

import (
	"encoding/json"
	"strings"
)

// UserInputKey is the field of the input JSON object that carries the encoded parts array.
const UserInputKey = "user_input"

// UserInputKind tells which variant a UserInput holds.
type UserInputKind int

const (
	// UserInputRaw means the input could not be decoded; Raw holds it unchanged.
	UserInputRaw UserInputKind = iota
	// UserInputParts means the nested parts array decoded; Parts holds it.
	UserInputParts
)

// InputPart is one element of the nested user-input array.
type InputPart struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

// UserInput is the decoded form of a record's input column.
type UserInput struct {
	Kind  UserInputKind
	Parts []InputPart
	Raw   string
}

// DecodeUserInput decodes `{"user_input": "<json array of parts>"}`.
// Any failure at either layer yields the Raw variant; it never returns an error.
func DecodeUserInput(raw string) UserInput {
	fallback := UserInput{Kind: UserInputRaw, Raw: raw}
	if strings.TrimSpace(raw) == "" {
		return fallback
	}

	var outer map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &outer); err != nil {
		return fallback
	}
	field, ok := outer[UserInputKey]
	if !ok {
		return fallback
	}

	var encoded string
	if err := json.Unmarshal(field, &encoded); err != nil {
		return fallback
	}

	var parts []InputPart
	if err := json.Unmarshal([]byte(encoded), &parts); err != nil {
		return fallback
	}
	return UserInput{Kind: UserInputParts, Parts: parts, Raw: raw}
}

// Text joins the text parts with spaces. For the Raw variant it returns Raw.
func (u UserInput) Text() string {
	if u.Kind != UserInputParts {
		return u.Raw
	}
	texts := make([]string, 0, len(u.Parts))
	for _, p := range u.Parts {
		if p.Type == "text" {
			texts = append(texts, p.Text)
		}
	}
	return strings.TrimSpace(strings.Join(texts, " "))
}

// Media returns the image parts as deduplicated media references.
func (u UserInput) Media() []MediaReference {
	media := []MediaReference{}
	if u.Kind != UserInputParts {
		return media
	}
	seen := make(map[string]bool)
	for _, p := range u.Parts {
		if p.Type != "image" || p.ImageURL == "" || seen[p.ImageURL] {
			continue
		}
		seen[p.ImageURL] = true
		media = append(media, MediaReference{Type: MediaImage, URL: p.ImageURL, Source: UserInputKey})
	}
	return media
}

// HasImage reports whether any image part carries a URL.
func (u UserInput) HasImage() bool {
	for _, p := range u.Parts {
		if p.Type == "image" && p.ImageURL != "" {
			return true
		}
	}
	return false
}

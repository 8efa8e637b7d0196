package internal

import (
	"testing"
)

func TestDecodeUserInput(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantKind  UserInputKind
		wantText  string
		wantMedia int
	}{
		{
			name:      "text and image parts",
			raw:       `{"user_input":"[{\"type\": \"text\", \"text\": \"测试文本\"}, {\"type\": \"image\", \"image_url\": \"http://example.com/test.jpg\"}]"}`,
			wantKind:  UserInputParts,
			wantText:  "测试文本",
			wantMedia: 1,
		},
		{
			name:     "multiple text parts joined",
			raw:      `{"user_input":"[{\"type\":\"text\",\"text\":\"Hello\"},{\"type\":\"text\",\"text\":\"world \"}]"}`,
			wantKind: UserInputParts,
			wantText: "Hello world",
		},
		{
			name:      "duplicate images deduplicated",
			raw:       `{"user_input":"[{\"type\":\"image\",\"image_url\":\"https://a/x.png\"},{\"type\":\"image\",\"image_url\":\"https://a/x.png\"}]"}`,
			wantKind:  UserInputParts,
			wantText:  "",
			wantMedia: 1,
		},
		{
			name:     "image without url ignored",
			raw:      `{"user_input":"[{\"type\":\"image\"}]"}`,
			wantKind: UserInputParts,
		},
		{
			name:     "plain text falls back",
			raw:      "just a question",
			wantKind: UserInputRaw,
			wantText: "just a question",
		},
		{
			name:     "outer json without user_input falls back",
			raw:      `{"prompt":"hi"}`,
			wantKind: UserInputRaw,
			wantText: `{"prompt":"hi"}`,
		},
		{
			name:     "bare json scalar falls back",
			raw:      `42`,
			wantKind: UserInputRaw,
			wantText: `42`,
		},
		{
			name:     "empty user_input falls back",
			raw:      `{"user_input":""}`,
			wantKind: UserInputRaw,
			wantText: `{"user_input":""}`,
		},
		{
			name:     "user_input not a string falls back",
			raw:      `{"user_input":[{"type":"text","text":"hi"}]}`,
			wantKind: UserInputRaw,
			wantText: `{"user_input":[{"type":"text","text":"hi"}]}`,
		},
		{
			name:     "inner layer malformed falls back",
			raw:      `{"user_input":"[{oops"}`,
			wantKind: UserInputRaw,
			wantText: `{"user_input":"[{oops"}`,
		},
		{
			name:     "empty input",
			raw:      "",
			wantKind: UserInputRaw,
			wantText: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecodeUserInput(tt.raw)
			if got.Kind != tt.wantKind {
				t.Errorf("DecodeUserInput() kind = %v, want %v", got.Kind, tt.wantKind)
			}
			if text := got.Text(); text != tt.wantText {
				t.Errorf("Text() = %q, want %q", text, tt.wantText)
			}
			media := got.Media()
			if media == nil {
				t.Fatal("Media() should never return nil")
			}
			if len(media) != tt.wantMedia {
				t.Errorf("Media() length = %d, want %d", len(media), tt.wantMedia)
			}
			if got.HasImage() != (tt.wantMedia > 0) {
				t.Errorf("HasImage() = %v, want %v", got.HasImage(), tt.wantMedia > 0)
			}
		})
	}
}

func TestUserInput_MediaFields(t *testing.T) {
	u := DecodeUserInput(`{"user_input":"[{\"type\":\"image\",\"image_url\":\"http://example.com/test.jpg\"}]"}`)
	media := u.Media()
	if len(media) != 1 {
		t.Fatalf("Media() length = %d, want 1", len(media))
	}
	if media[0].Type != MediaImage || media[0].URL != "http://example.com/test.jpg" || media[0].Source != UserInputKey {
		t.Errorf("Media()[0] = %+v", media[0])
	}
}

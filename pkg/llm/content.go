// Multi-modal content parts carried inside messages and stream deltas
package llm

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ContentKind identifies the concrete variant of a ContentPart
type ContentKind string

const (
	ContentKindText  ContentKind = "text"
	ContentKindImage ContentKind = "image"
)

// ImageDetail controls the level of detail requested for image inputs
type ImageDetail string

const (
	ImageDetailLow  ImageDetail = "low"
	ImageDetailHigh ImageDetail = "high"
	ImageDetailAuto ImageDetail = "auto"
)

// ImageURL references an image by URL
type ImageURL struct {
	URL    string      `json:"url"`
	Detail ImageDetail `json:"detail,omitempty"`
}

// ImageSource carries inline image bytes. Data is base64-encoded by the
// standard JSON encoding of []byte, so it round-trips losslessly through
// the durable journal.
type ImageSource struct {
	Data     []byte      `json:"data"`
	MimeType string      `json:"mime_type"`
	Detail   ImageDetail `json:"detail,omitempty"`
}

// ImageReference is either a URL reference or an inline image source.
// Exactly one of the fields is set.
type ImageReference struct {
	URL    *ImageURL    `json:"url,omitempty"`
	Inline *ImageSource `json:"inline,omitempty"`
}

// ContentPart is one ordered unit of message content: either text or an
// image reference. Exactly one of Text and Image is set; order within a
// message is significant (concatenation order).
type ContentPart struct {
	Text  *string         `json:"-"`
	Image *ImageReference `json:"-"`
}

// TextPart creates a text content part
func TextPart(text string) ContentPart {
	return ContentPart{Text: &text}
}

// ImagePart creates an image content part from a URL reference
func ImagePart(url string, detail ImageDetail) ContentPart {
	return ContentPart{Image: &ImageReference{URL: &ImageURL{URL: url, Detail: detail}}}
}

// InlineImagePart creates an image content part from inline bytes
func InlineImagePart(data []byte, mimeType string, detail ImageDetail) ContentPart {
	return ContentPart{Image: &ImageReference{Inline: &ImageSource{Data: data, MimeType: mimeType, Detail: detail}}}
}

// IsText returns true if this part carries text
func (p ContentPart) IsText() bool { return p.Text != nil }

// IsImage returns true if this part carries an image reference
func (p ContentPart) IsImage() bool { return p.Image != nil }

// Kind returns the variant of this content part
func (p ContentPart) Kind() ContentKind {
	if p.Image != nil {
		return ContentKindImage
	}
	return ContentKindText
}

// GetText returns the text of a text part, or the empty string otherwise
func (p ContentPart) GetText() string {
	if p.Text != nil {
		return *p.Text
	}
	return ""
}

// Validate checks that exactly one variant is populated
func (p ContentPart) Validate() error {
	switch {
	case p.Text != nil && p.Image != nil:
		return errors.New("content part cannot be both text and image")
	case p.Text == nil && p.Image == nil:
		return errors.New("content part must be either text or image")
	case p.Image != nil && p.Image.URL == nil && p.Image.Inline == nil:
		return errors.New("image reference must have a url or inline source")
	}
	return nil
}

// contentPartJSON is the tagged wire form of ContentPart. The explicit type
// tag keeps journal entries self-describing across replays.
type contentPartJSON struct {
	Type  ContentKind     `json:"type"`
	Text  string          `json:"text,omitempty"`
	Image *ImageReference `json:"image,omitempty"`
}

// MarshalJSON implements tagged-union JSON encoding for ContentPart
func (p ContentPart) MarshalJSON() ([]byte, error) {
	if p.Image != nil {
		return json.Marshal(contentPartJSON{Type: ContentKindImage, Image: p.Image})
	}
	return json.Marshal(contentPartJSON{Type: ContentKindText, Text: p.GetText()})
}

// UnmarshalJSON implements tagged-union JSON decoding for ContentPart
func (p *ContentPart) UnmarshalJSON(data []byte) error {
	var wire contentPartJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	switch wire.Type {
	case ContentKindText:
		p.Text = &wire.Text
		p.Image = nil
	case ContentKindImage:
		if wire.Image == nil {
			return errors.New("image content part without image reference")
		}
		p.Text = nil
		p.Image = wire.Image
	default:
		return fmt.Errorf("unknown content part type %q", wire.Type)
	}
	return nil
}

// TextFromParts concatenates all text parts in order, ignoring images
func TextFromParts(parts []ContentPart) string {
	var out string
	for _, p := range parts {
		if p.Text != nil {
			out += *p.Text
		}
	}
	return out
}

package entity

import "encoding/base64"

type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

type Message struct {
	Role    MessageRole
	Content string
	Images  []Screenshot
}

// Screenshot is an encoded image sent to a vision model.
type Screenshot struct {
	ID     string
	Data   []byte
	Format string
	Width  int
	Height int
}

// DataURL renders the image as an inline data URL.
func (s Screenshot) DataURL() string {
	format := s.Format
	if format == "" {
		format = "jpeg"
	}
	return "data:image/" + format + ";base64," + base64.StdEncoding.EncodeToString(s.Data)
}

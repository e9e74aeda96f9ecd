// Package domain contains the core data model of the messenger.
// This file defines Message and its tagged content union.
// Messages are immutable once appended to a chat.
package domain

import (
	"encoding/json"
	"fmt"
)

// Message is an immutable entry in a chat's message log.
// ID and Timestamp are assigned by the server at append time, never by the
// client, so append order and timestamp order always agree.
type Message struct {
	ID        string         `json:"id"`
	ChatID    string         `json:"chatId"`
	SenderID  string         `json:"senderId"`
	Content   MessageContent `json:"content"`
	Timestamp int64          `json:"timestamp"` // epoch millis
}

// MessageContent is the closed union of payload kinds a message can carry.
// Concrete types: TextContent, ImageContent, FileContent.
type MessageContent interface {
	json.Marshaler
	// Preview returns a short human-readable rendering for chat lists.
	Preview() string

	isContent()
}

type TextContent struct {
	Text string `json:"text"`
}

type ImageContent struct {
	URL string `json:"url"`
}

type FileContent struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
}

func (TextContent) isContent()  {}
func (ImageContent) isContent() {}
func (FileContent) isContent()  {}

func (c TextContent) Preview() string  { return c.Text }
func (c ImageContent) Preview() string { return "[image]" }
func (c FileContent) Preview() string  { return fmt.Sprintf("[file] %s", c.FileName) }

// contentEnvelope is the wire shape of every content variant.
// The "type" discriminator selects which of the remaining fields are relevant.
type contentEnvelope struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	URL      string `json:"url,omitempty"`
	FileName string `json:"fileName,omitempty"`
	FileSize int64  `json:"fileSize,omitempty"`
}

const (
	contentTypeText  = "text"
	contentTypeImage = "image"
	contentTypeFile  = "file"
)

func (c TextContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(contentEnvelope{Type: contentTypeText, Text: c.Text})
}

func (c ImageContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(contentEnvelope{Type: contentTypeImage, URL: c.URL})
}

func (c FileContent) MarshalJSON() ([]byte, error) {
	return json.Marshal(contentEnvelope{
		Type:     contentTypeFile,
		URL:      c.URL,
		FileName: c.FileName,
		FileSize: c.FileSize,
	})
}

// DecodeContent parses a tagged content payload into its concrete variant.
// Unknown or missing discriminators are rejected, keeping the union closed.
func DecodeContent(raw []byte) (MessageContent, error) {
	var env contentEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("malformed message content: %w", err)
	}
	switch env.Type {
	case contentTypeText:
		if env.Text == "" {
			return nil, fmt.Errorf("text content requires a text field")
		}
		return TextContent{Text: env.Text}, nil
	case contentTypeImage:
		if env.URL == "" {
			return nil, fmt.Errorf("image content requires a url field")
		}
		return ImageContent{URL: env.URL}, nil
	case contentTypeFile:
		if env.URL == "" || env.FileName == "" {
			return nil, fmt.Errorf("file content requires url and fileName fields")
		}
		return FileContent{URL: env.URL, FileName: env.FileName, FileSize: env.FileSize}, nil
	default:
		return nil, fmt.Errorf("unknown content type %q", env.Type)
	}
}

// UnmarshalJSON dispatches the content field through DecodeContent so that a
// Message deserializes with its concrete content variant.
func (m *Message) UnmarshalJSON(data []byte) error {
	type alias struct {
		ID        string          `json:"id"`
		ChatID    string          `json:"chatId"`
		SenderID  string          `json:"senderId"`
		Content   json.RawMessage `json:"content"`
		Timestamp int64           `json:"timestamp"`
	}
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	content, err := DecodeContent(a.Content)
	if err != nil {
		return err
	}
	*m = Message{
		ID:        a.ID,
		ChatID:    a.ChatID,
		SenderID:  a.SenderID,
		Content:   content,
		Timestamp: a.Timestamp,
	}
	return nil
}

// Package vision asks a vision model questions about captured screenshots.
package vision

import "context"

// Encoded is an image prepared for the model.
type Encoded struct {
	// DataURL is the image as a base64 data URL.
	DataURL string
}

// Answer is the model's reply to one question.
type Answer struct {
	Answer string `json:"answer"`
}

// Model is the external vision capability.
type Model interface {
	Encode(ctx context.Context, image []byte) (Encoded, error)
	Query(ctx context.Context, image Encoded, question string) (Answer, error)
}

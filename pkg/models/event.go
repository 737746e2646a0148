package models

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image/png"
	"time"
)

// FrameMessage is the JSON envelope published for remote panels.
type FrameMessage struct {
	Type       string    `json:"type"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Black      string    `json:"black"` // base64 encoded 1-bit PNG
	Red        string    `json:"red"`   // base64 encoded 1-bit PNG
	RenderedAt time.Time `json:"rendered_at"`
}

// NewFrameMessage encodes both planes of f. Invalid frames are rejected.
func NewFrameMessage(f *RenderedFrame, at time.Time) (*FrameMessage, error) {
	if err := f.Validate(); err != nil {
		return nil, fmt.Errorf("refusing to publish frame: %w", err)
	}
	black, err := encodePlane(f.Black)
	if err != nil {
		return nil, fmt.Errorf("failed to encode black plane: %w", err)
	}
	red, err := encodePlane(f.Red)
	if err != nil {
		return nil, fmt.Errorf("failed to encode red plane: %w", err)
	}
	return &FrameMessage{
		Type:       "frame",
		Width:      f.Black.Width,
		Height:     f.Black.Height,
		Black:      black,
		Red:        red,
		RenderedAt: at,
	}, nil
}

func encodePlane(p *BitPlane) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, p.Paletted()); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

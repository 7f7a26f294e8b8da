package qrcode

import (
	"errors"
	"fmt"

	qr "github.com/skip2/go-qrcode"
)

// Size is the edge length in pixels of generated images.
const Size = 256

// ErrEmpty is returned when there is nothing to encode.
var ErrEmpty = errors.New("qrcode: empty content")

// Generate creates a QR code PNG image for the given link.
func Generate(link string) ([]byte, error) {
	if link == "" {
		return nil, ErrEmpty
	}
	png, err := qr.Encode(link, qr.Medium, Size)
	if err != nil {
		return nil, fmt.Errorf("qrcode: encode: %w", err)
	}
	return png, nil
}

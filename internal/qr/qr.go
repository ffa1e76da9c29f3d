package qr

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// DefaultSize is the side of the generated PNG in pixels
const DefaultSize = 256

// Encoder renders QR payloads as PNG images
type Encoder struct {
	Size  int
	Level qrcode.RecoveryLevel
}

func NewEncoder() *Encoder {
	return &Encoder{Size: DefaultSize, Level: qrcode.Medium}
}

func (e *Encoder) Encode(payload string) ([]byte, error) {
	png, err := qrcode.Encode(payload, e.Level, e.Size)
	if err != nil {
		return nil, fmt.Errorf("qr.Encode -> %w", err)
	}
	return png, nil
}

package pairing

import (
	"errors"
	"fmt"
	"strings"

	"github.com/skip2/go-qrcode"
)

const defaultQRCodeSize = 256

// QRRenderer encodes token ids as PNG QR codes for the primary device to display.
type QRRenderer struct {
	size   int
	level  qrcode.RecoveryLevel
	prefix string
}

// NewQRRenderer builds a renderer. prefix is prepended to the id in the encoded payload,
// typically a deep link to the authenticate route. level is one of low, medium, high, highest.
func NewQRRenderer(size int, level, prefix string) (*QRRenderer, error) {
	if size <= 0 {
		size = defaultQRCodeSize
	}
	recovery, err := ParseRecoveryLevel(level)
	if err != nil {
		return nil, err
	}
	return &QRRenderer{
		size:   size,
		level:  recovery,
		prefix: strings.TrimSpace(prefix),
	}, nil
}

// ParseRecoveryLevel maps a configuration value to a QR error correction level.
// An empty value selects medium.
func ParseRecoveryLevel(level string) (qrcode.RecoveryLevel, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "low":
		return qrcode.Low, nil
	case "", "medium":
		return qrcode.Medium, nil
	case "high":
		return qrcode.High, nil
	case "highest":
		return qrcode.Highest, nil
	default:
		return 0, fmt.Errorf("pairing: unknown qr recovery level %q", level)
	}
}

// Content returns the payload encoded for id.
func (r *QRRenderer) Content(id string) string {
	return r.prefix + id
}

// Render returns a PNG QR code for id.
func (r *QRRenderer) Render(id string) ([]byte, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.New("pairing: qr id is required")
	}
	png, err := qrcode.Encode(r.Content(id), r.level, r.size)
	if err != nil {
		return nil, fmt.Errorf("pairing: encode qr: %w", err)
	}
	return png, nil
}

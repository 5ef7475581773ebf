package gateway

import (
	"encoding/base64"
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// QRPNG returns a base64-encoded PNG for the pairing payload. When the
// gateway already rendered one it is reused, otherwise the raw pairing
// code is rendered locally.
func QRPNG(qr QRCode) (string, error) {
	if qr.Base64 != "" {
		return strings.TrimPrefix(qr.Base64, "data:image/png;base64,"), nil
	}

	if qr.Code == "" {
		return "", fmt.Errorf("empty qr payload")
	}

	png, err := qrcode.Encode(qr.Code, qrcode.Medium, 256)
	if err != nil {
		return "", fmt.Errorf("render qr code: %w", err)
	}
	return base64.StdEncoding.EncodeToString(png), nil
}

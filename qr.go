package go2fa

import (
	"encoding/base64"

	qrcode "github.com/skip2/go-qrcode"
)

// qrPayload renders the provisioning URI as a PNG data URL suitable for an
// <img> tag. A zero size disables rendering.
func qrPayload(uri string, size int) (string, error) {
	if size <= 0 {
		return "", nil
	}
	png, err := qrcode.Encode(uri, qrcode.Medium, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

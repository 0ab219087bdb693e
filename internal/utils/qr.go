package utils

import qrcode "github.com/skip2/go-qrcode"

// TicketQRPNG renders a booking's QR token as a PNG image.  The token is
// an opaque identifier; the scan endpoint resolves it back to the
// booking, so the image itself carries no personal data.
func TicketQRPNG(token string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(token, qrcode.Medium, size)
}

package payment

import (
	"net/url"
	"strconv"
)

const qrService = "https://api.qrserver.com/v1/create-qr-code/"

// MoneroURI builds a wallet payment URI for address and amount in XMR.
func MoneroURI(address string, amountXMR float64) string {
	return "monero:" + address + "?tx_amount=" + strconv.FormatFloat(amountXMR, 'f', -1, 64)
}

// QRCodeURL returns an image URL encoding data as a 220x220 QR code.
func QRCodeURL(data string) string {
	return qrService + "?size=220x220&data=" + url.QueryEscape(data)
}

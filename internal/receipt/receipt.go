// Package receipt formats printable receipts and the tracking QR code
// printed on them.
package receipt

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	qrcode "github.com/skip2/go-qrcode"

	"dinepos/m/domain"
)

const (
	width  = 40
	QRSize = 256
)

type Receipt struct {
	Header      string
	Order       domain.Order
	TrackingURL string
}

func line(b *strings.Builder, left, right string) {
	pad := width - len(left) - len(right)
	if pad < 1 {
		pad = 1
	}
	b.WriteString(left)
	b.WriteString(strings.Repeat(" ", pad))
	b.WriteString(right)
	b.WriteByte('\n')
}

func amount(d decimal.Decimal) string { return d.StringFixed(2) }

// Text renders the receipt for a fixed-width printer.
func (r Receipt) Text() string {
	o := r.Order
	var b strings.Builder
	if r.Header != "" {
		b.WriteString(r.Header + "\n")
	}
	line(&b, o.OrderNumber, o.CreatedAt.Local().Format("2006-01-02 15:04"))
	line(&b, "Type", strings.ReplaceAll(string(o.OrderType), "_", " "))
	b.WriteString(strings.Repeat("-", width) + "\n")
	for _, it := range o.Items {
		line(&b, fmt.Sprintf("%dx %s", it.Quantity, it.ProductName), amount(it.LineTotal))
	}
	b.WriteString(strings.Repeat("-", width) + "\n")
	line(&b, "Subtotal", amount(o.Subtotal))
	if !o.Discount.IsZero() {
		line(&b, "Discount", "-"+amount(o.Discount))
	}
	if o.IsDelivery() {
		line(&b, "Delivery", amount(o.DeliveryCharge))
	}
	line(&b, "TOTAL", amount(o.GrandTotal))
	line(&b, "Payment", string(o.PaymentType))
	if o.PaymentType == domain.PaymentCash {
		line(&b, "Cash", amount(o.CashReceived))
		line(&b, "Change", amount(o.ChangeDue))
	}
	if o.SpecialInstructions != "" {
		b.WriteString("Note: " + o.SpecialInstructions + "\n")
	}
	if r.TrackingURL != "" {
		b.WriteString("Track your order:\n" + r.TrackingURL + "\n")
	}
	return b.String()
}

// QRCode encodes the tracking link as a PNG.
func QRCode(url string, size int) ([]byte, error) {
	if url == "" {
		return nil, domain.Invalid("no tracking link")
	}
	if size <= 0 {
		size = QRSize
	}
	return qrcode.Encode(url, qrcode.Medium, size)
}

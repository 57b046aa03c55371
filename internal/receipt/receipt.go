// Package receipt renders a PDF receipt for an order.
package receipt

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fjod/go_cart/marketplace-client/internal/domain"
	"github.com/phpdave11/gofpdf"
	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

// Customer is printed under the order details when known.
type Customer struct {
	Name  string
	Phone string
}

type Renderer struct {
	brand string
	now   func() time.Time
}

func NewRenderer(brand string) *Renderer {
	if brand == "" {
		brand = "Farmart"
	}
	return &Renderer{brand: brand, now: time.Now}
}

// Filename is the suggested download name for the receipt of order id.
func (r *Renderer) Filename(id domain.ID) string {
	return fmt.Sprintf("%s_Receipt_%s.pdf", r.brand, id)
}

// Render writes the receipt PDF for order to w. customer may be nil.
func (r *Renderer) Render(w io.Writer, order domain.Order, customer *Customer) error {
	if order.ID == "" {
		return fmt.Errorf("render receipt: order has no id")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(14, 15, 14)
	pdf.SetTitle(fmt.Sprintf("%s receipt #%s", r.brand, order.ID), true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 24)
	pdf.CellFormat(0, 12, strings.ToUpper(r.brand)+" RECEIPT", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	date := r.now()
	if order.CreatedAt != nil && !order.CreatedAt.IsZero() {
		date = order.CreatedAt.Time
	}

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Order ID: #%s", order.ID),
		fmt.Sprintf("Date: %s", date.Format("02 Jan 2006")),
		fmt.Sprintf("Payment Status: %s", order.Status),
	}
	if order.PaymentMethod != "" {
		lines = append(lines, fmt.Sprintf("Payment Method: %s", paymentLabel(order.PaymentMethod)))
	}
	if customer != nil {
		lines = append(lines,
			fmt.Sprintf("Customer: %s", customer.Name),
			fmt.Sprintf("Phone: %s", customer.Phone),
		)
	}
	if order.ShippingAddress != "" {
		lines = append(lines, fmt.Sprintf("Delivery: %s", order.ShippingAddress))
	}
	for _, line := range lines {
		pdf.CellFormat(0, 7, line, "", 1, "L", false, 0, "")
	}

	qr, err := qrcode.Encode(qrPayload(order), qrcode.Medium, 128)
	if err != nil {
		return fmt.Errorf("render receipt: qr code: %w", err)
	}
	imgOpts := gofpdf.ImageOptions{ImageType: "png"}
	pdf.RegisterImageOptionsReader("order-qr", imgOpts, bytes.NewReader(qr))
	pdf.ImageOptions("order-qr", 160, 30, 35, 35, false, imgOpts, 0, "")

	pdf.Ln(6)
	r.itemsTable(pdf, order)

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Grand Total: "+FormatKSh(order.TotalAmount), "", 1, "L", false, 0, "")

	pdf.SetY(-25)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.CellFormat(0, 10, fmt.Sprintf("Thank you for shopping with %s!", r.brand), "", 0, "C", false, 0, "")

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render receipt: %w", err)
	}
	return nil
}

var columnWidths = []float64{80, 25, 38, 39}

func (r *Renderer) itemsTable(pdf *gofpdf.Fpdf, order domain.Order) {
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(34, 197, 94)
	pdf.SetTextColor(255, 255, 255)
	for i, head := range []string{"Item", "Quantity", "Unit Price", "Total"} {
		pdf.CellFormat(columnWidths[i], 8, head, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	for n, item := range order.Items {
		fill := n%2 == 1
		pdf.SetFillColor(240, 240, 240)

		name := item.Name
		if name == "" {
			name = "Animal #" + item.AnimalID.String()
		}
		total := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))

		pdf.CellFormat(columnWidths[0], 7, name, "1", 0, "L", fill, 0, "")
		pdf.CellFormat(columnWidths[1], 7, fmt.Sprintf("%d", item.Quantity), "1", 0, "C", fill, 0, "")
		pdf.CellFormat(columnWidths[2], 7, FormatKSh(item.Price), "1", 0, "R", fill, 0, "")
		pdf.CellFormat(columnWidths[3], 7, FormatKSh(total), "1", 0, "R", fill, 0, "")
		pdf.Ln(-1)
	}
}

func qrPayload(order domain.Order) string {
	return fmt.Sprintf("order=%s&total=%s&status=%s", order.ID, order.TotalAmount.String(), order.Status)
}

func paymentLabel(m domain.PaymentMethod) string {
	switch m {
	case domain.PaymentMpesa:
		return "M-Pesa"
	case domain.PaymentCashOnDelivery:
		return "Cash on delivery"
	}
	return string(m)
}

// FormatKSh renders an amount the way shoppers read it, e.g. "KSh 41,500"
// or "KSh 1,250.50".
func FormatKSh(d decimal.Decimal) string {
	s := d.StringFixed(2)
	if d.IsInteger() {
		s = d.StringFixed(0)
	}

	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	out := b.String()
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return "KSh " + out
}

// Package invoice renders a persisted bill into a printable artifact.
// Rendering is a pure function of the bill: it never touches the store and
// its failure never affects the bill itself.
package invoice

import (
	"encoding/base64"
	"fmt"
	"strings"

	"billquick/backend/internal/domain"
)

type Artifact struct {
	BillID        string `json:"bill_id"`
	FileName      string `json:"file_name"`
	PreviewText   string `json:"preview_text"`
	ContentBase64 string `json:"content_base64"`
}

func Render(bill domain.Bill) Artifact {
	width := 72
	lines := []string{
		center("BillQuick Invoice", width),
		strings.Repeat("=", width),
		"Bill ID : " + bill.ID,
		"Date    : " + bill.CreatedAt.Format("2006-01-02 15:04"),
		"Customer: " + bill.CustomerName,
		strings.Repeat("-", width),
		fmt.Sprintf("%-38s %5s %12s %14s", "Product", "Qty", "Price", "Subtotal"),
		strings.Repeat("-", width),
	}

	for _, item := range bill.Items {
		subtotal := item.PriceCents * int64(item.Quantity)
		name := item.Name
		if len(name) > 38 {
			name = name[:35] + "..."
		}
		lines = append(lines, fmt.Sprintf("%-38s %5d %12s %14s",
			name, item.Quantity, money(item.PriceCents), money(subtotal)))
	}

	lines = append(lines,
		strings.Repeat("-", width),
		fmt.Sprintf("%58s %12s", "Grand Total", money(bill.TotalCents)),
		"",
		center("Thank you for your business!", width),
		"",
	)

	text := strings.Join(lines, "\n")
	return Artifact{
		BillID:        bill.ID,
		FileName:      fmt.Sprintf("invoice-%s.txt", bill.ID),
		PreviewText:   text,
		ContentBase64: base64.StdEncoding.EncodeToString([]byte(text)),
	}
}

func money(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	pad := (width - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}

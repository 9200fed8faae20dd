package invoice

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"billquick/backend/internal/domain"
)

func sampleBill() domain.Bill {
	return domain.Bill{
		ID:           "bill-42",
		AccountID:    "acct-1",
		CustomerName: "Meera",
		Items: []domain.BillItem{
			{ProductID: "p-1", Name: "Basmati Rice 5kg", PriceCents: 54900, Quantity: 2},
			{ProductID: "p-2", Name: "Sunflower Oil 1L", PriceCents: 16500, Quantity: 1},
		},
		TotalCents: 126300,
		CreatedAt:  time.Date(2026, time.April, 7, 18, 30, 0, 0, time.UTC),
	}
}

func TestRenderProducesCompleteArtifact(t *testing.T) {
	artifact := Render(sampleBill())

	if artifact.BillID != "bill-42" {
		t.Fatalf("expected bill id carried over, got %s", artifact.BillID)
	}
	if artifact.FileName != "invoice-bill-42.txt" {
		t.Fatalf("unexpected file name %s", artifact.FileName)
	}

	for _, want := range []string{
		"BillQuick Invoice",
		"bill-42",
		"2026-04-07 18:30",
		"Meera",
		"Basmati Rice 5kg",
		"549.00",
		"1098.00",
		"Grand Total",
		"1263.00",
	} {
		if !strings.Contains(artifact.PreviewText, want) {
			t.Fatalf("expected preview to contain %q\n%s", want, artifact.PreviewText)
		}
	}
}

func TestRenderContentMatchesPreview(t *testing.T) {
	artifact := Render(sampleBill())

	decoded, err := base64.StdEncoding.DecodeString(artifact.ContentBase64)
	if err != nil {
		t.Fatalf("decode content: %v", err)
	}
	if string(decoded) != artifact.PreviewText {
		t.Fatalf("expected encoded content to match preview text")
	}
}

func TestRenderTruncatesLongProductNames(t *testing.T) {
	bill := sampleBill()
	bill.Items = []domain.BillItem{
		{ProductID: "p-1", Name: strings.Repeat("Very Long Product Name ", 4), PriceCents: 100, Quantity: 1},
	}

	artifact := Render(bill)
	if !strings.Contains(artifact.PreviewText, "...") {
		t.Fatalf("expected long name to be truncated with ellipsis")
	}
}

func TestMoneyFormatsNegativeAmounts(t *testing.T) {
	if got := money(-2550); got != "-25.50" {
		t.Fatalf("expected -25.50, got %s", got)
	}
	if got := money(5); got != "0.05" {
		t.Fatalf("expected 0.05, got %s", got)
	}
}

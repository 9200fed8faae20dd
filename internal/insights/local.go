package insights

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"billquick/backend/internal/domain"
)

// LocalAnalyzer is a deterministic fallback used when no hosted model is
// configured. It aggregates quantities by item name and writes a short
// templated summary from the same signals the hosted prompt asks about.
type LocalAnalyzer struct{}

func (LocalAnalyzer) Analyze(_ context.Context, bills []BillRecord) (domain.Insights, error) {
	if len(bills) == 0 {
		return domain.Insights{
			SummaryReport: "No sales recorded yet. Create a few bills and check back for trends.",
		}, nil
	}

	qtyByName := make(map[string]int)
	billsByDay := make(map[string]int)
	for _, bill := range bills {
		for _, line := range bill.Items {
			qtyByName[line.Name] += line.Quantity
		}
		day := bill.CreatedAt
		if idx := strings.Index(day, ","); idx > 0 {
			day = day[:idx]
		}
		billsByDay[day]++
	}

	type itemCount struct {
		name string
		qty  int
	}
	counts := make([]itemCount, 0, len(qtyByName))
	for name, qty := range qtyByName {
		counts = append(counts, itemCount{name: name, qty: qty})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].qty == counts[j].qty {
			return counts[i].name < counts[j].name
		}
		return counts[i].qty > counts[j].qty
	})

	top := make([]string, 0, 5)
	for _, c := range counts {
		if len(top) == 5 {
			break
		}
		top = append(top, c.name)
	}

	peakDay := ""
	peakCount := 0
	for day, count := range billsByDay {
		if count > peakCount || (count == peakCount && day < peakDay) {
			peakDay = day
			peakCount = count
		}
	}

	summary := fmt.Sprintf("Across the last %d bills, %q leads sales with %d units sold.",
		len(bills), counts[0].name, counts[0].qty)
	if peakDay != "" && peakCount > 1 {
		summary += fmt.Sprintf(" %s was the busiest day with %d bills.", peakDay, peakCount)
	}
	if len(counts) > len(top) {
		summary += fmt.Sprintf(" %d other products also sold in this period.", len(counts)-len(top))
	}

	return domain.Insights{
		TopSellingItems: top,
		SummaryReport:   summary,
	}, nil
}

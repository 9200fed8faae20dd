package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"billquick/backend/internal/domain"
)

func sampleBills() []domain.Bill {
	day := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	mk := func(items []domain.BillItem, offset time.Duration) domain.Bill {
		var total int64
		for _, item := range items {
			total += item.PriceCents * int64(item.Quantity)
		}
		return domain.Bill{
			ID:           "bill-" + offset.String(),
			AccountID:    "acct-1",
			CustomerName: "Walk-in Customer",
			Items:        items,
			TotalCents:   total,
			CreatedAt:    day.Add(offset),
		}
	}
	return []domain.Bill{
		mk([]domain.BillItem{
			{ProductID: "p-1", Name: "Rice", PriceCents: 5000, Quantity: 6},
			{ProductID: "p-2", Name: "Oil", PriceCents: 3000, Quantity: 2},
		}, 0),
		mk([]domain.BillItem{
			{ProductID: "p-1", Name: "Rice", PriceCents: 5000, Quantity: 1},
			{ProductID: "p-3", Name: "Sugar", PriceCents: 1000, Quantity: 4},
		}, time.Hour),
		mk([]domain.BillItem{
			{ProductID: "p-4", Name: "Tea", PriceCents: 2000, Quantity: 3},
		}, 25*time.Hour),
	}
}

func TestLocalAnalyzerRanksByQuantity(t *testing.T) {
	engine := NewEngine(LocalAnalyzer{}, nil, time.Minute)

	result, err := engine.Generate(context.Background(), "acct-1", sampleBills())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(result.TopSellingItems) != 4 {
		t.Fatalf("expected 4 distinct items, got %v", result.TopSellingItems)
	}
	if result.TopSellingItems[0] != "Rice" {
		t.Fatalf("expected Rice first (7 units), got %s", result.TopSellingItems[0])
	}
	if !strings.Contains(result.SummaryReport, "Rice") {
		t.Fatalf("expected summary to mention the leader, got %q", result.SummaryReport)
	}
}

func TestLocalAnalyzerHandlesNoSales(t *testing.T) {
	engine := NewEngine(LocalAnalyzer{}, nil, time.Minute)

	result, err := engine.Generate(context.Background(), "acct-1", nil)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(result.TopSellingItems) != 0 {
		t.Fatalf("expected no top sellers for empty history, got %v", result.TopSellingItems)
	}
	if result.SummaryReport == "" {
		t.Fatalf("expected an explanatory summary for empty history")
	}
}

type countingAnalyzer struct {
	calls int
}

func (a *countingAnalyzer) Analyze(_ context.Context, _ []BillRecord) (domain.Insights, error) {
	a.calls++
	return domain.Insights{SummaryReport: fmt.Sprintf("run %d", a.calls)}, nil
}

type mapCache struct {
	entries map[string]*domain.Insights
}

func (c *mapCache) Get(_ context.Context, key string) (*domain.Insights, bool, error) {
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, key string, value *domain.Insights, _ time.Duration) error {
	if c.entries == nil {
		c.entries = make(map[string]*domain.Insights)
	}
	c.entries[key] = value
	return nil
}

func TestGenerateServesFromCache(t *testing.T) {
	analyzer := &countingAnalyzer{}
	engine := NewEngine(analyzer, &mapCache{}, time.Minute)

	first, err := engine.Generate(context.Background(), "acct-1", sampleBills())
	if err != nil {
		t.Fatalf("first generate: %v", err)
	}
	second, err := engine.Generate(context.Background(), "acct-1", sampleBills())
	if err != nil {
		t.Fatalf("second generate: %v", err)
	}

	if analyzer.calls != 1 {
		t.Fatalf("expected a single analyzer run, got %d", analyzer.calls)
	}
	if first.SummaryReport != second.SummaryReport {
		t.Fatalf("expected cached result, got %q then %q", first.SummaryReport, second.SummaryReport)
	}
}

func TestGenerateTrimsTopSellersToFive(t *testing.T) {
	analyzer := analyzerFunc(func(context.Context, []BillRecord) (domain.Insights, error) {
		return domain.Insights{
			TopSellingItems: []string{"a", "b", "c", "d", "e", "f", "g"},
			SummaryReport:   "long tail",
		}, nil
	})
	engine := NewEngine(analyzer, nil, time.Minute)

	result, err := engine.Generate(context.Background(), "acct-1", sampleBills())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(result.TopSellingItems) != 5 {
		t.Fatalf("expected top sellers trimmed to 5, got %d", len(result.TopSellingItems))
	}
}

type analyzerFunc func(ctx context.Context, bills []BillRecord) (domain.Insights, error)

func (f analyzerFunc) Analyze(ctx context.Context, bills []BillRecord) (domain.Insights, error) {
	return f(ctx, bills)
}

func TestGenerateWrapsAnalyzerFailure(t *testing.T) {
	analyzerErr := errors.New("model unavailable")
	engine := NewEngine(analyzerFunc(func(context.Context, []BillRecord) (domain.Insights, error) {
		return domain.Insights{}, analyzerErr
	}), nil, time.Minute)

	_, err := engine.Generate(context.Background(), "acct-1", sampleBills())
	if !errors.Is(err, analyzerErr) {
		t.Fatalf("expected wrapped analyzer error, got %v", err)
	}
}

func TestGeminiAnalyzerParsesModelOutput(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}

		inner, _ := json.Marshal(map[string]any{
			"topSellingItems": []string{"Rice", "Sugar"},
			"summaryReport":   "Rice dominates weekday sales.",
		})
		resp := map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]string{{"text": string(inner)}},
				},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	analyzer := NewGeminiAnalyzer("test-key", "").WithBaseURL(server.URL)
	engine := NewEngine(analyzer, nil, time.Minute)

	result, err := engine.Generate(context.Background(), "acct-1", sampleBills())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if gotPath != "/models/gemini-2.0-flash:generateContent" {
		t.Fatalf("unexpected request path %q", gotPath)
	}
	if len(result.TopSellingItems) != 2 || result.TopSellingItems[0] != "Rice" {
		t.Fatalf("unexpected top sellers %v", result.TopSellingItems)
	}
	if result.SummaryReport != "Rice dominates weekday sales." {
		t.Fatalf("unexpected summary %q", result.SummaryReport)
	}
}

func TestGeminiAnalyzerRejectsNonJSONOutput(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		resp := map[string]any{
			"candidates": []map[string]any{{
				"content": map[string]any{
					"parts": []map[string]string{{"text": "plain prose, not json"}},
				},
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	analyzer := NewGeminiAnalyzer("test-key", "").WithBaseURL(server.URL)

	if _, err := analyzer.Analyze(context.Background(), nil); err == nil {
		t.Fatalf("expected error for non-JSON model output")
	}
}

func TestGeminiAnalyzerSurfacesHTTPFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer server.Close()

	analyzer := NewGeminiAnalyzer("test-key", "").WithBaseURL(server.URL)

	if _, err := analyzer.Analyze(context.Background(), nil); err == nil {
		t.Fatalf("expected error for non-200 response")
	}
}

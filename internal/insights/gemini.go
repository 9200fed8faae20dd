package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"billquick/backend/internal/domain"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiAnalyzer calls the hosted Gemini generateContent endpoint. A single
// attempt per call: any transport or model failure is returned as-is for
// the engine to surface generically.
type GeminiAnalyzer struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

func NewGeminiAnalyzer(apiKey string, model string) *GeminiAnalyzer {
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiAnalyzer{
		apiKey:  apiKey,
		model:   model,
		baseURL: "https://generativelanguage.googleapis.com/v1beta",
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL overrides the API endpoint. Used by tests.
func (g *GeminiAnalyzer) WithBaseURL(base string) *GeminiAnalyzer {
	g.baseURL = strings.TrimRight(base, "/")
	return g
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig geminiGenConfig `json:"generationConfig"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiGenConfig struct {
	ResponseMIMEType string `json:"responseMimeType"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []geminiPart `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (g *GeminiAnalyzer) Analyze(ctx context.Context, bills []BillRecord) (domain.Insights, error) {
	billsJSON, err := json.Marshal(bills)
	if err != nil {
		return domain.Insights{}, err
	}

	payload, err := json.Marshal(geminiRequest{
		Contents:         []geminiContent{{Parts: []geminiPart{{Text: buildPrompt(string(billsJSON))}}}},
		GenerationConfig: geminiGenConfig{ResponseMIMEType: "application/json"},
	})
	if err != nil {
		return domain.Insights{}, err
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent?key=%s",
		g.baseURL, g.model, url.QueryEscape(g.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return domain.Insights{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return domain.Insights{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Insights{}, err
	}
	if resp.StatusCode != http.StatusOK {
		return domain.Insights{}, fmt.Errorf("model API returned status %d", resp.StatusCode)
	}

	var parsed geminiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return domain.Insights{}, err
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return domain.Insights{}, errors.New("model returned no output")
	}

	var out struct {
		TopSellingItems []string `json:"topSellingItems"`
		SummaryReport   string   `json:"summaryReport"`
	}
	if err := json.Unmarshal([]byte(parsed.Candidates[0].Content.Parts[0].Text), &out); err != nil {
		return domain.Insights{}, fmt.Errorf("model output is not valid JSON: %w", err)
	}

	return domain.Insights{
		TopSellingItems: out.TopSellingItems,
		SummaryReport:   out.SummaryReport,
	}, nil
}

func buildPrompt(billsJSON string) string {
	var b strings.Builder
	b.WriteString("You are an expert retail data analyst for a local shop. ")
	b.WriteString("Analyze the following sales data, provided as a JSON array of bills. ")
	b.WriteString("Each bill has a customer name, a list of items sold, a total amount, and a creation date.\n\n")
	b.WriteString("Sales Data:\n")
	b.WriteString(billsJSON)
	b.WriteString("\n\nIdentify the top 5 best-selling items by total quantity sold, ")
	b.WriteString("and write a concise summary report of notable trends (items bought together, peak sales days, customer behavior).\n")
	b.WriteString(`Respond with JSON only: {"topSellingItems": ["..."], "summaryReport": "..."}`)
	return b.String()
}

// Package insights asks Gemini for short natural-language takes on a user's
// finances: monthly spending insights and receipt extraction. Callers must
// treat every result as best-effort and keep a fallback.
package insights

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"fintrack/internal/core"
)

// DefaultModelName is used when no model is configured.
const DefaultModelName = "gemini-1.5-flash"

// Generator talks to the Gemini API. The API key is taken from the
// environment (GEMINI_API_KEY / GOOGLE_API_KEY) by the genai client.
type Generator struct {
	client *genai.Client
	model  string
}

func NewGenerator(ctx context.Context, model string) (*Generator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModelName
	}
	return &Generator{client: client, model: model}, nil
}

// MonthlyInsights returns exactly three short insights for the given month's
// stats. Any malformed model output is an error; the caller falls back to
// generic insights.
func (g *Generator) MonthlyInsights(ctx context.Context, stats core.MonthlyStats, monthLabel string) ([]string, error) {
	prompt := buildInsightsPrompt(stats, monthLabel)

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("generate insights: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return nil, fmt.Errorf("empty response from model")
	}

	return parseInsights(rawText)
}

func parseInsights(raw string) ([]string, error) {
	clean := cleanModelJSON(raw, "[", "]")

	var out []string
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return nil, fmt.Errorf("unmarshal insights: %w\nraw response: %s", err, raw)
	}
	if len(out) != 3 {
		return nil, fmt.Errorf("expected 3 insights, got %d", len(out))
	}
	for i, s := range out {
		if strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("insight %d is empty", i)
		}
	}
	return out, nil
}

func buildInsightsPrompt(stats core.MonthlyStats, monthLabel string) string {
	var b strings.Builder
	b.WriteString("Analyze this financial data and provide 3 concise, actionable insights.\n")
	b.WriteString("Focus on spending patterns and practical advice.\n")
	b.WriteString("Keep it friendly and conversational.\n\n")
	fmt.Fprintf(&b, "Financial Data for %s:\n", monthLabel)
	fmt.Fprintf(&b, "- Total Income: $%s\n", stats.TotalIncome.StringFixed(2))
	fmt.Fprintf(&b, "- Total Expenses: $%s\n", stats.TotalExpense.StringFixed(2))
	fmt.Fprintf(&b, "- Net Income: $%s\n", stats.Net().StringFixed(2))
	if len(stats.ByCategory) > 0 {
		b.WriteString("- Expense Categories: ")
		for i, c := range stats.ByCategory {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s: $%s", c.Category, c.Amount.StringFixed(2))
		}
		b.WriteString("\n")
	}
	b.WriteString("\nFormat the response as a JSON array of exactly 3 strings, like this:\n")
	b.WriteString("[\"insight 1\", \"insight 2\", \"insight 3\"]\n")
	b.WriteString("Return ONLY valid raw JSON. Do NOT wrap the response in code fences.\n")
	return b.String()
}

// ReceiptData is the structured result of scanning a receipt image.
type ReceiptData struct {
	Amount       string    `json:"amount"`
	Date         time.Time `json:"-"`
	Description  string    `json:"description"`
	MerchantName string    `json:"merchantName"`
	Category     string    `json:"category"`
}

type rawReceipt struct {
	Amount       json.Number `json:"amount"`
	Date         string      `json:"date"`
	Description  string      `json:"description"`
	MerchantName string      `json:"merchantName"`
	Category     string      `json:"category"`
}

const receiptPrompt = `Analyze this receipt image and extract the following information in JSON format:
- Total amount (just the number)
- Date (in ISO format)
- Description or items purchased (brief summary)
- Merchant/store name
- Suggested category (one of: housing,transportation,groceries,utilities,entertainment,food,shopping,healthcare,education,personal,travel,insurance,gifts,bills,other-expense)

Only respond with valid JSON in this exact format:
{
  "amount": number,
  "date": "ISO date string",
  "description": "string",
  "merchantName": "string",
  "category": "string"
}

If it's not a receipt, return an empty object.
Return ONLY valid raw JSON without code fences.`

// ScanReceipt extracts a draft transaction from a receipt image.
func (g *Generator) ScanReceipt(ctx context.Context, imageData []byte, mimeType string) (ReceiptData, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: receiptPrompt},
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     imageData,
					},
				},
			},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return ReceiptData{}, fmt.Errorf("generate receipt scan: %w", err)
	}

	rawText := resp.Text()
	if rawText == "" {
		return ReceiptData{}, fmt.Errorf("empty response from model")
	}

	return parseReceipt(rawText)
}

func parseReceipt(rawText string) (ReceiptData, error) {
	clean := cleanModelJSON(rawText, "{", "}")

	var raw rawReceipt
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		return ReceiptData{}, fmt.Errorf("unmarshal receipt: %w\nraw response: %s", err, rawText)
	}
	if raw.Amount == "" || raw.Date == "" {
		return ReceiptData{}, fmt.Errorf("not a receipt or missing fields")
	}

	date, err := parseReceiptDate(raw.Date)
	if err != nil {
		return ReceiptData{}, fmt.Errorf("parse receipt date %q: %w", raw.Date, err)
	}

	return ReceiptData{
		Amount:       raw.Amount.String(),
		Date:         date,
		Description:  raw.Description,
		MerchantName: raw.MerchantName,
		Category:     raw.Category,
	}, nil
}

func parseReceiptDate(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported date format")
}

package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/theb0imanuu/PharmaCheck/internal/domain/models"
)

const (
	apiURL     = "https://api.anthropic.com/v1/messages"
	apiVersion = "2023-06-01"
	model      = "claude-3-haiku-20240307"
	maxTokens  = 1024
)

// Client defines the restock advisor interface. The core hands it a
// read-only snapshot and renders whatever comes back; it never interprets
// the advice.
type Client interface {
	RestockAdvice(ctx context.Context, snap *models.Snapshot) (*Advice, error)
}

// RestockRecommendation is one per-medicine restocking suggestion.
type RestockRecommendation struct {
	Medicine        string `json:"medicine"`
	Status          string `json:"status"`
	SuggestedAction string `json:"suggested_action"`
	Reason          string `json:"reason"`
}

// ExpiryAlert flags a batch approaching its expiry date.
type ExpiryAlert struct {
	Medicine      string `json:"medicine"`
	Batch         string `json:"batch"`
	DaysRemaining int    `json:"days_remaining"`
	Advice        string `json:"advice"`
}

// Advice is the advisor's structured output.
type Advice struct {
	RestockRecommendations []RestockRecommendation `json:"restock_recommendations"`
	ExpiryAlerts           []ExpiryAlert           `json:"expiry_alerts"`
}

type anthropicClient struct {
	httpClient *resty.Client
}

// NewClient creates a configured Anthropic client.
func NewClient(apiKey string) Client {
	client := resty.New().
		SetHeader("x-api-key", apiKey).
		SetHeader("anthropic-version", apiVersion).
		SetHeader("content-type", "application/json").
		SetTimeout(15 * time.Second)

	return &anthropicClient{httpClient: client}
}

type messageRequest struct {
	Model     string    `json:"model"`
	MaxTokens int       `json:"max_tokens"`
	System    string    `json:"system"`
	Messages  []Message `json:"messages"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messageResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

const systemPrompt = `Act as an expert pharmacy inventory manager.
Analyze the provided stock levels and recent sales data to produce restocking recommendations and identify expiring stock risks.
Output ONLY a JSON object with this structure:
{
  "restock_recommendations": [
    {"medicine": "Name", "status": "Critical/Low/OK", "suggested_action": "Order X units", "reason": "..."}
  ],
  "expiry_alerts": [
    {"medicine": "Name", "batch": "BatchNo", "days_remaining": 12, "advice": "..."}
  ]
}`

// RestockAdvice submits the snapshot to the model and parses the structured
// recommendations out of the response.
func (c *anthropicClient) RestockAdvice(ctx context.Context, snap *models.Snapshot) (*Advice, error) {
	prompt := buildPrompt(snap)

	// Prefill the assistant turn with an opening brace to force raw JSON.
	reqBody := messageRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages: []Message{
			{Role: "user", Content: prompt},
			{Role: "assistant", Content: "{"},
		},
	}

	var respBody messageResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetBody(reqBody).
		SetResult(&respBody).
		Post(apiURL)

	if err != nil {
		return nil, fmt.Errorf("anthropic api call: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("anthropic api error: %s", resp.String())
	}
	if len(respBody.Content) == 0 {
		return nil, fmt.Errorf("empty response from ai")
	}

	return parseAdvice("{" + respBody.Content[0].Text)
}

func buildPrompt(snap *models.Snapshot) string {
	var sb strings.Builder

	sb.WriteString("Current Stock:\n")
	for _, b := range snap.Batches {
		fmt.Fprintf(&sb, "- %s: %d units (Expiry: %s, Batch: %s, SafetyStock: %d)\n",
			b.Name, b.Quantity, b.ExpiryDate.Format("2006-01-02"), b.BatchNumber, b.SafetyStock)
	}

	fmt.Fprintf(&sb, "\nRecent Sales (last %d days):\n", snap.WindowDays)
	for _, s := range snap.Sales {
		parts := make([]string, 0, len(s.Lines))
		for _, l := range s.Lines {
			parts = append(parts, fmt.Sprintf("%s x%d", l.Name, l.Quantity))
		}
		fmt.Fprintf(&sb, "Sale on %s: %s\n", s.OccurredAt.Format(time.RFC3339), strings.Join(parts, ", "))
	}

	return sb.String()
}

// parseAdvice decodes the model output, tolerating a markdown code fence
// around the JSON.
func parseAdvice(raw string) (*Advice, error) {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(text, "```")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	text = strings.TrimSpace(text)

	var advice Advice
	if err := json.Unmarshal([]byte(text), &advice); err != nil {
		return nil, fmt.Errorf("failed to unmarshal ai response: %w. Response was: %s", err, text)
	}
	return &advice, nil
}

package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"macrotrack/internal/model"

	"github.com/tidwall/gjson"
)

const (
	ModePhoto = "photo"
	ModeText  = "text"
)

// AnalysisRequest is one meal to estimate. Photo mode needs Image; text mode
// needs Text. In photo mode Text is optional extra context.
type AnalysisRequest struct {
	Mode     string
	Image    []byte
	MimeType string
	Text     string
}

// Analyzer estimates macros for a meal. Its output is untrusted and is
// coerced before it reaches the data model.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalysisRequest) ([]model.AnalysisItem, error)
}

type GeminiOptions struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	// HTTPClient overrides the default client; tests point it at httptest.
	HTTPClient *http.Client
}

type geminiAnalyzer struct {
	client  *http.Client
	apiKey  string
	model   string
	baseURL string
}

// NewGeminiAnalyzer creates an Analyzer backed by the Gemini generateContent API.
func NewGeminiAnalyzer(opts GeminiOptions) (Analyzer, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &geminiAnalyzer{client: client, apiKey: opts.APIKey, model: model, baseURL: baseURL}, nil
}

type geminiRequest struct {
	Contents         []geminiContent        `json:"contents"`
	GenerationConfig geminiGenerationConfig `json:"generationConfig"`
}

type geminiContent struct {
	Role  string       `json:"role"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

type geminiGenerationConfig struct {
	ResponseMimeType string         `json:"responseMimeType"`
	ResponseSchema   map[string]any `json:"responseSchema"`
}

var foodItemsSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"foodItems": map[string]any{
			"type": "ARRAY",
			"items": map[string]any{
				"type": "OBJECT",
				"properties": map[string]any{
					"name":             map[string]any{"type": "STRING"},
					"calories":         map[string]any{"type": "NUMBER"},
					"protein":          map[string]any{"type": "NUMBER"},
					"carbs":            map[string]any{"type": "NUMBER"},
					"fat":              map[string]any{"type": "NUMBER"},
					"notes":            map[string]any{"type": "STRING"},
					"confidenceRating": map[string]any{"type": "NUMBER"},
				},
				"required": []string{"name", "calories", "protein", "carbs", "fat", "notes"},
			},
		},
		"totalCalories": map[string]any{"type": "NUMBER"},
	},
}

func buildPrompt(req AnalysisRequest) string {
	if req.Mode == ModeText {
		return fmt.Sprintf("Analyze this food description: %q. Estimate nutrition. Return JSON with notes.", req.Text)
	}
	var b strings.Builder
	b.WriteString("Analyze the provided image of food. Identify all distinct food items visible. ")
	b.WriteString("Estimate the portion sizes and calculate the nutritional content (Calories, Protein, Carbs, Fat) for each item. ")
	if req.Text != "" {
		fmt.Fprintf(&b, "Additional user context: %q. ", req.Text)
	}
	b.WriteString("Be precise with nutritional estimates. Return a structured JSON response where 'notes' contains a brief description of the item and portion.")
	return b.String()
}

func (g *geminiAnalyzer) Analyze(ctx context.Context, req AnalysisRequest) ([]model.AnalysisItem, error) {
	parts := []geminiPart{}
	if req.Mode == ModePhoto {
		mime := req.MimeType
		if mime == "" {
			mime = "image/jpeg"
		}
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{MimeType: mime, Data: req.Image}})
	}
	parts = append(parts, geminiPart{Text: buildPrompt(req)})

	payload := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: geminiGenerationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   foodItemsSchema,
		},
	}
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, fmt.Errorf("failed to encode gemini request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", g.baseURL, g.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gemini response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if msg := gjson.GetBytes(body, "error.message").String(); msg != "" {
			return nil, fmt.Errorf("gemini returned HTTP %d: %s", resp.StatusCode, msg)
		}
		return nil, fmt.Errorf("gemini returned HTTP %d", resp.StatusCode)
	}

	text := gjson.GetBytes(body, "candidates.0.content.parts.0.text").String()
	if text == "" {
		return nil, fmt.Errorf("gemini response had no text")
	}
	return parseFoodItems(text)
}

// parseFoodItems reads the model's JSON answer. Numbers that are missing,
// non-numeric or negative become 0.
func parseFoodItems(text string) ([]model.AnalysisItem, error) {
	if !gjson.Valid(text) {
		return nil, fmt.Errorf("gemini answer is not valid JSON")
	}
	items := gjson.Get(text, "foodItems")
	if !items.IsArray() {
		return nil, fmt.Errorf("gemini answer has no foodItems array")
	}

	var out []model.AnalysisItem
	items.ForEach(func(_, item gjson.Result) bool {
		out = append(out, model.AnalysisItem{
			Name:  strings.TrimSpace(item.Get("name").String()),
			Notes: strings.TrimSpace(item.Get("notes").String()),
			Macros: model.Macros{
				Calories: coerceNumber(item.Get("calories")),
				Protein:  coerceNumber(item.Get("protein")),
				Carbs:    coerceNumber(item.Get("carbs")),
				Fat:      coerceNumber(item.Get("fat")),
			},
			Confidence: clampUnit(coerceNumber(item.Get("confidenceRating"))),
		})
		return true
	})
	return out, nil
}

func coerceNumber(r gjson.Result) float64 {
	switch r.Type {
	case gjson.Number:
		return model.CoerceAmount(r.Num)
	case gjson.String:
		// Float parses numeric strings and yields 0 otherwise.
		return model.CoerceAmount(r.Float())
	default:
		return 0
	}
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	return v
}

package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pocketbase/pocketbase/tools/security"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	defaultGeminiModel   = "gemini-2.0-flash-exp"

	// offlineSourceTitle marks results of the internal-knowledge fallback so
	// users can tell them apart from search-grounded market prices.
	offlineSourceTitle = "AI 內部估價資料庫 (離線模式)"

	ocrPrompt = "辨識水電材料估價清單。列出名稱、規格、數量及單位。"
)

// ErrContract indicates the service answered, but with a payload that does
// not match the agreed schema. The caller must not install a partial item
// list from such a response.
var ErrContract = errors.New("extraction response does not match the expected schema")

// GroundingSource is a citation pointing to where a price was found.
type GroundingSource struct {
	Title string
	URI   string
}

// Offline reports whether the source marks an internal-knowledge fallback
// result rather than a live market search.
func (s GroundingSource) Offline() bool {
	return s.Title == offlineSourceTitle
}

// AnalysisResult is the outcome of one extraction call: the candidate line
// items plus the citations backing their prices.
type AnalysisResult struct {
	Items   []Item
	Sources []GroundingSource
}

// APIError is a structured error from the generative AI service.
type APIError struct {
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("gemini: HTTP %d %s: %s", e.StatusCode, e.Status, e.Message)
}

// Transient reports whether the error is worth retrying: rate limiting and
// temporary unavailability. Everything else (bad request, model not found)
// is permanent and surfaces immediately.
func (e *APIError) Transient() bool {
	switch e.StatusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusServiceUnavailable:
		return true
	}
	return false
}

// GeminiClient talks to the Gemini generateContent endpoint over REST.
type GeminiClient struct {
	APIKey     string
	Model      string
	BaseURL    string
	HTTPClient *http.Client

	// MaxRetries is the number of retries after the first attempt for
	// transient failures. RetryBase is the initial backoff delay; it doubles
	// on each retry. The same policy applies to every call path.
	MaxRetries uint64
	RetryBase  time.Duration
}

// NewGeminiClient returns a client with the default model, endpoint and
// retry policy (3 attempts total, 2s base delay doubling).
func NewGeminiClient(apiKey string) *GeminiClient {
	return &GeminiClient{
		APIKey:     apiKey,
		Model:      defaultGeminiModel,
		BaseURL:    defaultGeminiBaseURL,
		HTTPClient: &http.Client{Timeout: 90 * time.Second},
		MaxRetries: 2,
		RetryBase:  2 * time.Second,
	}
}

// ── Wire types ───────────────────────────────────────────────────────────

type geminiRequest struct {
	Contents         []geminiContent   `json:"contents"`
	Tools            []geminiTool      `json:"tools,omitempty"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type geminiTool struct {
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
}

type generationConfig struct {
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		GroundingMetadata *struct {
			GroundingChunks []struct {
				Web *struct {
					Title string `json:"title"`
					URI   string `json:"uri"`
				} `json:"web"`
			} `json:"groundingChunks"`
		} `json:"groundingMetadata"`
	} `json:"candidates"`
}

type geminiErrorEnvelope struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// text returns the first candidate's concatenated text parts.
func (r *geminiResponse) text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var buf bytes.Buffer
	for _, p := range r.Candidates[0].Content.Parts {
		buf.WriteString(p.Text)
	}
	return buf.String()
}

// sources maps the first candidate's grounding chunks to citations.
func (r *geminiResponse) sources() []GroundingSource {
	if len(r.Candidates) == 0 || r.Candidates[0].GroundingMetadata == nil {
		return nil
	}
	var out []GroundingSource
	for _, chunk := range r.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk.Web == nil {
			continue
		}
		title := chunk.Web.Title
		if title == "" {
			title = "參考連結"
		}
		uri := chunk.Web.URI
		if uri == "" {
			uri = "#"
		}
		out = append(out, GroundingSource{Title: title, URI: uri})
	}
	return out
}

// ── Response schemas ─────────────────────────────────────────────────────

func stringProp() map[string]any { return map[string]any{"type": "STRING"} }
func numberProp() map[string]any { return map[string]any{"type": "NUMBER"} }

// basicItemSchema is the parse-stage contract: just what is readable off a
// handwritten list or photo.
var basicItemSchema = map[string]any{
	"type": "ARRAY",
	"items": map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"name":     stringProp(),
			"spec":     stringProp(),
			"quantity": numberProp(),
			"unit":     stringProp(),
		},
		"required": []string{"name", "spec", "quantity", "unit"},
	},
}

// fullItemSchema is the pricing-stage contract with market data filled in.
var fullItemSchema = map[string]any{
	"type": "ARRAY",
	"items": map[string]any{
		"type": "OBJECT",
		"properties": map[string]any{
			"id":          stringProp(),
			"name":        stringProp(),
			"spec":        stringProp(),
			"quantity":    numberProp(),
			"unit":        stringProp(),
			"marketPrice": numberProp(),
			"brand":       stringProp(),
			"remarks":     stringProp(),
			"supplier":    stringProp(),
			"sourceUrl":   stringProp(),
		},
		"required": []string{
			"id", "name", "spec", "quantity", "unit",
			"marketPrice", "brand", "remarks", "supplier", "sourceUrl",
		},
	},
}

func jsonConfig(schema map[string]any) *generationConfig {
	return &generationConfig{
		ResponseMimeType: "application/json",
		ResponseSchema:   schema,
	}
}

// ── Public operations ────────────────────────────────────────────────────

// AnalyzeImage extracts the material list from a JPEG photo of a handwritten
// quote or catalog, then prices it.
func (c *GeminiClient) AnalyzeImage(ctx context.Context, image []byte) (AnalysisResult, error) {
	req := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{
				{InlineData: &inlineData{
					MimeType: "image/jpeg",
					Data:     base64.StdEncoding.EncodeToString(image),
				}},
				{Text: ocrPrompt},
			},
		}},
		GenerationConfig: jsonConfig(basicItemSchema),
	}

	resp, err := c.generateWithRetry(ctx, req)
	if err != nil {
		return AnalysisResult{}, err
	}

	raw, err := decodeListedItems(resp.text())
	if err != nil {
		return AnalysisResult{}, err
	}
	return c.priceItems(ctx, raw)
}

// AnalyzeText extracts the material list from a free-text block, then
// prices it.
func (c *GeminiClient) AnalyzeText(ctx context.Context, input string) (AnalysisResult, error) {
	req := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{{Text: fmt.Sprintf("提取水電材料清單：\n%q", input)}},
		}},
		GenerationConfig: jsonConfig(basicItemSchema),
	}

	resp, err := c.generateWithRetry(ctx, req)
	if err != nil {
		return AnalysisResult{}, err
	}

	raw, err := decodeListedItems(resp.text())
	if err != nil {
		return AnalysisResult{}, err
	}
	return c.priceItems(ctx, raw)
}

// listedItem is a parse-stage item, before prices are attached.
type listedItem struct {
	Name     string  `json:"name"`
	Spec     string  `json:"spec"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// priceItems fills in market prices for the parsed list. The primary
// strategy asks for search-grounded prices with citations; when it fails
// (for any reason, including a schema mismatch), the internal-knowledge
// fallback is tried and its result marked with a single synthetic source.
func (c *GeminiClient) priceItems(ctx context.Context, raw []listedItem) (AnalysisResult, error) {
	listJSON, err := json.Marshal(raw)
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("encode item list: %w", err)
	}

	searchPrompt := fmt.Sprintf(`根據以下水電材料清單，使用 Google 搜尋目前台灣市場的最低價格、推薦廠牌、規格及供應商資訊。
清單：%s

請回傳一個 JSON 陣列，每個物件包含：id, name, spec, quantity, unit, marketPrice (數字), brand (建議廠牌), remarks (相關備註或注意事項), supplier, sourceUrl (網址)。`, listJSON)

	grounded := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{{Text: searchPrompt}},
		}},
		Tools:            []geminiTool{{GoogleSearch: &struct{}{}}},
		GenerationConfig: jsonConfig(fullItemSchema),
	}

	resp, err := c.generateWithRetry(ctx, grounded)
	if err == nil {
		var items []Item
		items, err = decodePricedItems(resp.text())
		if err == nil {
			return AnalysisResult{Items: items, Sources: resp.sources()}, nil
		}
	}
	log.Printf("gemini: search grounding failed, falling back to offline estimate: %v", err)

	offlinePrompt := fmt.Sprintf(`你是一位專業的台灣水電估價師。請根據以下清單，憑藉你的專業知識與市場經驗，估算目前台灣市場的合理價格（含稅）。

清單：%s

請直接回傳 JSON 陣列 (不要 Markdown)，格式與前面定義相同。`, listJSON)

	offline := geminiRequest{
		Contents: []geminiContent{{
			Parts: []geminiPart{{Text: offlinePrompt}},
		}},
		GenerationConfig: jsonConfig(fullItemSchema),
	}

	resp, err = c.generateWithRetry(ctx, offline)
	if err != nil {
		return AnalysisResult{}, err
	}
	items, err := decodePricedItems(resp.text())
	if err != nil {
		return AnalysisResult{}, err
	}
	return AnalysisResult{
		Items:   items,
		Sources: []GroundingSource{{Title: offlineSourceTitle, URI: "#"}},
	}, nil
}

// ── Transport ────────────────────────────────────────────────────────────

// generate performs one generateContent call without retries.
func (c *GeminiClient) generate(ctx context.Context, reqBody geminiRequest) (*geminiResponse, error) {
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.BaseURL, c.Model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call gemini: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var env geminiErrorEnvelope
		if err := json.Unmarshal(body, &env); err == nil {
			apiErr.Status = env.Error.Status
			apiErr.Message = env.Error.Message
		}
		return nil, apiErr
	}

	var out geminiResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContract, err)
	}
	if len(out.Candidates) == 0 {
		return nil, fmt.Errorf("%w: response has no candidates", ErrContract)
	}
	return &out, nil
}

// generateWithRetry retries transient service errors with exponential
// backoff. Permanent errors and contract violations return immediately.
func (c *GeminiClient) generateWithRetry(ctx context.Context, reqBody geminiRequest) (*geminiResponse, error) {
	var out *geminiResponse

	op := func() error {
		resp, err := c.generate(ctx, reqBody)
		if err != nil {
			var apiErr *APIError
			if errors.As(err, &apiErr) && apiErr.Transient() {
				log.Printf("gemini: transient failure, will retry: %v", err)
				return err
			}
			return backoff.Permanent(err)
		}
		out = resp
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.RetryBase
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0

	if err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, c.MaxRetries), ctx)); err != nil {
		return nil, err
	}
	return out, nil
}

// ── Payload decoding ─────────────────────────────────────────────────────

// extractedItem mirrors the response contract with pointer fields so missing
// keys are distinguishable from zero values.
type extractedItem struct {
	ID          *string  `json:"id"`
	Name        *string  `json:"name"`
	Spec        *string  `json:"spec"`
	Quantity    *float64 `json:"quantity"`
	Unit        *string  `json:"unit"`
	MarketPrice *float64 `json:"marketPrice"`
	Brand       *string  `json:"brand"`
	Remarks     *string  `json:"remarks"`
	Supplier    *string  `json:"supplier"`
	SourceURL   *string  `json:"sourceUrl"`
}

func (it extractedItem) require(fields ...string) error {
	missing := func(name string) error {
		return fmt.Errorf("%w: missing field %q", ErrContract, name)
	}
	for _, f := range fields {
		switch f {
		case "name":
			if it.Name == nil {
				return missing(f)
			}
		case "spec":
			if it.Spec == nil {
				return missing(f)
			}
		case "quantity":
			if it.Quantity == nil {
				return missing(f)
			}
		case "unit":
			if it.Unit == nil {
				return missing(f)
			}
		case "marketPrice":
			if it.MarketPrice == nil {
				return missing(f)
			}
		case "brand":
			if it.Brand == nil {
				return missing(f)
			}
		case "remarks":
			if it.Remarks == nil {
				return missing(f)
			}
		case "supplier":
			if it.Supplier == nil {
				return missing(f)
			}
		case "sourceUrl":
			if it.SourceURL == nil {
				return missing(f)
			}
		}
	}
	return nil
}

// decodeListedItems parses the parse-stage payload.
func decodeListedItems(text string) ([]listedItem, error) {
	var decoded []extractedItem
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContract, err)
	}

	out := make([]listedItem, 0, len(decoded))
	for i, it := range decoded {
		if err := it.require("name", "spec", "quantity", "unit"); err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}
		out = append(out, listedItem{
			Name:     *it.Name,
			Spec:     *it.Spec,
			Quantity: *it.Quantity,
			Unit:     *it.Unit,
		})
	}
	return out, nil
}

// decodePricedItems parses the pricing-stage payload into line items,
// assigning fresh ids where the service left them blank.
func decodePricedItems(text string) ([]Item, error) {
	var decoded []extractedItem
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrContract, err)
	}

	out := make([]Item, 0, len(decoded))
	for i, it := range decoded {
		err := it.require("name", "spec", "quantity", "unit",
			"marketPrice", "brand", "remarks", "supplier", "sourceUrl")
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i+1, err)
		}

		// The schema makes the model emit an id of its own; only a value
		// that is already record-id shaped is kept, anything else gets a
		// fresh one.
		id := ""
		if it.ID != nil {
			id = *it.ID
		}
		if !validItemID(id) {
			id = security.RandomStringWithAlphabet(15, itemIDAlphabet)
		}

		out = append(out, Item{
			ID:          id,
			Name:        *it.Name,
			Spec:        *it.Spec,
			Quantity:    *it.Quantity,
			Unit:        *it.Unit,
			MarketPrice: *it.MarketPrice,
			Brand:       *it.Brand,
			Remarks:     *it.Remarks,
			Supplier:    *it.Supplier,
			SourceURL:   *it.SourceURL,
		})
	}
	return out, nil
}

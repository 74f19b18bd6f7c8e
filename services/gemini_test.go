package services

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
)

// parsedCall is what the fake service sees for one generateContent call.
type parsedCall struct {
	hasSearchTool bool
	prompt        string
}

func decodeCall(t *testing.T, r *http.Request) parsedCall {
	t.Helper()

	var req geminiRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		t.Fatalf("failed to decode request body: %v", err)
	}

	call := parsedCall{hasSearchTool: len(req.Tools) > 0}
	for _, c := range req.Contents {
		for _, p := range c.Parts {
			call.prompt += p.Text
		}
	}
	return call
}

func textResponse(text string) string {
	resp := map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"parts": []map[string]any{{"text": text}},
			},
		}},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func groundedResponse(text string, sources ...GroundingSource) string {
	chunks := make([]map[string]any, 0, len(sources))
	for _, s := range sources {
		chunks = append(chunks, map[string]any{
			"web": map[string]any{"title": s.Title, "uri": s.URI},
		})
	}
	resp := map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"parts": []map[string]any{{"text": text}},
			},
			"groundingMetadata": map[string]any{
				"groundingChunks": chunks,
			},
		}},
	}
	b, _ := json.Marshal(resp)
	return string(b)
}

func apiErrorBody(code int, status, message string) string {
	return fmt.Sprintf(`{"error":{"code":%d,"message":%q,"status":%q}}`, code, message, status)
}

const parsedListJSON = `[{"name":"電線","spec":"2.0mm","quantity":3,"unit":"捲"}]`

const pricedListJSON = `[{"id":"","name":"電線","spec":"2.0mm","quantity":3,"unit":"捲",` +
	`"marketPrice":1250,"brand":"太平洋","remarks":"","supplier":"水電行","sourceUrl":"https://example.com/wire"}]`

// newTestClient points a client with fast retries at the given server.
func newTestClient(srv *httptest.Server) *GeminiClient {
	c := NewGeminiClient("test-key")
	c.BaseURL = srv.URL
	c.HTTPClient = srv.Client()
	c.RetryBase = time.Millisecond
	return c
}

func TestAnalyzeText_GroundedSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := decodeCall(t, r)
		switch {
		case call.hasSearchTool:
			fmt.Fprint(w, groundedResponse(pricedListJSON,
				GroundingSource{Title: "五金行報價", URI: "https://example.com/wire"}))
		default:
			fmt.Fprint(w, textResponse(parsedListJSON))
		}
	}))
	defer srv.Close()

	c := newTestClient(srv)
	got, err := c.AnalyzeText(context.Background(), "3捲 電線 2.0")
	if err != nil {
		t.Fatalf("AnalyzeText() error = %v", err)
	}

	if len(got.Items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got.Items))
	}
	it := got.Items[0]
	if it.Name != "電線" || it.MarketPrice != 1250 || it.Supplier != "水電行" {
		t.Errorf("unexpected item: %+v", it)
	}
	if it.ID == "" {
		t.Error("expected a fresh id for the blank server id")
	}
	if len(got.Sources) != 1 || got.Sources[0].Title != "五金行報價" {
		t.Errorf("unexpected sources: %+v", got.Sources)
	}
}

func TestAnalyzeText_RetriesTransientThenSucceeds(t *testing.T) {
	var parseCalls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := decodeCall(t, r)
		if call.hasSearchTool {
			fmt.Fprint(w, groundedResponse(pricedListJSON))
			return
		}
		parseCalls++
		if parseCalls <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, apiErrorBody(429, "RESOURCE_EXHAUSTED", "quota exceeded"))
			return
		}
		fmt.Fprint(w, textResponse(parsedListJSON))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	got, err := c.AnalyzeText(context.Background(), "3捲 電線")
	if err != nil {
		t.Fatalf("expected transparent recovery after two rate limits, got %v", err)
	}
	if parseCalls != 3 {
		t.Errorf("expected 3 parse attempts, got %d", parseCalls)
	}
	if len(got.Items) != 1 {
		t.Errorf("expected 1 item, got %d", len(got.Items))
	}
}

func TestAnalyzeText_PermanentErrorNoRetry(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, apiErrorBody(404, "NOT_FOUND", "model not found"))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	_, err := c.AnalyzeText(context.Background(), "3捲 電線")
	if err == nil {
		t.Fatal("expected an error for a missing model")
	}
	if calls != 1 {
		t.Errorf("expected exactly 1 attempt for a permanent error, got %d", calls)
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Status != "NOT_FOUND" {
		t.Errorf("unexpected APIError: %+v", apiErr)
	}
}

func TestAnalyzeText_FallsBackToOfflineEstimate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := decodeCall(t, r)
		switch {
		case call.hasSearchTool:
			// Grounded pricing is rejected outright.
			w.WriteHeader(http.StatusBadRequest)
			fmt.Fprint(w, apiErrorBody(400, "INVALID_ARGUMENT", "search tool not available"))
		case strings.Contains(call.prompt, "提取"):
			fmt.Fprint(w, textResponse(parsedListJSON))
		default:
			fmt.Fprint(w, textResponse(pricedListJSON))
		}
	}))
	defer srv.Close()

	c := newTestClient(srv)
	got, err := c.AnalyzeText(context.Background(), "3捲 電線")
	if err != nil {
		t.Fatalf("AnalyzeText() error = %v", err)
	}

	if len(got.Sources) != 1 {
		t.Fatalf("expected exactly one synthetic source, got %d", len(got.Sources))
	}
	if got.Sources[0].Title != offlineSourceTitle {
		t.Errorf("offline source title = %q, want %q", got.Sources[0].Title, offlineSourceTitle)
	}
	if got.Sources[0].URI != "#" {
		t.Errorf("offline source uri = %q, want #", got.Sources[0].URI)
	}
}

func TestAnalyzeText_SchemaMismatchTriggersFallback(t *testing.T) {
	// Grounded pricing answers 200 but omits marketPrice; the offline
	// fallback answers correctly.
	missingPrice := `[{"id":"x","name":"電線","spec":"2.0mm","quantity":3,"unit":"捲",` +
		`"brand":"太平洋","remarks":"","supplier":"水電行","sourceUrl":""}]`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := decodeCall(t, r)
		switch {
		case call.hasSearchTool:
			fmt.Fprint(w, textResponse(missingPrice))
		case strings.Contains(call.prompt, "提取"):
			fmt.Fprint(w, textResponse(parsedListJSON))
		default:
			fmt.Fprint(w, textResponse(pricedListJSON))
		}
	}))
	defer srv.Close()

	c := newTestClient(srv)
	got, err := c.AnalyzeText(context.Background(), "3捲 電線")
	if err != nil {
		t.Fatalf("AnalyzeText() error = %v", err)
	}
	if len(got.Sources) != 1 || got.Sources[0].Title != offlineSourceTitle {
		t.Errorf("expected the offline fallback to have answered, sources = %+v", got.Sources)
	}
}

func TestAnalyzeText_ContractViolationInBothModes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		call := decodeCall(t, r)
		if strings.Contains(call.prompt, "提取") {
			fmt.Fprint(w, textResponse(parsedListJSON))
			return
		}
		fmt.Fprint(w, textResponse(`[{"name":"電線"}]`))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	_, err := c.AnalyzeText(context.Background(), "3捲 電線")
	if err == nil {
		t.Fatal("expected a contract violation error")
	}
	if !errors.Is(err, ErrContract) {
		t.Errorf("expected ErrContract, got %v", err)
	}
}

func TestAnalyzeImage_SendsInlineData(t *testing.T) {
	var sawInlineData bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if len(req.Tools) > 0 {
			fmt.Fprint(w, groundedResponse(pricedListJSON))
			return
		}
		for _, c := range req.Contents {
			for _, p := range c.Parts {
				if p.InlineData != nil {
					if p.InlineData.MimeType != "image/jpeg" {
						t.Errorf("mime type = %q, want image/jpeg", p.InlineData.MimeType)
					}
					sawInlineData = true
				}
			}
		}
		fmt.Fprint(w, textResponse(parsedListJSON))
	}))
	defer srv.Close()

	c := newTestClient(srv)
	got, err := c.AnalyzeImage(context.Background(), []byte{0xFF, 0xD8, 0xFF})
	if err != nil {
		t.Fatalf("AnalyzeImage() error = %v", err)
	}
	if !sawInlineData {
		t.Error("OCR request did not carry inline image data")
	}
	if len(got.Items) != 1 {
		t.Errorf("expected 1 item, got %d", len(got.Items))
	}
}

func TestDecodePricedItems_AssignsIDs(t *testing.T) {
	items, err := decodePricedItems(pricedListJSON)
	if err != nil {
		t.Fatalf("decodePricedItems() error = %v", err)
	}
	if items[0].ID == "" {
		t.Error("blank server id was not replaced")
	}

	withID := strings.Replace(pricedListJSON, `"id":""`, `"id":"srv000000000001"`, 1)
	items, err = decodePricedItems(withID)
	if err != nil {
		t.Fatalf("decodePricedItems() error = %v", err)
	}
	if items[0].ID != "srv000000000001" {
		t.Errorf("server-assigned id not kept: %q", items[0].ID)
	}
}

func TestDecodePricedItems_RegeneratesUnusableIDs(t *testing.T) {
	// These cannot back a record id, so the decoder must mint a fresh one
	// rather than letting the save fail later.
	for _, bad := range []string{"1", "tooshort", "ABCDEFGHIJKLMNO", "0123456789abcdef"} {
		withID := strings.Replace(pricedListJSON, `"id":""`, `"id":"`+bad+`"`, 1)
		items, err := decodePricedItems(withID)
		if err != nil {
			t.Fatalf("decodePricedItems(%q) error = %v", bad, err)
		}
		if items[0].ID == bad {
			t.Errorf("unusable id %q was kept", bad)
		}
		if !validItemID(items[0].ID) {
			t.Errorf("replacement id %q is not record shaped", items[0].ID)
		}
	}
}

func TestDecodeListedItems_MissingField(t *testing.T) {
	_, err := decodeListedItems(`[{"name":"電線","quantity":3,"unit":"捲"}]`)
	if err == nil {
		t.Fatal("expected an error for a missing spec field")
	}
	if !errors.Is(err, ErrContract) {
		t.Errorf("expected ErrContract, got %v", err)
	}
}

func TestDecodeListedItems_MalformedJSON(t *testing.T) {
	_, err := decodeListedItems(`not json at all`)
	if err == nil {
		t.Fatal("expected an error for malformed JSON")
	}
	if !errors.Is(err, ErrContract) {
		t.Errorf("expected ErrContract, got %v", err)
	}
}

package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"estimator/services"
	"estimator/testhelpers"
)

func TestHandleQuoteView_FullPage(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quote := testhelpers.CreateTestQuote(t, app, "浴室翻修工程")
	quote.Set("reference_number", "EST-20260831-001")
	if err := app.Save(quote); err != nil {
		t.Fatalf("failed to set reference number: %v", err)
	}
	testhelpers.CreateTestItem(t, app, quote.Id, 1, "電線", 3, 1200)

	handler := HandleQuoteView(app)
	req := httptest.NewRequest(http.MethodGet, "/quotes/"+quote.Id, nil)
	req.SetPathValue("id", quote.Id)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	body := rec.Body.String()
	testhelpers.AssertHTMLContains(t, body,
		"<html",
		"浴室翻修工程",
		"EST-20260831-001",
		"電線",
	)
}

func TestHandleQuoteView_StagedTotals(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quote := testhelpers.CreateTestQuote(t, app, "總計測試工程")
	testhelpers.CreateTestItem(t, app, quote.Id, 1, "電線", 3, 1200)

	handler := HandleQuoteView(app)
	req := httptest.NewRequest(http.MethodGet, "/quotes/"+quote.Id, nil)
	req.SetPathValue("id", quote.Id)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	// 3600 subtotal, 360 fee at 10%, 198 tax at 5%, 4158 grand total.
	testhelpers.AssertHTMLContains(t, rec.Body.String(),
		"NT$3,600",
		"NT$360",
		"NT$198",
		"NT$4,158",
	)
}

func TestHandleQuoteView_HTMXPartial(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quote := testhelpers.CreateTestQuote(t, app, "partial 工程")

	handler := HandleQuoteView(app)
	req := httptest.NewRequest(http.MethodGet, "/quotes/"+quote.Id, nil)
	req.SetPathValue("id", quote.Id)
	req.Header.Set("HX-Request", "true")
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	body := rec.Body.String()
	if strings.Contains(body, "<html") {
		t.Error("HTMX request should render the partial, not the full page")
	}
	testhelpers.AssertHTMLContains(t, body, "partial 工程")
}

func TestHandleQuoteView_UnknownRedirectsToList(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	handler := HandleQuoteView(app)
	req := httptest.NewRequest(http.MethodGet, "/quotes/nonexistent", nil)
	req.SetPathValue("id", "nonexistent")
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusFound {
		t.Errorf("expected 302, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/quotes" {
		t.Errorf("expected redirect to /quotes, got %q", loc)
	}
}

func TestHandleQuoteView_ItemsOrderedBySortOrder(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quote := testhelpers.CreateTestQuote(t, app, "排序工程")
	testhelpers.CreateTestItem(t, app, quote.Id, 2, "第二項", 1, 100)
	testhelpers.CreateTestItem(t, app, quote.Id, 1, "第一項", 1, 100)

	handler := HandleQuoteView(app)
	req := httptest.NewRequest(http.MethodGet, "/quotes/"+quote.Id, nil)
	req.SetPathValue("id", quote.Id)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	body := rec.Body.String()
	first := strings.Index(body, "第一項")
	second := strings.Index(body, "第二項")
	if first == -1 || second == -1 {
		t.Fatal("expected both items in the rendered table")
	}
	if first > second {
		t.Error("items should render in sort_order, lowest first")
	}
}

func TestHandleQuoteView_OfflineSourceShowsNotice(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quote := testhelpers.CreateTestQuote(t, app, "離線工程")
	testhelpers.CreateTestItem(t, app, quote.Id, 1, "電線", 1, 100)
	testhelpers.CreateTestSource(t, app, quote.Id, 1, "AI 內部估價資料庫 (離線模式)", "#")

	handler := HandleQuoteView(app)
	req := httptest.NewRequest(http.MethodGet, "/quotes/"+quote.Id, nil)
	req.SetPathValue("id", quote.Id)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	testhelpers.AssertHTMLContains(t, rec.Body.String(),
		"此結果由 AI 內部知識估算")
}

func TestPersistQuoteItems_RollsBackOnBadRow(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quote := testhelpers.CreateTestQuote(t, app, "交易測試工程")
	testhelpers.CreateTestItem(t, app, quote.Id, 1, "舊項目", 1, 100)

	good := services.NewItem()
	good.Name = "新電線"
	bad := services.NewItem()
	bad.ID = "1"
	bad.Name = "壞列"

	err := persistQuoteItems(app, quote.Id, []services.Item{good, bad})
	if err == nil {
		t.Fatal("expected an error for the unusable record id")
	}

	items, err := loadQuoteItems(app, quote.Id)
	if err != nil {
		t.Fatalf("loadQuoteItems() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected the stored list untouched after a failed rewrite, got %d items", len(items))
	}
	if items[0].Name != "舊項目" {
		t.Errorf("surviving item = %q, want the original row", items[0].Name)
	}
}

func TestReplaceQuoteSources_RollsBackOnBadRow(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quote := testhelpers.CreateTestQuote(t, app, "來源交易工程")
	testhelpers.CreateTestSource(t, app, quote.Id, 1, "舊來源", "https://example.com/old")

	err := replaceQuoteSources(app, quote.Id, []services.GroundingSource{
		{Title: "新來源", URI: "https://example.com/new"},
		{URI: "https://example.com/untitled"},
	})
	if err == nil {
		t.Fatal("expected an error for the titleless source")
	}

	sources, err := loadQuoteSources(app, quote.Id)
	if err != nil {
		t.Fatalf("loadQuoteSources() error = %v", err)
	}
	if len(sources) != 1 || sources[0].Title != "舊來源" {
		t.Errorf("stored sources changed after a failed rewrite: %+v", sources)
	}
}

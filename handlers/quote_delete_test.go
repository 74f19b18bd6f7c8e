package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"estimator/testhelpers"
)

func TestHandleQuoteDelete_Success(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quote := testhelpers.CreateTestQuote(t, app, "刪除測試工程")
	item := testhelpers.CreateTestItem(t, app, quote.Id, 1, "電線", 3, 1200)
	source := testhelpers.CreateTestSource(t, app, quote.Id, 1, "水電行", "https://example.com")

	handler := HandleQuoteDelete(app)
	req := httptest.NewRequest(http.MethodDelete, "/quotes/"+quote.Id, nil)
	req.SetPathValue("id", quote.Id)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	if _, err := app.FindRecordById("quotes", quote.Id); err == nil {
		t.Error("expected quote to be deleted")
	}
	// Cascade removes children too.
	if _, err := app.FindRecordById("quote_items", item.Id); err == nil {
		t.Error("expected quote item to be deleted via cascade")
	}
	if _, err := app.FindRecordById("quote_sources", source.Id); err == nil {
		t.Error("expected quote source to be deleted via cascade")
	}

	// Response re-renders the list partial.
	testhelpers.AssertHTMLContains(t, rec.Body.String(), "quote-list")
}

func TestHandleQuoteDelete_NotFound(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	handler := HandleQuoteDelete(app)

	req := httptest.NewRequest(http.MethodDelete, "/quotes/nonexistent", nil)
	req.SetPathValue("id", "nonexistent")
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandleQuoteDelete_LeavesOtherQuotes(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	doomed := testhelpers.CreateTestQuote(t, app, "要刪除的工程")
	kept := testhelpers.CreateTestQuote(t, app, "保留的工程")
	keptItem := testhelpers.CreateTestItem(t, app, kept.Id, 1, "PVC 管", 10, 85)

	handler := HandleQuoteDelete(app)
	req := httptest.NewRequest(http.MethodDelete, "/quotes/"+doomed.Id, nil)
	req.SetPathValue("id", doomed.Id)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if _, err := app.FindRecordById("quotes", kept.Id); err != nil {
		t.Errorf("unrelated quote should survive: %v", err)
	}
	if _, err := app.FindRecordById("quote_items", keptItem.Id); err != nil {
		t.Errorf("unrelated item should survive: %v", err)
	}
	testhelpers.AssertHTMLContains(t, rec.Body.String(), "保留的工程")
}

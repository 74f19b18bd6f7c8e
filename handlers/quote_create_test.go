package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"estimator/testhelpers"
)

func TestHandleQuoteCreate_RedirectsToEditor(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	handler := HandleQuoteCreate(app)

	req := httptest.NewRequest(http.MethodPost, "/quotes", nil)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302, got %d", rec.Code)
	}

	location := rec.Header().Get("Location")
	if !strings.HasPrefix(location, "/quotes/") {
		t.Fatalf("expected redirect to /quotes/{id}, got %q", location)
	}

	quoteID := strings.TrimPrefix(location, "/quotes/")
	record, err := app.FindRecordById("quotes", quoteID)
	if err != nil {
		t.Fatalf("redirect target quote not found: %v", err)
	}
	if record.GetFloat("management_rate") != 10 {
		t.Errorf("management_rate = %v, want 10", record.GetFloat("management_rate"))
	}
	if record.GetFloat("tax_rate") != 5 {
		t.Errorf("tax_rate = %v, want 5", record.GetFloat("tax_rate"))
	}
	if record.GetString("quote_date") != time.Now().Format("2006-01-02") {
		t.Errorf("quote_date = %q, want today", record.GetString("quote_date"))
	}
}

func TestHandleQuoteCreate_AssignsReferenceNumber(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	handler := HandleQuoteCreate(app)

	prefix := "EST-" + time.Now().Format("20060102") + "-"

	for i, want := range []string{prefix + "001", prefix + "002"} {
		req := httptest.NewRequest(http.MethodPost, "/quotes", nil)
		rec := httptest.NewRecorder()
		e := newTestRequestEvent(app, req, rec)

		if err := handler(e); err != nil {
			t.Fatalf("handler error on create %d: %v", i+1, err)
		}

		quoteID := strings.TrimPrefix(rec.Header().Get("Location"), "/quotes/")
		record, err := app.FindRecordById("quotes", quoteID)
		if err != nil {
			t.Fatalf("quote %d not found: %v", i+1, err)
		}
		if got := record.GetString("reference_number"); got != want {
			t.Errorf("reference_number = %q, want %q", got, want)
		}
	}
}

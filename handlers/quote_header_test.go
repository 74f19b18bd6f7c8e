package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"estimator/testhelpers"
)

func postForm(t *testing.T, target string, form url.Values) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestHandleQuoteHeaderSave_UpdatesFields(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quote := testhelpers.CreateTestQuote(t, app, "原工程名稱")

	handler := HandleQuoteHeaderSave(app)
	form := url.Values{}
	form.Set("project_name", "新工程名稱")
	form.Set("vendor_name", "大同水電行")
	form.Set("client_tax_id", "12345678")
	req := postForm(t, "/quotes/"+quote.Id+"/header", form)
	req.SetPathValue("id", quote.Id)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	updated, _ := app.FindRecordById("quotes", quote.Id)
	if updated.GetString("project_name") != "新工程名稱" {
		t.Errorf("project_name = %q", updated.GetString("project_name"))
	}
	if updated.GetString("vendor_name") != "大同水電行" {
		t.Errorf("vendor_name = %q", updated.GetString("vendor_name"))
	}
	if updated.GetString("client_tax_id") != "12345678" {
		t.Errorf("client_tax_id = %q", updated.GetString("client_tax_id"))
	}
}

func TestHandleQuoteHeaderSave_PartialSaveLeavesOtherFields(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quote := testhelpers.CreateTestQuote(t, app, "既有名稱")
	quote.Set("vendor_name", "既有廠商")
	if err := app.Save(quote); err != nil {
		t.Fatalf("failed to prime quote: %v", err)
	}

	handler := HandleQuoteHeaderSave(app)
	form := url.Values{}
	form.Set("client_contact", "陳先生")
	req := postForm(t, "/quotes/"+quote.Id+"/header", form)
	req.SetPathValue("id", quote.Id)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	updated, _ := app.FindRecordById("quotes", quote.Id)
	if updated.GetString("project_name") != "既有名稱" {
		t.Errorf("project_name should be untouched, got %q", updated.GetString("project_name"))
	}
	if updated.GetString("vendor_name") != "既有廠商" {
		t.Errorf("vendor_name should be untouched, got %q", updated.GetString("vendor_name"))
	}
	if updated.GetString("client_contact") != "陳先生" {
		t.Errorf("client_contact = %q", updated.GetString("client_contact"))
	}
}

func TestHandleQuoteHeaderSave_TrimsWhitespace(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quote := testhelpers.CreateTestQuote(t, app, "")

	handler := HandleQuoteHeaderSave(app)
	form := url.Values{}
	form.Set("vendor_phone", "  0912-345-678  ")
	req := postForm(t, "/quotes/"+quote.Id+"/header", form)
	req.SetPathValue("id", quote.Id)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	updated, _ := app.FindRecordById("quotes", quote.Id)
	if updated.GetString("vendor_phone") != "0912-345-678" {
		t.Errorf("vendor_phone = %q, want trimmed", updated.GetString("vendor_phone"))
	}
}

func TestHandleQuoteHeaderSave_NotFound(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	handler := HandleQuoteHeaderSave(app)
	form := url.Values{}
	form.Set("project_name", "任何")
	req := postForm(t, "/quotes/nonexistent/header", form)
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

func TestHandleQuoteRates_UpdatesAndRecalculates(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quote := testhelpers.CreateTestQuote(t, app, "費率工程")
	testhelpers.CreateTestItem(t, app, quote.Id, 1, "電線", 3, 1200)

	handler := HandleQuoteRates(app)
	form := url.Values{}
	form.Set("management_rate", "20")
	req := postForm(t, "/quotes/"+quote.Id+"/rates", form)
	req.SetPathValue("id", quote.Id)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	updated, _ := app.FindRecordById("quotes", quote.Id)
	if updated.GetFloat("management_rate") != 20 {
		t.Errorf("management_rate = %v, want 20", updated.GetFloat("management_rate"))
	}
	if updated.GetFloat("tax_rate") != 5 {
		t.Errorf("tax_rate should be untouched, got %v", updated.GetFloat("tax_rate"))
	}

	// 3600 + 720 fee at 20%, then 216 tax at 5% = 4536.
	testhelpers.AssertHTMLContains(t, rec.Body.String(), "NT$720", "NT$4,536")
}

func TestHandleQuoteRates_InvalidCoercesToZero(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quote := testhelpers.CreateTestQuote(t, app, "費率工程")

	handler := HandleQuoteRates(app)
	form := url.Values{}
	form.Set("tax_rate", "abc")
	req := postForm(t, "/quotes/"+quote.Id+"/rates", form)
	req.SetPathValue("id", quote.Id)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	updated, _ := app.FindRecordById("quotes", quote.Id)
	if updated.GetFloat("tax_rate") != 0 {
		t.Errorf("tax_rate = %v, want 0", updated.GetFloat("tax_rate"))
	}
}

package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"estimator/testhelpers"
)

func TestHandleItemAdd_AppendsBlankRow(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quote := testhelpers.CreateTestQuote(t, app, "新增品項工程")
	testhelpers.CreateTestItem(t, app, quote.Id, 1, "電線", 3, 1200)

	handler := HandleItemAdd(app)
	req := httptest.NewRequest(http.MethodPost, "/quotes/"+quote.Id+"/items", nil)
	req.SetPathValue("id", quote.Id)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	items, err := loadQuoteItems(app, quote.Id)
	if err != nil {
		t.Fatalf("loadQuoteItems: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	added := items[1]
	if added.Name != "新項目" {
		t.Errorf("new item name = %q, want 新項目", added.Name)
	}
	if added.Quantity != 1 || added.Unit != "式" {
		t.Errorf("new item defaults = qty %v unit %q", added.Quantity, added.Unit)
	}

	testhelpers.AssertHTMLContains(t, rec.Body.String(), "新項目")
}

func TestHandleItemAdd_QuoteNotFound(t *testing.T) {
	app := testhelpers.NewTestApp(t)

	handler := HandleItemAdd(app)
	req := httptest.NewRequest(http.MethodPost, "/quotes/nonexistent/items", nil)
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

func TestHandleItemPatch_Name(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quote := testhelpers.CreateTestQuote(t, app, "編輯工程")
	item := testhelpers.CreateTestItem(t, app, quote.Id, 1, "舊名稱", 3, 1200)

	handler := HandleItemPatch(app)
	form := url.Values{}
	form.Set("name", "新名稱")
	req := postForm(t, "/quotes/"+quote.Id+"/items/"+item.Id, form)
	req.Method = http.MethodPatch
	req.SetPathValue("id", quote.Id)
	req.SetPathValue("itemId", item.Id)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	updated, _ := app.FindRecordById("quote_items", item.Id)
	if updated.GetString("name") != "新名稱" {
		t.Errorf("name = %q, want 新名稱", updated.GetString("name"))
	}
}

func TestHandleItemPatch_QuantityRecalculatesTotals(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quote := testhelpers.CreateTestQuote(t, app, "數量工程")
	item := testhelpers.CreateTestItem(t, app, quote.Id, 1, "電線", 3, 1200)

	handler := HandleItemPatch(app)
	form := url.Values{}
	form.Set("quantity", "5")
	req := postForm(t, "/quotes/"+quote.Id+"/items/"+item.Id, form)
	req.Method = http.MethodPatch
	req.SetPathValue("id", quote.Id)
	req.SetPathValue("itemId", item.Id)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	updated, _ := app.FindRecordById("quote_items", item.Id)
	if updated.GetFloat("quantity") != 5 {
		t.Errorf("quantity = %v, want 5", updated.GetFloat("quantity"))
	}

	// 5 × 1200 = 6000 subtotal; fee 600, tax 330, grand 6930.
	testhelpers.AssertHTMLContains(t, rec.Body.String(), "NT$6,000", "NT$6,930")
}

func TestHandleItemPatch_InvalidNumberCoercesToZero(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quote := testhelpers.CreateTestQuote(t, app, "數字工程")
	item := testhelpers.CreateTestItem(t, app, quote.Id, 1, "電線", 3, 1200)

	handler := HandleItemPatch(app)
	form := url.Values{}
	form.Set("market_price", "abc")
	req := postForm(t, "/quotes/"+quote.Id+"/items/"+item.Id, form)
	req.Method = http.MethodPatch
	req.SetPathValue("id", quote.Id)
	req.SetPathValue("itemId", item.Id)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	updated, _ := app.FindRecordById("quote_items", item.Id)
	if updated.GetFloat("market_price") != 0 {
		t.Errorf("market_price = %v, want 0", updated.GetFloat("market_price"))
	}
}

func TestHandleItemPatch_StaleIDIsNoOp(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quote := testhelpers.CreateTestQuote(t, app, "過期工程")
	item := testhelpers.CreateTestItem(t, app, quote.Id, 1, "電線", 3, 1200)

	handler := HandleItemPatch(app)
	form := url.Values{}
	form.Set("name", "不應套用")
	req := postForm(t, "/quotes/"+quote.Id+"/items/missing000000id", form)
	req.Method = http.MethodPatch
	req.SetPathValue("id", quote.Id)
	req.SetPathValue("itemId", "missing000000id")
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	unchanged, _ := app.FindRecordById("quote_items", item.Id)
	if unchanged.GetString("name") != "電線" {
		t.Errorf("stale-id patch changed an item: %q", unchanged.GetString("name"))
	}
}

func TestHandleItemDelete_RemovesRow(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quote := testhelpers.CreateTestQuote(t, app, "刪除品項工程")
	first := testhelpers.CreateTestItem(t, app, quote.Id, 1, "電線", 3, 1200)
	second := testhelpers.CreateTestItem(t, app, quote.Id, 2, "插座", 5, 55)

	handler := HandleItemDelete(app)
	req := httptest.NewRequest(http.MethodDelete, "/quotes/"+quote.Id+"/items/"+first.Id, nil)
	req.SetPathValue("id", quote.Id)
	req.SetPathValue("itemId", first.Id)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	if _, err := app.FindRecordById("quote_items", first.Id); err == nil {
		t.Error("expected deleted item to be gone")
	}

	// Survivor is renumbered to position 1.
	survivor, err := app.FindRecordById("quote_items", second.Id)
	if err != nil {
		t.Fatalf("surviving item missing: %v", err)
	}
	if survivor.GetInt("sort_order") != 1 {
		t.Errorf("sort_order = %d, want 1", survivor.GetInt("sort_order"))
	}
}

func TestHandleItemMove_DownSwapsOrder(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quote := testhelpers.CreateTestQuote(t, app, "移動工程")
	first := testhelpers.CreateTestItem(t, app, quote.Id, 1, "電線", 3, 1200)
	second := testhelpers.CreateTestItem(t, app, quote.Id, 2, "插座", 5, 55)

	handler := HandleItemMove(app)
	form := url.Values{}
	form.Set("direction", "down")
	req := postForm(t, "/quotes/"+quote.Id+"/items/"+first.Id+"/move", form)
	req.SetPathValue("id", quote.Id)
	req.SetPathValue("itemId", first.Id)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	movedDown, _ := app.FindRecordById("quote_items", first.Id)
	movedUp, _ := app.FindRecordById("quote_items", second.Id)
	if movedDown.GetInt("sort_order") != 2 {
		t.Errorf("moved item sort_order = %d, want 2", movedDown.GetInt("sort_order"))
	}
	if movedUp.GetInt("sort_order") != 1 {
		t.Errorf("displaced item sort_order = %d, want 1", movedUp.GetInt("sort_order"))
	}
}

func TestHandleItemMove_FirstUpIsNoOp(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quote := testhelpers.CreateTestQuote(t, app, "邊界工程")
	first := testhelpers.CreateTestItem(t, app, quote.Id, 1, "電線", 3, 1200)
	testhelpers.CreateTestItem(t, app, quote.Id, 2, "插座", 5, 55)

	handler := HandleItemMove(app)
	form := url.Values{}
	form.Set("direction", "up")
	req := postForm(t, "/quotes/"+quote.Id+"/items/"+first.Id+"/move", form)
	req.SetPathValue("id", quote.Id)
	req.SetPathValue("itemId", first.Id)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	unchanged, _ := app.FindRecordById("quote_items", first.Id)
	if unchanged.GetInt("sort_order") != 1 {
		t.Errorf("boundary move changed sort_order to %d", unchanged.GetInt("sort_order"))
	}
}

func TestHandleItemMove_InvalidDirection(t *testing.T) {
	app := testhelpers.NewTestApp(t)
	quote := testhelpers.CreateTestQuote(t, app, "方向工程")
	item := testhelpers.CreateTestItem(t, app, quote.Id, 1, "電線", 3, 1200)

	handler := HandleItemMove(app)
	form := url.Values{}
	form.Set("direction", "sideways")
	req := postForm(t, "/quotes/"+quote.Id+"/items/"+item.Id+"/move", form)
	req.SetPathValue("id", quote.Id)
	req.SetPathValue("itemId", item.Id)
	rec := httptest.NewRecorder()
	e := newTestRequestEvent(app, req, rec)

	if err := handler(e); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

package handlers

import (
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
)

// headerFields lists the quote header form inputs and their record columns.
var headerFields = []string{
	"project_name",
	"vendor_name",
	"vendor_contact",
	"vendor_phone",
	"client_contact",
	"client_phone",
	"client_tax_id",
}

// HandleQuoteHeaderSave persists the editable header fields. Only the fields
// present in the form are touched, so partial saves from individual inputs
// work too.
func HandleQuoteHeaderSave(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		quoteID := e.Request.PathValue("id")
		if quoteID == "" {
			return ErrorToast(e, http.StatusBadRequest, "缺少估價單編號")
		}

		record, err := app.FindRecordById("quotes", quoteID)
		if err != nil {
			return ErrorToast(e, http.StatusNotFound, "找不到估價單")
		}

		if err := e.Request.ParseForm(); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "表單資料無效")
		}

		updated := false
		for _, field := range headerFields {
			if values, ok := e.Request.Form[field]; ok && len(values) > 0 {
				record.Set(field, strings.TrimSpace(values[0]))
				updated = true
			}
		}

		if updated {
			if err := app.Save(record); err != nil {
				log.Printf("quote_header: error saving %s: %v", quoteID, err)
				return ErrorToast(e, http.StatusInternalServerError, "發生錯誤，請重試。")
			}
		}

		SetToast(e, "info", "已儲存")
		return e.NoContent(http.StatusOK)
	}
}

// HandleQuoteRates persists the management/tax rate selects and re-renders
// the item table so the staged totals refresh.
func HandleQuoteRates(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		quoteID := e.Request.PathValue("id")
		if quoteID == "" {
			return ErrorToast(e, http.StatusBadRequest, "缺少估價單編號")
		}

		record, err := app.FindRecordById("quotes", quoteID)
		if err != nil {
			return ErrorToast(e, http.StatusNotFound, "找不到估價單")
		}

		if err := e.Request.ParseForm(); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "表單資料無效")
		}

		updated := false
		for _, field := range []string{"management_rate", "tax_rate"} {
			if values, ok := e.Request.Form[field]; ok && len(values) > 0 {
				// Unparseable input coerces to zero, mirroring the inline
				// numeric fields.
				f, err := strconv.ParseFloat(values[0], 64)
				if err != nil {
					f = 0
				}
				record.Set(field, f)
				updated = true
			}
		}

		if updated {
			if err := app.Save(record); err != nil {
				log.Printf("quote_rates: error saving %s: %v", quoteID, err)
				return ErrorToast(e, http.StatusInternalServerError, "發生錯誤，請重試。")
			}
		}

		return renderItemTable(e, app, quoteID)
	}
}

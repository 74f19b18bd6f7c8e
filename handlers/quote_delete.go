package handlers

import (
	"log"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimator/templates"
)

// HandleQuoteDelete deletes a quote (cascade removes its items and sources)
// and re-renders the quote list.
func HandleQuoteDelete(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		quoteID := e.Request.PathValue("id")
		if quoteID == "" {
			return ErrorToast(e, http.StatusBadRequest, "缺少估價單編號")
		}

		record, err := app.FindRecordById("quotes", quoteID)
		if err != nil {
			log.Printf("quote_delete: not found %s: %v", quoteID, err)
			return ErrorToast(e, http.StatusNotFound, "找不到估價單")
		}

		if err := app.Delete(record); err != nil {
			log.Printf("quote_delete: error deleting %s: %v", quoteID, err)
			return ErrorToast(e, http.StatusInternalServerError, "發生錯誤，請重試。")
		}

		SetToast(e, "success", "估價單已刪除")

		data, err := buildQuoteListData(app)
		if err != nil {
			log.Printf("quote_delete: %v", err)
			return ErrorToast(e, http.StatusInternalServerError, "發生錯誤，請重試。")
		}
		return templates.QuoteListContent(data).Render(e.Request.Context(), e.Response)
	}
}

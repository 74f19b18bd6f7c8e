package handlers

import (
	"log"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimator/services"
)

// HandleQuoteCreate returns a handler that creates a blank quote with default
// rates and a fresh reference number, then redirects to its editor page.
func HandleQuoteCreate(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		quotesCol, err := app.FindCollectionByNameOrId("quotes")
		if err != nil {
			log.Printf("quote_create: could not find quotes collection: %v", err)
			return e.String(http.StatusInternalServerError, "Internal error")
		}

		now := time.Now()
		ref, err := services.GenerateQuoteNumber(app, now)
		if err != nil {
			log.Printf("quote_create: could not generate reference number: %v", err)
			ref = ""
		}

		record := core.NewRecord(quotesCol)
		record.Set("reference_number", ref)
		record.Set("quote_date", now.Format("2006-01-02"))
		record.Set("management_rate", 10)
		record.Set("tax_rate", 5)

		if err := app.Save(record); err != nil {
			log.Printf("quote_create: could not save quote: %v", err)
			return e.String(http.StatusInternalServerError, "Internal error")
		}

		return e.Redirect(http.StatusFound, "/quotes/"+record.Id)
	}
}

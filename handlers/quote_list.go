package handlers

import (
	"log"

	"github.com/a-h/templ"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimator/services"
	"estimator/templates"
)

// HandleQuoteList returns a handler that renders the quote list page.
func HandleQuoteList(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		data, err := buildQuoteListData(app)
		if err != nil {
			log.Printf("quote_list: %v", err)
			return e.String(500, "Internal error")
		}

		var component templ.Component
		if e.Request.Header.Get("HX-Request") == "true" {
			component = templates.QuoteListContent(data)
		} else {
			component = templates.QuoteListPage(data)
		}
		return component.Render(e.Request.Context(), e.Response)
	}
}

func buildQuoteListData(app *pocketbase.PocketBase) (templates.QuoteListData, error) {
	quotesCol, err := app.FindCollectionByNameOrId("quotes")
	if err != nil {
		return templates.QuoteListData{}, err
	}

	records, err := app.FindRecordsByFilter(quotesCol, "id != ''", "-created", 0, 0, nil)
	if err != nil {
		return templates.QuoteListData{}, err
	}

	var rows []templates.QuoteListItem
	for _, rec := range records {
		items, err := loadQuoteItems(app, rec.Id)
		if err != nil {
			log.Printf("quote_list: items for %s: %v", rec.Id, err)
			items = nil
		}
		totals := services.CalcQuoteTotals(items, rec.GetFloat("management_rate"), rec.GetFloat("tax_rate"))

		name := rec.GetString("project_name")
		if name == "" {
			name = "（未命名工程）"
		}

		rows = append(rows, templates.QuoteListItem{
			ID:              rec.Id,
			ProjectName:     name,
			ReferenceNumber: rec.GetString("reference_number"),
			QuoteDate:       rec.GetString("quote_date"),
			ItemCount:       len(items),
			GrandTotal:      services.FormatNTD(totals.GrandTotal),
		})
	}

	return templates.QuoteListData{
		Items:       rows,
		TotalQuotes: len(records),
	}, nil
}

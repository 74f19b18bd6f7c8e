package handlers

import (
	"fmt"
	"log"
	"net/http"

	"github.com/a-h/templ"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimator/services"
	"estimator/templates"
)

// HandleQuoteView returns a handler that renders the quote editor page.
func HandleQuoteView(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		quoteID := e.Request.PathValue("id")
		if quoteID == "" {
			return e.Redirect(http.StatusFound, "/quotes")
		}

		data, err := buildQuoteViewData(app, quoteID)
		if err != nil {
			log.Printf("quote_view: %v", err)
			return e.Redirect(http.StatusFound, "/quotes")
		}

		var component templ.Component
		if e.Request.Header.Get("HX-Request") == "true" {
			component = templates.QuoteContent(data)
		} else {
			component = templates.QuotePage(data)
		}
		return component.Render(e.Request.Context(), e.Response)
	}
}

// loadQuoteItems reads a quote's item records ordered by sort_order into the
// pure editor representation.
func loadQuoteItems(app *pocketbase.PocketBase, quoteID string) ([]services.Item, error) {
	records, err := app.FindRecordsByFilter(
		"quote_items",
		"quote = {:quoteId}",
		"sort_order",
		0, 0,
		map[string]any{"quoteId": quoteID},
	)
	if err != nil {
		return nil, fmt.Errorf("query items for quote %s: %w", quoteID, err)
	}

	items := make([]services.Item, 0, len(records))
	for _, rec := range records {
		items = append(items, services.Item{
			ID:          rec.Id,
			Name:        rec.GetString("name"),
			Spec:        rec.GetString("spec"),
			Quantity:    rec.GetFloat("quantity"),
			Unit:        rec.GetString("unit"),
			MarketPrice: rec.GetFloat("market_price"),
			Brand:       rec.GetString("brand"),
			Remarks:     rec.GetString("remarks"),
			Supplier:    rec.GetString("supplier"),
			SourceURL:   rec.GetString("source_url"),
		})
	}
	return items, nil
}

// persistQuoteItems writes the item slice back to quote_items: records
// missing from the slice are deleted, slice positions become sort_order, and
// items without a backing record are inserted under their own id. The whole
// rewrite runs in one transaction so a mid-list failure leaves the stored
// list untouched.
func persistQuoteItems(app *pocketbase.PocketBase, quoteID string, items []services.Item) error {
	return app.RunInTransaction(func(txApp core.App) error {
		itemsCol, err := txApp.FindCollectionByNameOrId("quote_items")
		if err != nil {
			return fmt.Errorf("quote_items collection: %w", err)
		}

		existing, err := txApp.FindRecordsByFilter(
			itemsCol,
			"quote = {:quoteId}",
			"sort_order",
			0, 0,
			map[string]any{"quoteId": quoteID},
		)
		if err != nil {
			return fmt.Errorf("query items for quote %s: %w", quoteID, err)
		}

		byID := make(map[string]*core.Record, len(existing))
		for _, rec := range existing {
			byID[rec.Id] = rec
		}

		keep := make(map[string]bool, len(items))
		for i, it := range items {
			keep[it.ID] = true

			rec, ok := byID[it.ID]
			if !ok {
				rec = core.NewRecord(itemsCol)
				rec.Id = it.ID
				rec.Set("quote", quoteID)
			}
			rec.Set("sort_order", i+1)
			rec.Set("name", it.Name)
			rec.Set("spec", it.Spec)
			rec.Set("quantity", it.Quantity)
			rec.Set("unit", it.Unit)
			rec.Set("market_price", it.MarketPrice)
			rec.Set("brand", it.Brand)
			rec.Set("remarks", it.Remarks)
			rec.Set("supplier", it.Supplier)
			rec.Set("source_url", it.SourceURL)
			if err := txApp.Save(rec); err != nil {
				return fmt.Errorf("save item %s: %w", it.ID, err)
			}
		}

		for _, rec := range existing {
			if !keep[rec.Id] {
				if err := txApp.Delete(rec); err != nil {
					return fmt.Errorf("delete item %s: %w", rec.Id, err)
				}
			}
		}
		return nil
	})
}

// replaceQuoteSources swaps the quote's citation list wholesale, atomically.
func replaceQuoteSources(app *pocketbase.PocketBase, quoteID string, sources []services.GroundingSource) error {
	return app.RunInTransaction(func(txApp core.App) error {
		sourcesCol, err := txApp.FindCollectionByNameOrId("quote_sources")
		if err != nil {
			return fmt.Errorf("quote_sources collection: %w", err)
		}

		existing, err := txApp.FindRecordsByFilter(
			sourcesCol,
			"quote = {:quoteId}",
			"",
			0, 0,
			map[string]any{"quoteId": quoteID},
		)
		if err != nil {
			return fmt.Errorf("query sources for quote %s: %w", quoteID, err)
		}
		for _, rec := range existing {
			if err := txApp.Delete(rec); err != nil {
				return fmt.Errorf("delete source %s: %w", rec.Id, err)
			}
		}

		for i, s := range sources {
			rec := core.NewRecord(sourcesCol)
			rec.Set("quote", quoteID)
			rec.Set("sort_order", i+1)
			rec.Set("title", s.Title)
			rec.Set("uri", s.URI)
			if err := txApp.Save(rec); err != nil {
				return fmt.Errorf("save source %q: %w", s.Title, err)
			}
		}
		return nil
	})
}

// loadQuoteSources reads a quote's citations ordered by sort_order.
func loadQuoteSources(app *pocketbase.PocketBase, quoteID string) ([]services.GroundingSource, error) {
	records, err := app.FindRecordsByFilter(
		"quote_sources",
		"quote = {:quoteId}",
		"sort_order",
		0, 0,
		map[string]any{"quoteId": quoteID},
	)
	if err != nil {
		return nil, fmt.Errorf("query sources for quote %s: %w", quoteID, err)
	}

	sources := make([]services.GroundingSource, 0, len(records))
	for _, rec := range records {
		sources = append(sources, services.GroundingSource{
			Title: rec.GetString("title"),
			URI:   rec.GetString("uri"),
		})
	}
	return sources, nil
}

// buildQuoteViewData assembles everything the editor page needs, with totals
// recomputed from the current item list.
func buildQuoteViewData(app *pocketbase.PocketBase, quoteID string) (templates.QuoteViewData, error) {
	quote, err := app.FindRecordById("quotes", quoteID)
	if err != nil {
		return templates.QuoteViewData{}, fmt.Errorf("quote not found: %w", err)
	}

	items, err := loadQuoteItems(app, quoteID)
	if err != nil {
		return templates.QuoteViewData{}, err
	}
	sources, err := loadQuoteSources(app, quoteID)
	if err != nil {
		return templates.QuoteViewData{}, err
	}

	managementRate := quote.GetFloat("management_rate")
	taxRate := quote.GetFloat("tax_rate")
	totals := services.CalcQuoteTotals(items, managementRate, taxRate)

	views := make([]templates.ItemView, 0, len(items))
	for i, it := range items {
		views = append(views, templates.ItemView{
			ID:          it.ID,
			Name:        it.Name,
			Spec:        it.Spec,
			Quantity:    it.Quantity,
			Unit:        it.Unit,
			MarketPrice: it.MarketPrice,
			LineTotal:   services.FormatNTD(it.LineTotal()),
			Brand:       it.Brand,
			Remarks:     it.Remarks,
			Supplier:    it.Supplier,
			SourceURL:   it.SourceURL,
			First:       i == 0,
			Last:        i == len(items)-1,
		})
	}

	sourceViews := make([]templates.SourceView, 0, len(sources))
	offline := false
	for _, s := range sources {
		if s.Offline() {
			offline = true
		}
		sourceViews = append(sourceViews, templates.SourceView{Title: s.Title, URI: s.URI})
	}

	return templates.QuoteViewData{
		ID:              quote.Id,
		ReferenceNumber: quote.GetString("reference_number"),
		QuoteDate:       quote.GetString("quote_date"),
		Header: templates.HeaderFields{
			ProjectName:   quote.GetString("project_name"),
			VendorName:    quote.GetString("vendor_name"),
			VendorContact: quote.GetString("vendor_contact"),
			VendorPhone:   quote.GetString("vendor_phone"),
			ClientContact: quote.GetString("client_contact"),
			ClientPhone:   quote.GetString("client_phone"),
			ClientTaxID:   quote.GetString("client_tax_id"),
		},
		Items: views,
		Totals: templates.TotalsView{
			Subtotal:       services.FormatNTD(totals.Subtotal),
			ManagementFee:  services.FormatNTD(totals.ManagementFee),
			Tax:            services.FormatNTD(totals.Tax),
			GrandTotal:     services.FormatNTD(totals.GrandTotal),
			ManagementRate: managementRate,
			TaxRate:        taxRate,
		},
		Sources:     sourceViews,
		UnitOptions: services.UnitOptions,
		RateOptions: services.RateOptions,
		Offline:     offline,
	}, nil
}

// renderItemTable re-renders the item table partial after a mutation.
func renderItemTable(e *core.RequestEvent, app *pocketbase.PocketBase, quoteID string) error {
	data, err := buildQuoteViewData(app, quoteID)
	if err != nil {
		log.Printf("item_table: %v", err)
		return ErrorToast(e, http.StatusInternalServerError, "發生錯誤，請重試。")
	}
	return templates.ItemTable(data).Render(e.Request.Context(), e.Response)
}

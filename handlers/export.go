package handlers

import (
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimator/services"
)

// buildExportData snapshots a quote into the export representation, with
// totals recomputed from the current item list.
func buildExportData(app *pocketbase.PocketBase, quoteID string) (services.ExportData, error) {
	quote, err := app.FindRecordById("quotes", quoteID)
	if err != nil {
		return services.ExportData{}, fmt.Errorf("quote not found: %w", err)
	}

	items, err := loadQuoteItems(app, quoteID)
	if err != nil {
		return services.ExportData{}, err
	}
	sources, err := loadQuoteSources(app, quoteID)
	if err != nil {
		return services.ExportData{}, err
	}

	rows := make([]services.ExportRow, 0, len(items))
	for i, it := range items {
		rows = append(rows, services.ExportRow{
			Index:       i + 1,
			Name:        it.Name,
			Spec:        it.Spec,
			Quantity:    it.Quantity,
			Unit:        it.Unit,
			MarketPrice: it.MarketPrice,
			LineTotal:   it.LineTotal(),
			Brand:       it.Brand,
			Remarks:     it.Remarks,
			Supplier:    it.Supplier,
		})
	}

	managementRate := quote.GetFloat("management_rate")
	taxRate := quote.GetFloat("tax_rate")

	return services.ExportData{
		ProjectName:     quote.GetString("project_name"),
		VendorName:      quote.GetString("vendor_name"),
		VendorContact:   quote.GetString("vendor_contact"),
		VendorPhone:     quote.GetString("vendor_phone"),
		ClientContact:   quote.GetString("client_contact"),
		ClientPhone:     quote.GetString("client_phone"),
		ClientTaxID:     quote.GetString("client_tax_id"),
		ReferenceNumber: quote.GetString("reference_number"),
		QuoteDate:       quote.GetString("quote_date"),
		Rows:            rows,
		ManagementRate:  managementRate,
		TaxRate:         taxRate,
		Totals:          services.CalcQuoteTotals(items, managementRate, taxRate),
		Sources:         sources,
	}, nil
}

// exportFileName builds the download name from the project name and quote
// date, falling back to the generic document title.
func exportFileName(data services.ExportData, ext string) string {
	name := sanitizeFileName(data.ProjectName)
	if name == "" {
		name = "估價單"
	}
	if data.QuoteDate != "" {
		name += "_" + data.QuoteDate
	}
	return name + "." + ext
}

// sanitizeFileName strips characters that are unsafe in download names.
func sanitizeFileName(s string) string {
	s = strings.TrimSpace(s)
	replacer := strings.NewReplacer(
		"/", "_", "\\", "_", ":", "_", "*", "_",
		"?", "_", "\"", "_", "<", "_", ">", "_", "|", "_",
	)
	return replacer.Replace(s)
}

// serveDownload writes the generated document with a RFC 5987 encoded
// filename so CJK names survive every browser.
func serveDownload(e *core.RequestEvent, fileName, contentType string, body []byte) error {
	e.Response.Header().Set("Content-Type", contentType)
	e.Response.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename*=UTF-8''%s`, url.PathEscape(fileName)))
	_, err := e.Response.Write(body)
	return err
}

// guardExportable reloads the quote snapshot and rejects empty quotes; the
// UI disables the buttons, this guards direct requests.
func guardExportable(e *core.RequestEvent, app *pocketbase.PocketBase) (services.ExportData, bool) {
	quoteID := e.Request.PathValue("id")
	if quoteID == "" {
		_ = ErrorToast(e, http.StatusBadRequest, "缺少估價單編號")
		return services.ExportData{}, false
	}

	data, err := buildExportData(app, quoteID)
	if err != nil {
		log.Printf("export: %v", err)
		_ = ErrorToast(e, http.StatusNotFound, "找不到估價單")
		return services.ExportData{}, false
	}
	if len(data.Rows) == 0 {
		_ = ErrorToast(e, http.StatusBadRequest, "估價單尚無品項，無法匯出")
		return services.ExportData{}, false
	}
	return data, true
}

// HandleExportCSV streams the quote as a UTF-8 CSV file.
func HandleExportCSV(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		data, ok := guardExportable(e, app)
		if !ok {
			return nil
		}

		body, err := services.GenerateCSV(data)
		if err != nil {
			log.Printf("export_csv: %v", err)
			return ErrorToast(e, http.StatusInternalServerError, "匯出失敗，請重試。")
		}
		return serveDownload(e, exportFileName(data, "csv"), "text/csv; charset=utf-8", body)
	}
}

// HandleExportExcel streams the quote as a styled .xlsx workbook.
func HandleExportExcel(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		data, ok := guardExportable(e, app)
		if !ok {
			return nil
		}

		body, err := services.GenerateExcel(data)
		if err != nil {
			log.Printf("export_excel: %v", err)
			return ErrorToast(e, http.StatusInternalServerError, "匯出失敗，請重試。")
		}
		return serveDownload(e, exportFileName(data, "xlsx"),
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", body)
	}
}

// HandleExportPDF streams the quote as an A4 landscape PDF.
func HandleExportPDF(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		data, ok := guardExportable(e, app)
		if !ok {
			return nil
		}

		body, err := services.GeneratePDF(data)
		if err != nil {
			log.Printf("export_pdf: %v", err)
			return ErrorToast(e, http.StatusInternalServerError, "匯出失敗，請重試。")
		}
		return serveDownload(e, exportFileName(data, "pdf"), "application/pdf", body)
	}
}

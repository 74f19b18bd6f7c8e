package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimator/services"
	"estimator/templates"
)

// HandleImportPage renders the materials list upload page.
func HandleImportPage(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		quoteID := e.Request.PathValue("id")
		quote, err := app.FindRecordById("quotes", quoteID)
		if err != nil {
			return e.Redirect(http.StatusFound, "/quotes")
		}

		data := templates.ImportPageData{
			QuoteID:     quote.Id,
			ProjectName: quote.GetString("project_name"),
		}
		return templates.ImportPage(data).Render(e.Request.Context(), e.Response)
	}
}

// HandleImportValidate parses and validates the uploaded file, rendering the
// per-row error report without touching the quote.
func HandleImportValidate(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		quoteID := e.Request.PathValue("id")
		if _, err := app.FindRecordById("quotes", quoteID); err != nil {
			return ErrorToast(e, http.StatusNotFound, "找不到估價單")
		}

		result, err := validateImportUpload(e)
		if err != nil {
			return nil
		}

		SetToast(e, "info", "檔案檢查完成")
		return renderImportResult(e, quoteID, result)
	}
}

// HandleImportCommit validates the upload again and, when it contains at
// least one valid row, replaces the quote's item list wholesale. The market
// source list is cleared since the prices now come from the file.
func HandleImportCommit(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		quoteID := e.Request.PathValue("id")
		if _, err := app.FindRecordById("quotes", quoteID); err != nil {
			return ErrorToast(e, http.StatusNotFound, "找不到估價單")
		}

		result, err := validateImportUpload(e)
		if err != nil {
			return nil
		}
		if result.ValidRows == 0 {
			SetToast(e, "error", "檔案中沒有有效的品項列")
			return renderImportResult(e, quoteID, result)
		}

		if err := persistQuoteItems(app, quoteID, result.Items); err != nil {
			log.Printf("import_commit: %v", err)
			return ErrorToast(e, http.StatusInternalServerError, "發生錯誤，請重試。")
		}
		if err := replaceQuoteSources(app, quoteID, nil); err != nil {
			log.Printf("import_commit: clear sources: %v", err)
			return ErrorToast(e, http.StatusInternalServerError, "發生錯誤，請重試。")
		}

		SetToast(e, "success", "匯入完成，返回估價單查看品項")
		return renderImportResult(e, quoteID, result)
	}
}

// errUploadRejected signals that validateImportUpload already wrote the
// error response; callers must not render anything further.
var errUploadRejected = errors.New("upload rejected")

// validateImportUpload extracts the uploaded file from the request and runs
// it through the import validator. On a rejected upload the error toast has
// already been written and errUploadRejected is returned.
func validateImportUpload(e *core.RequestEvent) (*services.ImportResult, error) {
	if err := e.Request.ParseMultipartForm(maxUploadBytes); err != nil {
		_ = ErrorToast(e, http.StatusBadRequest, "上傳資料無效")
		return nil, errUploadRejected
	}
	file, header, err := e.Request.FormFile("file")
	if err != nil {
		_ = ErrorToast(e, http.StatusBadRequest, "請先選擇檔案")
		return nil, errUploadRejected
	}
	defer file.Close()

	result, err := services.ValidateItemsFile(file, header.Filename)
	if err != nil {
		log.Printf("import: validate %q: %v", header.Filename, err)
		_ = ErrorToast(e, http.StatusBadRequest, "無法解析檔案："+err.Error())
		return nil, errUploadRejected
	}
	return result, nil
}

func renderImportResult(e *core.RequestEvent, quoteID string, result *services.ImportResult) error {
	view := &templates.ImportResultView{
		FileName:  result.FileName,
		TotalRows: result.TotalRows,
		ValidRows: result.ValidRows,
		ErrorRows: result.ErrorRows,
	}
	for _, ve := range result.Errors {
		view.Errors = append(view.Errors, templates.ImportRowError{
			Row:     ve.Row,
			Field:   ve.Field,
			Message: ve.Message,
		})
	}

	data := templates.ImportPageData{QuoteID: quoteID, Result: view}
	return templates.ImportResult(data).Render(e.Request.Context(), e.Response)
}

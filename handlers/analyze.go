package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimator/services"
)

// maxUploadBytes caps analyze and import uploads at 10 MB.
const maxUploadBytes = 10 << 20

// HandleAnalyzeText runs the free-text extraction and, on full success,
// replaces the quote's items and sources wholesale. Any failure leaves the
// stored state untouched.
func HandleAnalyzeText(app *pocketbase.PocketBase, client *services.GeminiClient) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		quoteID := e.Request.PathValue("id")
		if quoteID == "" {
			return ErrorToast(e, http.StatusBadRequest, "缺少估價單編號")
		}
		if _, err := app.FindRecordById("quotes", quoteID); err != nil {
			return ErrorToast(e, http.StatusNotFound, "找不到估價單")
		}

		if err := e.Request.ParseForm(); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "表單資料無效")
		}
		text := strings.TrimSpace(e.Request.FormValue("text"))
		if text == "" {
			return ErrorToast(e, http.StatusBadRequest, "請先輸入材料清單文字")
		}

		result, err := client.AnalyzeText(e.Request.Context(), text)
		if err != nil {
			log.Printf("analyze_text: %v", err)
			return ErrorToast(e, http.StatusBadGateway, analyzeErrorMessage(err))
		}

		return installAnalysis(e, app, quoteID, result)
	}
}

// HandleAnalyzeImage runs the photo extraction (multipart JPEG upload) with
// the same replace-wholesale semantics as the text path.
func HandleAnalyzeImage(app *pocketbase.PocketBase, client *services.GeminiClient) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		quoteID := e.Request.PathValue("id")
		if quoteID == "" {
			return ErrorToast(e, http.StatusBadRequest, "缺少估價單編號")
		}
		if _, err := app.FindRecordById("quotes", quoteID); err != nil {
			return ErrorToast(e, http.StatusNotFound, "找不到估價單")
		}

		if err := e.Request.ParseMultipartForm(maxUploadBytes); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "上傳資料無效")
		}
		file, _, err := e.Request.FormFile("image")
		if err != nil {
			return ErrorToast(e, http.StatusBadRequest, "請先選擇照片")
		}
		defer file.Close()

		image, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
		if err != nil {
			log.Printf("analyze_image: read upload: %v", err)
			return ErrorToast(e, http.StatusBadRequest, "照片讀取失敗")
		}

		result, err := client.AnalyzeImage(e.Request.Context(), image)
		if err != nil {
			log.Printf("analyze_image: %v", err)
			return ErrorToast(e, http.StatusBadGateway, analyzeErrorMessage(err))
		}

		return installAnalysis(e, app, quoteID, result)
	}
}

// installAnalysis swaps in the extraction result and re-renders the table.
func installAnalysis(e *core.RequestEvent, app *pocketbase.PocketBase, quoteID string, result services.AnalysisResult) error {
	if err := persistQuoteItems(app, quoteID, result.Items); err != nil {
		log.Printf("analyze: install items: %v", err)
		return ErrorToast(e, http.StatusInternalServerError, "發生錯誤，請重試。")
	}
	if err := replaceQuoteSources(app, quoteID, result.Sources); err != nil {
		log.Printf("analyze: install sources: %v", err)
		return ErrorToast(e, http.StatusInternalServerError, "發生錯誤，請重試。")
	}

	offline := false
	for _, s := range result.Sources {
		if s.Offline() {
			offline = true
		}
	}
	if offline {
		SetToast(e, "info", "已完成分析（離線估價模式，價格僅供參考）")
	} else {
		SetToast(e, "success", "AI 分析完成，市場價格已更新")
	}

	return renderItemTable(e, app, quoteID)
}

// analyzeErrorMessage maps service errors to a human-readable toast.
func analyzeErrorMessage(err error) string {
	if errors.Is(err, services.ErrContract) {
		return "AI 回傳格式異常，請重試一次"
	}

	var apiErr *services.APIError
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return "AI 服務忙碌中，請稍後再試"
		case apiErr.StatusCode >= 500:
			return "AI 服務暫時無法使用，請稍後再試"
		default:
			return "AI 分析失敗，請確認 API 設定"
		}
	}
	return "AI 分析失敗，請稍後再試"
}

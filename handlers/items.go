package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"

	"estimator/services"
)

// HandleItemAdd appends a blank item to the quote and re-renders the table.
func HandleItemAdd(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		quoteID := e.Request.PathValue("id")
		if quoteID == "" {
			return ErrorToast(e, http.StatusBadRequest, "缺少估價單編號")
		}
		if _, err := app.FindRecordById("quotes", quoteID); err != nil {
			return ErrorToast(e, http.StatusNotFound, "找不到估價單")
		}

		items, err := loadQuoteItems(app, quoteID)
		if err != nil {
			log.Printf("item_add: %v", err)
			return ErrorToast(e, http.StatusInternalServerError, "發生錯誤，請重試。")
		}

		if err := persistQuoteItems(app, quoteID, services.AddItem(items)); err != nil {
			log.Printf("item_add: %v", err)
			return ErrorToast(e, http.StatusInternalServerError, "發生錯誤，請重試。")
		}

		return renderItemTable(e, app, quoteID)
	}
}

// itemFieldNames maps form keys to editor fields. Quantity and price parse
// as numbers with invalid input coercing to zero.
var itemFieldNames = map[string]services.ItemField{
	"name":         services.FieldName,
	"spec":         services.FieldSpec,
	"quantity":     services.FieldQuantity,
	"unit":         services.FieldUnit,
	"market_price": services.FieldMarketPrice,
	"brand":        services.FieldBrand,
	"remarks":      services.FieldRemarks,
	"supplier":     services.FieldSupplier,
	"source_url":   services.FieldSourceURL,
}

// HandleItemPatch updates a single field on one item and re-renders the
// table so the line total and staged totals refresh.
func HandleItemPatch(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		quoteID := e.Request.PathValue("id")
		itemID := e.Request.PathValue("itemId")
		if quoteID == "" || itemID == "" {
			return ErrorToast(e, http.StatusBadRequest, "缺少必要編號")
		}

		if err := e.Request.ParseForm(); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "表單資料無效")
		}

		items, err := loadQuoteItems(app, quoteID)
		if err != nil {
			log.Printf("item_patch: %v", err)
			return ErrorToast(e, http.StatusInternalServerError, "發生錯誤，請重試。")
		}

		for key, values := range e.Request.Form {
			field, ok := itemFieldNames[key]
			if !ok || len(values) == 0 {
				continue
			}

			var value any
			switch field {
			case services.FieldQuantity, services.FieldMarketPrice:
				f, err := strconv.ParseFloat(values[0], 64)
				if err != nil {
					f = 0
				}
				value = f
			default:
				value = values[0]
			}
			items = services.UpdateItem(items, itemID, field, value)
		}

		if err := persistQuoteItems(app, quoteID, items); err != nil {
			log.Printf("item_patch: %v", err)
			return ErrorToast(e, http.StatusInternalServerError, "發生錯誤，請重試。")
		}

		return renderItemTable(e, app, quoteID)
	}
}

// HandleItemDelete removes one item and re-renders the table.
func HandleItemDelete(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		quoteID := e.Request.PathValue("id")
		itemID := e.Request.PathValue("itemId")
		if quoteID == "" || itemID == "" {
			return ErrorToast(e, http.StatusBadRequest, "缺少必要編號")
		}

		items, err := loadQuoteItems(app, quoteID)
		if err != nil {
			log.Printf("item_delete: %v", err)
			return ErrorToast(e, http.StatusInternalServerError, "發生錯誤，請重試。")
		}

		if err := persistQuoteItems(app, quoteID, services.RemoveItem(items, itemID)); err != nil {
			log.Printf("item_delete: %v", err)
			return ErrorToast(e, http.StatusInternalServerError, "發生錯誤，請重試。")
		}

		return renderItemTable(e, app, quoteID)
	}
}

// HandleItemMove swaps an item with its neighbor in the given direction.
// Boundary moves are silent no-ops, matching the disabled buttons.
func HandleItemMove(app *pocketbase.PocketBase) func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		quoteID := e.Request.PathValue("id")
		itemID := e.Request.PathValue("itemId")
		if quoteID == "" || itemID == "" {
			return ErrorToast(e, http.StatusBadRequest, "缺少必要編號")
		}

		if err := e.Request.ParseForm(); err != nil {
			return ErrorToast(e, http.StatusBadRequest, "表單資料無效")
		}

		var direction services.Direction
		switch e.Request.FormValue("direction") {
		case "up":
			direction = services.MoveUp
		case "down":
			direction = services.MoveDown
		default:
			return ErrorToast(e, http.StatusBadRequest, "無效的移動方向")
		}

		items, err := loadQuoteItems(app, quoteID)
		if err != nil {
			log.Printf("item_move: %v", err)
			return ErrorToast(e, http.StatusInternalServerError, "發生錯誤，請重試。")
		}

		index := -1
		for i, it := range items {
			if it.ID == itemID {
				index = i
				break
			}
		}

		if err := persistQuoteItems(app, quoteID, services.MoveItem(items, index, direction)); err != nil {
			log.Printf("item_move: %v", err)
			return ErrorToast(e, http.StatusInternalServerError, "發生錯誤，請重試。")
		}

		return renderItemTable(e, app, quoteID)
	}
}

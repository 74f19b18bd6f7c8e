package collections

import (
	"fmt"
	"log"
	"time"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
)

// ── Definition structs ───────────────────────────────────────────────────

type itemDef struct {
	sortOrder   int
	name        string
	spec        string
	quantity    float64
	unit        string
	marketPrice float64
	brand       string
	remarks     string
	supplier    string
	sourceURL   string
}

type sourceDef struct {
	sortOrder int
	title     string
	uri       string
}

type quoteDef struct {
	projectName    string
	vendorName     string
	vendorContact  string
	vendorPhone    string
	clientContact  string
	clientPhone    string
	clientTaxID    string
	managementRate float64
	taxRate        float64
	items          []itemDef
	sources        []sourceDef
}

// Seed populates the collections with a realistic demo quote so the first
// page a new user opens is not empty. Safe to call on every startup because
// it returns early if any quote records already exist.
func Seed(app *pocketbase.PocketBase) error {
	quotesCol, err := app.FindCollectionByNameOrId("quotes")
	if err != nil {
		return fmt.Errorf("seed: could not find quotes collection: %w", err)
	}
	existing, err := app.FindAllRecords(quotesCol)
	if err != nil {
		return fmt.Errorf("seed: could not query quotes: %w", err)
	}
	if len(existing) > 0 {
		return nil // already seeded
	}

	log.Println("seed: quotes collection is empty – inserting seed data …")

	itemsCol, err := app.FindCollectionByNameOrId("quote_items")
	if err != nil {
		return fmt.Errorf("seed: could not find quote_items collection: %w", err)
	}
	sourcesCol, err := app.FindCollectionByNameOrId("quote_sources")
	if err != nil {
		return fmt.Errorf("seed: could not find quote_sources collection: %w", err)
	}

	now := time.Now()

	createQuote := func(seq int, d quoteDef) error {
		r := core.NewRecord(quotesCol)
		r.Set("project_name", d.projectName)
		r.Set("vendor_name", d.vendorName)
		r.Set("vendor_contact", d.vendorContact)
		r.Set("vendor_phone", d.vendorPhone)
		r.Set("client_contact", d.clientContact)
		r.Set("client_phone", d.clientPhone)
		r.Set("client_tax_id", d.clientTaxID)
		r.Set("reference_number", fmt.Sprintf("EST-%s-%03d", now.Format("20060102"), seq))
		r.Set("quote_date", now.Format("2006-01-02"))
		r.Set("management_rate", d.managementRate)
		r.Set("tax_rate", d.taxRate)
		if err := app.Save(r); err != nil {
			return fmt.Errorf("seed: save quote %q: %w", d.projectName, err)
		}

		for _, it := range d.items {
			ir := core.NewRecord(itemsCol)
			ir.Set("quote", r.Id)
			ir.Set("sort_order", it.sortOrder)
			ir.Set("name", it.name)
			ir.Set("spec", it.spec)
			ir.Set("quantity", it.quantity)
			ir.Set("unit", it.unit)
			ir.Set("market_price", it.marketPrice)
			ir.Set("brand", it.brand)
			ir.Set("remarks", it.remarks)
			ir.Set("supplier", it.supplier)
			ir.Set("source_url", it.sourceURL)
			if err := app.Save(ir); err != nil {
				return fmt.Errorf("seed: save item %q: %w", it.name, err)
			}
		}

		for _, s := range d.sources {
			sr := core.NewRecord(sourcesCol)
			sr.Set("quote", r.Id)
			sr.Set("sort_order", s.sortOrder)
			sr.Set("title", s.title)
			sr.Set("uri", s.uri)
			if err := app.Save(sr); err != nil {
				return fmt.Errorf("seed: save source %q: %w", s.title, err)
			}
		}
		return nil
	}

	if err := createQuote(1, quoteDef{
		projectName:    "中山區老屋衛浴翻修",
		vendorName:     "大同水電工程行",
		vendorContact:  "王志明",
		vendorPhone:    "0912-345-678",
		clientContact:  "陳小姐",
		clientPhone:    "02-2541-8876",
		managementRate: 10,
		taxRate:        5,
		items: []itemDef{
			{sortOrder: 1, name: "電線", spec: "太平洋 2.0mm 單芯線", quantity: 3, unit: "捲", marketPrice: 1250, brand: "太平洋電線電纜", remarks: "100米/捲", supplier: "全成電料行", sourceURL: "https://example.com/wire-2.0mm"},
			{sortOrder: 2, name: "無熔絲開關", spec: "士林電機 NF50 2P 20A", quantity: 4, unit: "個", marketPrice: 320, brand: "士林電機", remarks: "", supplier: "全成電料行", sourceURL: ""},
			{sortOrder: 3, name: "PVC管", spec: "南亞 4分 厚管", quantity: 10, unit: "支", marketPrice: 85, brand: "南亞塑膠", remarks: "4米/支", supplier: "建成水電材料行", sourceURL: ""},
			{sortOrder: 4, name: "埋壁式龍頭", spec: "凱撒 BF640", quantity: 1, unit: "組", marketPrice: 2680, brand: "凱撒衛浴", remarks: "含轉接配件", supplier: "建成水電材料行", sourceURL: "https://example.com/bf640"},
			{sortOrder: 5, name: "配管工資", spec: "冷熱水管配置", quantity: 2, unit: "工", marketPrice: 3000, brand: "", remarks: "含打鑿", supplier: "", sourceURL: ""},
		},
		sources: []sourceDef{
			{sortOrder: 1, title: "全成電料行線上型錄", uri: "https://example.com/catalog"},
			{sortOrder: 2, title: "凱撒衛浴官網建議售價", uri: "https://example.com/caesar"},
		},
	}); err != nil {
		return err
	}

	log.Println("seed: demo quote inserted successfully")
	return nil
}

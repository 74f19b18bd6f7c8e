package services

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
)

// utf8BOM keeps spreadsheet applications from misreading the CJK text.
var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// GenerateCSV serializes the quote to comma-delimited UTF-8 text with a
// leading byte-order marker. Field quoting and embedded-quote doubling
// follow RFC 4180 via encoding/csv.
func GenerateCSV(data ExportData) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(utf8BOM)

	w := csv.NewWriter(&buf)

	header := [][]string{
		{data.Title()},
		{"報價編號", data.ReferenceNumber},
		{"報價日期", data.QuoteDate},
		{"承包商", data.VendorName},
		{"承包商聯絡", data.VendorContact, data.VendorPhone},
		{"業主聯絡", data.ClientContact, data.ClientPhone},
	}
	if data.ClientTaxID != "" {
		header = append(header, []string{"業主統編", data.ClientTaxID})
	}
	header = append(header, []string{})

	for _, rec := range header {
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("write header: %w", err)
		}
	}

	columns := []string{"項次", "工程品項名稱", "詳細規格 / 型號", "數量", "單位", "市場單價", "小計", "廠牌", "備註", "供應商"}
	if err := w.Write(columns); err != nil {
		return nil, fmt.Errorf("write columns: %w", err)
	}

	for _, r := range data.Rows {
		rec := []string{
			strconv.Itoa(r.Index),
			r.Name,
			r.Spec,
			formatNumber(r.Quantity),
			r.Unit,
			formatNumber(r.MarketPrice),
			formatNumber(r.LineTotal),
			r.Brand,
			r.Remarks,
			r.Supplier,
		}
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("write row %d: %w", r.Index, err)
		}
	}

	totals := [][]string{
		{},
		{"小計 (材料與工資)", formatNumber(data.Totals.Subtotal)},
		{fmt.Sprintf("工程管理費 (%s%%)", formatNumber(data.ManagementRate)), formatNumber(data.Totals.ManagementFee)},
		{fmt.Sprintf("營業稅 (%s%%)", formatNumber(data.TaxRate)), formatNumber(data.Totals.Tax)},
		{"總計預估金額 (含稅)", formatNumber(data.Totals.GrandTotal)},
	}
	for _, rec := range totals {
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("write totals: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

// formatNumber renders a value without grouping or currency markers so the
// file stays machine-readable.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

package services

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"
)

// GenerateExcel creates a styled .xlsx workbook from the given ExportData
// and returns the file contents as a byte slice.
func GenerateExcel(data ExportData) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	// Sheet names are capped at 31 chars by the file format. Trim whole
	// runes so a long Chinese title is never cut mid-sequence.
	sheetName := data.Title()
	for len(sheetName) > 31 {
		runes := []rune(sheetName)
		sheetName = string(runes[:len(runes)-1])
	}

	defaultSheet := f.GetSheetName(0)
	if err := f.SetSheetName(defaultSheet, sheetName); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}

	// Column references (A through J).
	columns := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}
	lastCol := columns[len(columns)-1]

	widths := []float64{6, 28, 28, 8, 8, 14, 14, 16, 24, 18}
	for i, c := range columns {
		if err := f.SetColWidth(sheetName, c, c, widths[i]); err != nil {
			return nil, fmt.Errorf("set col width %s: %w", c, err)
		}
	}

	// ── Styles ──────────────────────────────────────────────────────────

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
			Size: 16,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create title style: %w", err)
	}

	subtitleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Size: 11,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create subtitle style: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:  true,
			Color: "#FFFFFF",
			Size:  11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#212529"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Border: thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	itemStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Size: 10,
		},
		Border: thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create item style: %w", err)
	}

	totalsLabelStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "right",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create totals label style: %w", err)
	}

	totalsValueStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create totals value style: %w", err)
	}

	// ── Header Rows (1-4) ───────────────────────────────────────────────

	if err := f.MergeCell(sheetName, "A1", lastCol+"1"); err != nil {
		return nil, fmt.Errorf("merge title: %w", err)
	}
	f.SetCellValue(sheetName, "A1", sanitizeExcelCell(data.Title()))
	f.SetCellStyle(sheetName, "A1", lastCol+"1", titleStyle)

	if data.ReferenceNumber != "" {
		if err := f.MergeCell(sheetName, "A2", lastCol+"2"); err != nil {
			return nil, fmt.Errorf("merge ref: %w", err)
		}
		f.SetCellValue(sheetName, "A2", "報價編號："+data.ReferenceNumber)
		f.SetCellStyle(sheetName, "A2", lastCol+"2", subtitleStyle)
	}

	if err := f.MergeCell(sheetName, "A3", lastCol+"3"); err != nil {
		return nil, fmt.Errorf("merge date: %w", err)
	}
	f.SetCellValue(sheetName, "A3", "報價日期："+data.QuoteDate)
	f.SetCellStyle(sheetName, "A3", lastCol+"3", subtitleStyle)

	if data.VendorName != "" {
		if err := f.MergeCell(sheetName, "A4", lastCol+"4"); err != nil {
			return nil, fmt.Errorf("merge vendor: %w", err)
		}
		vendor := "承包商：" + data.VendorName
		if data.VendorContact != "" {
			vendor += fmt.Sprintf(" / %s (%s)", data.VendorContact, data.VendorPhone)
		}
		f.SetCellValue(sheetName, "A4", sanitizeExcelCell(vendor))
		f.SetCellStyle(sheetName, "A4", lastCol+"4", subtitleStyle)
	}

	// ── Row 6: Column Headers ───────────────────────────────────────────

	headers := []string{"項次", "工程品項名稱", "詳細規格 / 型號", "數量", "單位", "市場單價", "小計", "廠牌", "備註", "供應商"}
	for i, h := range headers {
		cell := fmt.Sprintf("%s6", columns[i])
		f.SetCellValue(sheetName, cell, h)
	}
	f.SetCellStyle(sheetName, "A6", lastCol+"6", headerStyle)

	// ── Data Rows (starting row 7) ──────────────────────────────────────

	rowNum := 7
	for _, r := range data.Rows {
		rowStr := fmt.Sprintf("%d", rowNum)

		f.SetCellValue(sheetName, "A"+rowStr, r.Index)
		f.SetCellValue(sheetName, "B"+rowStr, sanitizeExcelCell(r.Name))
		f.SetCellValue(sheetName, "C"+rowStr, sanitizeExcelCell(r.Spec))
		f.SetCellValue(sheetName, "D"+rowStr, r.Quantity)
		f.SetCellValue(sheetName, "E"+rowStr, sanitizeExcelCell(r.Unit))
		f.SetCellValue(sheetName, "F"+rowStr, r.MarketPrice)
		f.SetCellValue(sheetName, "G"+rowStr, r.LineTotal)
		f.SetCellValue(sheetName, "H"+rowStr, sanitizeExcelCell(r.Brand))
		f.SetCellValue(sheetName, "I"+rowStr, sanitizeExcelCell(r.Remarks))
		f.SetCellValue(sheetName, "J"+rowStr, sanitizeExcelCell(r.Supplier))

		f.SetCellStyle(sheetName, "A"+rowStr, lastCol+rowStr, itemStyle)
		rowNum++
	}

	// ── Totals Rows ─────────────────────────────────────────────────────

	rowNum++

	addTotal := func(label string, value float64) {
		rowStr := fmt.Sprintf("%d", rowNum)
		f.SetCellValue(sheetName, "F"+rowStr, label)
		f.SetCellStyle(sheetName, "F"+rowStr, "F"+rowStr, totalsLabelStyle)
		f.SetCellValue(sheetName, "G"+rowStr, value)
		f.SetCellStyle(sheetName, "G"+rowStr, "G"+rowStr, totalsValueStyle)
		rowNum++
	}

	addTotal("小計 (材料與工資)：", data.Totals.Subtotal)
	addTotal(fmt.Sprintf("工程管理費 (%s%%)：", formatQty(data.ManagementRate)), data.Totals.ManagementFee)
	addTotal(fmt.Sprintf("營業稅 (%s%%)：", formatQty(data.TaxRate)), data.Totals.Tax)
	addTotal("總計預估金額 (含稅)：", data.Totals.GrandTotal)

	// ── Write to buffer ─────────────────────────────────────────────────

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

// thinBorders returns a full set of thin cell borders.
func thinBorders() []excelize.Border {
	return []excelize.Border{
		{Type: "left", Color: "#CCCCCC", Style: 1},
		{Type: "right", Color: "#CCCCCC", Style: 1},
		{Type: "top", Color: "#CCCCCC", Style: 1},
		{Type: "bottom", Color: "#CCCCCC", Style: 1},
	}
}

// sanitizeExcelCell prevents formula injection by prefixing dangerous leading
// characters with a single quote. Excel interprets cells starting with =, +,
// -, @, \t or \r as formulas.
func sanitizeExcelCell(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

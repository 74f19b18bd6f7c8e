package services

import (
	"bytes"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

// memFile adapts a byte slice to the multipart.File interface.
type memFile struct {
	*bytes.Reader
}

func (memFile) Close() error { return nil }

func newMemFile(b []byte) memFile {
	return memFile{bytes.NewReader(b)}
}

func csvUpload(rows ...string) memFile {
	return newMemFile([]byte(strings.Join(rows, "\n")))
}

func xlsxUpload(t *testing.T, rows [][]any) memFile {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, v := range row {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+1)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				t.Fatalf("set cell %s: %v", cell, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("write workbook: %v", err)
	}
	return newMemFile(buf.Bytes())
}

func TestValidateItemsFile_CSV(t *testing.T) {
	file := csvUpload(
		"名稱,規格,數量,單位,市場單價,廠牌,備註,供應商",
		"電線,太平洋 2.0mm,3,捲,1200,太平洋,,水電行",
		`PVC管,"4"" 厚管",10,支,85,南亞,,水電行`,
	)

	result, err := ValidateItemsFile(file, "materials.csv")
	if err != nil {
		t.Fatalf("ValidateItemsFile() error = %v", err)
	}

	if result.TotalRows != 2 || result.ValidRows != 2 || result.ErrorRows != 0 {
		t.Errorf("counts = %d/%d/%d, want 2/2/0", result.TotalRows, result.ValidRows, result.ErrorRows)
	}

	it := result.Items[0]
	if it.Name != "電線" || it.Quantity != 3 || it.Unit != "捲" || it.MarketPrice != 1200 {
		t.Errorf("first item = %+v", it)
	}
	if it.ID == "" {
		t.Error("imported item was not assigned an id")
	}
	if result.Items[1].Spec != `4" 厚管` {
		t.Errorf("quoted spec = %q", result.Items[1].Spec)
	}
}

func TestValidateItemsFile_CSVWithBOM(t *testing.T) {
	raw := append(append([]byte{}, utf8BOM...), []byte("名稱,數量\n電線,3\n")...)

	result, err := ValidateItemsFile(newMemFile(raw), "materials.csv")
	if err != nil {
		t.Fatalf("ValidateItemsFile() error = %v", err)
	}
	if result.ValidRows != 1 {
		t.Errorf("valid rows = %d, want 1", result.ValidRows)
	}
}

func TestValidateItemsFile_EnglishHeaders(t *testing.T) {
	file := csvUpload(
		"Name,Spec,Quantity,Unit,Price",
		"開關面板,Panasonic 星光,5,個,150",
	)

	result, err := ValidateItemsFile(file, "materials.csv")
	if err != nil {
		t.Fatalf("ValidateItemsFile() error = %v", err)
	}
	if result.ValidRows != 1 {
		t.Fatalf("valid rows = %d, want 1", result.ValidRows)
	}
	it := result.Items[0]
	if it.Name != "開關面板" || it.MarketPrice != 150 {
		t.Errorf("item = %+v", it)
	}
}

func TestValidateItemsFile_RowErrors(t *testing.T) {
	file := csvUpload(
		"名稱,數量,市場單價",
		"電線,abc,1200",  // bad quantity
		",3,100",       // missing name
		"插座,2,-50",     // negative price
		"配電箱,1,3500",   // fine
	)

	result, err := ValidateItemsFile(file, "materials.csv")
	if err != nil {
		t.Fatalf("ValidateItemsFile() error = %v", err)
	}

	if result.TotalRows != 4 || result.ValidRows != 1 || result.ErrorRows != 3 {
		t.Errorf("counts = %d/%d/%d, want 4/1/3", result.TotalRows, result.ValidRows, result.ErrorRows)
	}
	if len(result.Items) != 1 || result.Items[0].Name != "配電箱" {
		t.Errorf("surviving items = %+v", result.Items)
	}

	// Row numbers are 1-indexed counting the header.
	wantRows := []int{2, 3, 4}
	for i, e := range result.Errors {
		if e.Row != wantRows[i] {
			t.Errorf("error %d on row %d, want %d", i, e.Row, wantRows[i])
		}
	}
}

func TestValidateItemsFile_DefaultsAndCommaNumbers(t *testing.T) {
	file := csvUpload(
		"名稱,數量,市場單價",
		`熱水器,1,"12,500"`,
	)

	result, err := ValidateItemsFile(file, "materials.csv")
	if err != nil {
		t.Fatalf("ValidateItemsFile() error = %v", err)
	}
	it := result.Items[0]
	if it.Unit != "式" {
		t.Errorf("blank unit = %q, want 式", it.Unit)
	}
	if it.MarketPrice != 12500 {
		t.Errorf("grouped price = %v, want 12500", it.MarketPrice)
	}
}

func TestValidateItemsFile_Excel(t *testing.T) {
	file := xlsxUpload(t, [][]any{
		{"名稱", "規格", "數量", "單位", "市場單價"},
		{"電線", "太平洋 2.0mm", 3, "捲", 1200},
		{"無熔絲開關", "士林 NF50", 2, "個", 320},
	})

	result, err := ValidateItemsFile(file, "materials.xlsx")
	if err != nil {
		t.Fatalf("ValidateItemsFile() error = %v", err)
	}
	if result.ValidRows != 2 {
		t.Fatalf("valid rows = %d, want 2", result.ValidRows)
	}
	if result.Items[1].Name != "無熔絲開關" || result.Items[1].MarketPrice != 320 {
		t.Errorf("second item = %+v", result.Items[1])
	}
}

func TestValidateItemsFile_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		file     memFile
		fileName string
	}{
		{"unsupported format", csvUpload("名稱\n電線"), "materials.txt"},
		{"no name column", csvUpload("數量,單位", "3,捲"), "materials.csv"},
		{"header only", csvUpload("名稱,數量"), "materials.csv"},
		{"not a workbook", csvUpload("名稱\n電線"), "materials.xlsx"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ValidateItemsFile(tt.file, tt.fileName); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestValidateItemsFile_RoundTripsOwnExport(t *testing.T) {
	out, err := GenerateCSV(referenceExportData())
	if err != nil {
		t.Fatalf("GenerateCSV() error = %v", err)
	}

	// The export carries header and totals blocks before and after the item
	// table; the import only needs the table portion.
	raw := string(out)
	start := strings.Index(raw, "項次")
	end := strings.Index(raw, "小計 (材料與工資)")
	table := raw[start:end]

	result, err := ValidateItemsFile(newMemFile([]byte(table)), "export.csv")
	if err != nil {
		t.Fatalf("ValidateItemsFile() error = %v", err)
	}
	if result.ValidRows != 1 {
		t.Fatalf("valid rows = %d, want 1", result.ValidRows)
	}
	it := result.Items[0]
	if it.Name != "電線" || it.Quantity != 3 || it.MarketPrice != 1200 {
		t.Errorf("round-tripped item = %+v", it)
	}
}

package services

import (
	"encoding/csv"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ValidationError represents a single field-level error on one row.
type ValidationError struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ImportResult is returned after parsing and validating an uploaded
// materials list.
type ImportResult struct {
	TotalRows int               `json:"total_rows"`
	ValidRows int               `json:"valid_rows"`
	ErrorRows int               `json:"error_rows"`
	Errors    []ValidationError `json:"errors"`
	Items     []Item            `json:"-"`
	FileName  string            `json:"-"`
}

// importField maps recognized column header labels to item fields. Both the
// Chinese table labels and plain English names are accepted.
var importFieldLabels = map[string]ItemField{
	"名稱":          FieldName,
	"品項":          FieldName,
	"工程品項名稱":      FieldName,
	"name":        FieldName,
	"規格":          FieldSpec,
	"詳細規格 / 型號":   FieldSpec,
	"型號":          FieldSpec,
	"spec":        FieldSpec,
	"數量":          FieldQuantity,
	"quantity":    FieldQuantity,
	"單位":          FieldUnit,
	"unit":        FieldUnit,
	"單價":          FieldMarketPrice,
	"市場單價":        FieldMarketPrice,
	"price":       FieldMarketPrice,
	"marketprice": FieldMarketPrice,
	"廠牌":          FieldBrand,
	"brand":       FieldBrand,
	"備註":          FieldRemarks,
	"remarks":     FieldRemarks,
	"供應商":         FieldSupplier,
	"supplier":    FieldSupplier,
}

// parseCSV reads a CSV file and returns headers + data rows. A UTF-8 BOM,
// as written by our own export, is tolerated.
func parseCSV(file io.Reader) ([]string, [][]string, error) {
	reader := csv.NewReader(file)
	reader.TrimLeadingSpace = true
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	allRows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(allRows) < 2 {
		return nil, nil, fmt.Errorf("file must contain a header row and at least one data row")
	}

	headers := allRows[0]
	if len(headers) > 0 {
		headers[0] = strings.TrimPrefix(headers[0], "\uFEFF")
	}
	return headers, allRows[1:], nil
}

// parseExcel reads an xlsx file and returns headers + data rows from the
// first sheet.
func parseExcel(file multipart.File) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet: %w", err)
	}
	if len(rows) < 2 {
		return nil, nil, fmt.Errorf("file must contain a header row and at least one data row")
	}

	return rows[0], rows[1:], nil
}

// mapHeadersToFields maps uploaded column headers to item fields. Returns an
// ordered list (empty string = unrecognized column) plus the unrecognized
// header labels.
func mapHeadersToFields(headers []string) ([]ItemField, []string) {
	mapped := make([]ItemField, len(headers))
	var unrecognized []string

	for i, h := range headers {
		norm := strings.ToLower(strings.TrimSpace(h))
		if field, ok := importFieldLabels[norm]; ok {
			mapped[i] = field
		} else {
			mapped[i] = ""
			unrecognized = append(unrecognized, h)
		}
	}
	return mapped, unrecognized
}

// ValidateItemsFile parses and validates an uploaded materials list
// (.csv or .xlsx). Valid rows become ready-to-insert items with fresh ids;
// rows with errors are reported but never installed.
func ValidateItemsFile(file multipart.File, fileName string) (*ImportResult, error) {
	var headers []string
	var dataRows [][]string
	var err error

	lowerName := strings.ToLower(fileName)
	switch {
	case strings.HasSuffix(lowerName, ".csv"):
		headers, dataRows, err = parseCSV(file)
	case strings.HasSuffix(lowerName, ".xlsx"):
		headers, dataRows, err = parseExcel(file)
	default:
		return nil, fmt.Errorf("unsupported file format: must be .csv or .xlsx")
	}
	if err != nil {
		return nil, err
	}

	columnFields, _ := mapHeadersToFields(headers)

	nameMapped := false
	for _, f := range columnFields {
		if f == FieldName {
			nameMapped = true
			break
		}
	}
	if !nameMapped {
		return nil, fmt.Errorf("no 名稱/name column found in %q", fileName)
	}

	result := &ImportResult{
		TotalRows: len(dataRows),
		FileName:  fileName,
	}

	for rowIdx, row := range dataRows {
		rowNum := rowIdx + 2 // 1-indexed, +1 for the header row
		var rowErrors []ValidationError

		item := NewItem()
		item.Name = ""
		item.Unit = ""

		for colIdx, field := range columnFields {
			if field == "" {
				continue
			}
			value := ""
			if colIdx < len(row) {
				value = strings.TrimSpace(row[colIdx])
			}

			switch field {
			case FieldQuantity, FieldMarketPrice:
				if value == "" {
					continue
				}
				num, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", ""), 64)
				if err != nil {
					rowErrors = append(rowErrors, ValidationError{
						Row:     rowNum,
						Field:   string(field),
						Message: fmt.Sprintf("%q is not a number", value),
					})
					continue
				}
				if num < 0 {
					rowErrors = append(rowErrors, ValidationError{
						Row:     rowNum,
						Field:   string(field),
						Message: "must be zero or greater",
					})
					continue
				}
				if field == FieldQuantity {
					item.Quantity = num
				} else {
					item.MarketPrice = num
				}
			default:
				item = UpdateItem([]Item{item}, item.ID, field, value)[0]
			}
		}

		if item.Name == "" {
			rowErrors = append(rowErrors, ValidationError{
				Row:     rowNum,
				Field:   string(FieldName),
				Message: "名稱 is required",
			})
		}
		if item.Unit == "" {
			item.Unit = "式"
		}

		if len(rowErrors) > 0 {
			result.Errors = append(result.Errors, rowErrors...)
			result.ErrorRows++
			continue
		}

		result.ValidRows++
		result.Items = append(result.Items, item)
	}

	return result, nil
}

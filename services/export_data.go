package services

// ExportRow represents a single line item row in a quote export.
type ExportRow struct {
	Index       int
	Name        string
	Spec        string
	Quantity    float64
	Unit        string
	MarketPrice float64
	LineTotal   float64
	Brand       string
	Remarks     string
	Supplier    string
}

// ExportData holds everything a quote export needs: header info, the
// numbered rows, the staged totals and the citations.
type ExportData struct {
	ProjectName   string
	VendorName    string
	VendorContact string
	VendorPhone   string
	ClientContact string
	ClientPhone   string
	ClientTaxID   string

	ReferenceNumber string
	QuoteDate       string

	Rows []ExportRow

	ManagementRate float64
	TaxRate        float64
	Totals         QuoteTotals

	Sources []GroundingSource
}

// Title returns the document heading, falling back to the generic one when
// no project name was entered.
func (d ExportData) Title() string {
	if d.ProjectName != "" {
		return d.ProjectName
	}
	return "水電工程估價單"
}

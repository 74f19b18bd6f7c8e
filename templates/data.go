// Package templates holds the templ components and their view data structs.
// The .templ sources are compiled with `templ generate` (see Makefile).
package templates

// QuoteListItem is one row on the quote list page.
type QuoteListItem struct {
	ID              string
	ProjectName     string
	ReferenceNumber string
	QuoteDate       string
	ItemCount       int
	GrandTotal      string
}

// QuoteListData drives the quote list page.
type QuoteListData struct {
	Items       []QuoteListItem
	TotalQuotes int
}

// HeaderFields carries the editable quote header values.
type HeaderFields struct {
	ProjectName   string
	VendorName    string
	VendorContact string
	VendorPhone   string
	ClientContact string
	ClientPhone   string
	ClientTaxID   string
}

// ItemView is one editable row of the item table.
type ItemView struct {
	ID          string
	Name        string
	Spec        string
	Quantity    float64
	Unit        string
	MarketPrice float64
	LineTotal   string
	Brand       string
	Remarks     string
	Supplier    string
	SourceURL   string

	// First/Last disable the move buttons at the list boundaries.
	First bool
	Last  bool
}

// TotalsView carries the formatted staged totals for the table footer.
type TotalsView struct {
	Subtotal       string
	ManagementFee  string
	Tax            string
	GrandTotal     string
	ManagementRate float64
	TaxRate        float64
}

// SourceView is one market price citation.
type SourceView struct {
	Title string
	URI   string
}

// QuoteViewData drives the quote editor page and its table partial.
type QuoteViewData struct {
	ID              string
	ReferenceNumber string
	QuoteDate       string
	Header          HeaderFields
	Items           []ItemView
	Totals          TotalsView
	Sources         []SourceView
	UnitOptions     []string
	RateOptions     []int
	Offline         bool
}

// ImportRowError is one validation failure shown on the import page.
type ImportRowError struct {
	Row     int
	Field   string
	Message string
}

// ImportResultView summarizes an upload validation run.
type ImportResultView struct {
	FileName  string
	TotalRows int
	ValidRows int
	ErrorRows int
	Errors    []ImportRowError
}

// ImportPageData drives the item import page.
type ImportPageData struct {
	QuoteID     string
	ProjectName string
	Result      *ImportResultView
}

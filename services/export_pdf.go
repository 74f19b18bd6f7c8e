package services

import (
	"fmt"
	"os"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/johnfercher/maroto/v2/pkg/repository"
)

// cjkFontPath is loaded when present so the built-in latin fonts do not
// garble the CJK labels. Drop NotoSansTC-Regular.ttf into fonts/ to enable.
const cjkFontPath = "fonts/NotoSansTC-Regular.ttf"
const cjkFontFamily = "notosans-tc"

// GeneratePDF renders the quote to an A4 landscape document using maroto/v2
// and returns the raw PDF bytes.
func GeneratePDF(data ExportData) ([]byte, error) {
	builder := config.NewBuilder().
		WithOrientation(orientation.Horizontal).
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).
		WithTopMargin(10).
		WithRightMargin(10).
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
			Size:    7,
			Color:   &props.Color{Red: 120, Green: 120, Blue: 120},
		})

	if _, err := os.Stat(cjkFontPath); err == nil {
		fonts, err := repository.New().
			AddUTF8Font(cjkFontFamily, fontstyle.Normal, cjkFontPath).
			AddUTF8Font(cjkFontFamily, fontstyle.Bold, cjkFontPath).
			AddUTF8Font(cjkFontFamily, fontstyle.Italic, cjkFontPath).
			AddUTF8Font(cjkFontFamily, fontstyle.BoldItalic, cjkFontPath).
			Load()
		if err != nil {
			return nil, fmt.Errorf("load CJK font: %w", err)
		}
		builder = builder.
			WithCustomFonts(fonts).
			WithDefaultFont(&props.Font{Family: cjkFontFamily})
	}

	m := maroto.New(builder.Build())

	addQuoteHeader(m, data)
	addItemTableHeader(m)
	for _, r := range data.Rows {
		addItemRow(m, r)
	}
	addTotals(m, data)
	addSourcesAndNotes(m, data)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}
	return doc.GetBytes(), nil
}

// addQuoteHeader adds the title plus vendor and client blocks.
func addQuoteHeader(m core.Maroto, data ExportData) {
	m.AddRows(
		row.New(12).Add(
			col.New(12).Add(
				text.New(data.Title(), props.Text{
					Size:  16,
					Style: fontstyle.Bold,
					Align: align.Center,
				}),
			),
		),
	)

	info := props.Text{
		Size:  9,
		Align: align.Left,
		Color: &props.Color{Red: 80, Green: 80, Blue: 80},
	}
	infoRight := info
	infoRight.Align = align.Right

	m.AddRows(
		row.New(6).Add(
			col.New(6).Add(
				text.New(fmt.Sprintf("承包商：%s", data.VendorName), info),
			),
			col.New(6).Add(
				text.New(fmt.Sprintf("報價編號：%s", data.ReferenceNumber), infoRight),
			),
		),
		row.New(6).Add(
			col.New(6).Add(
				text.New(fmt.Sprintf("負責人/聯絡：%s (%s)", data.VendorContact, data.VendorPhone), info),
			),
			col.New(6).Add(
				text.New(fmt.Sprintf("報價日期：%s", data.QuoteDate), infoRight),
			),
		),
		row.New(6).Add(
			col.New(6).Add(
				text.New(fmt.Sprintf("業主：%s (%s)", data.ClientContact, data.ClientPhone), info),
			),
			col.New(6).Add(
				text.New(clientTaxLine(data), infoRight),
			),
		),
	)

	// Spacer
	m.AddRows(row.New(4))
}

func clientTaxLine(data ExportData) string {
	if data.ClientTaxID == "" {
		return ""
	}
	return fmt.Sprintf("統編：%s", data.ClientTaxID)
}

// addItemTableHeader adds the column header row for the item table.
func addItemTableHeader(m core.Maroto) {
	headerBg := &props.Color{Red: 33, Green: 37, Blue: 41}
	headerText := props.Text{
		Size:  8,
		Style: fontstyle.Bold,
		Align: align.Center,
		Color: &props.Color{Red: 255, Green: 255, Blue: 255},
	}
	headerTextLeft := headerText
	headerTextLeft.Align = align.Left

	headerCell := props.Cell{BackgroundColor: headerBg}

	m.AddRows(
		row.New(8).Add(
			col.New(1).Add(
				text.New("項次", headerText),
			).WithStyle(&headerCell),
			col.New(2).Add(
				text.New("工程品項名稱", headerTextLeft),
			).WithStyle(&headerCell),
			col.New(2).Add(
				text.New("詳細規格 / 型號", headerTextLeft),
			).WithStyle(&headerCell),
			col.New(1).Add(
				text.New("數量", headerText),
			).WithStyle(&headerCell),
			col.New(1).Add(
				text.New("單位", headerText),
			).WithStyle(&headerCell),
			col.New(2).Add(
				text.New("市場單價", headerText),
			).WithStyle(&headerCell),
			col.New(2).Add(
				text.New("小計", headerText),
			).WithStyle(&headerCell),
			col.New(1).Add(
				text.New("廠牌 / 備註", headerTextLeft),
			).WithStyle(&headerCell),
		),
	)
}

// addItemRow adds one line item to the table.
func addItemRow(m core.Maroto, r ExportRow) {
	baseText := props.Text{
		Size:  7,
		Align: align.Center,
	}
	leftText := baseText
	leftText.Align = align.Left
	rightText := baseText
	rightText.Align = align.Right

	brandRemarks := r.Brand
	if r.Remarks != "" {
		if brandRemarks != "" {
			brandRemarks += " / "
		}
		brandRemarks += r.Remarks
	}

	m.AddRows(
		row.New(7).Add(
			col.New(1).Add(text.New(fmt.Sprintf("%d", r.Index), baseText)),
			col.New(2).Add(text.New(r.Name, leftText)),
			col.New(2).Add(text.New(r.Spec, leftText)),
			col.New(1).Add(text.New(formatQty(r.Quantity), rightText)),
			col.New(1).Add(text.New(r.Unit, baseText)),
			col.New(2).Add(text.New(FormatNTD(r.MarketPrice), rightText)),
			col.New(2).Add(text.New(FormatNTD(r.LineTotal), rightText)),
			col.New(1).Add(text.New(brandRemarks, leftText)),
		),
	)
}

// addTotals adds the staged totals band at the bottom of the table.
func addTotals(m core.Maroto, data ExportData) {
	m.AddRows(row.New(4))

	totalsBg := &props.Color{Red: 240, Green: 240, Blue: 240}
	totalsCell := &props.Cell{BackgroundColor: totalsBg}

	labelStyle := props.Text{
		Size:  9,
		Style: fontstyle.Bold,
		Align: align.Right,
	}
	valueStyle := labelStyle

	addTotalRow := func(label string, value float64) {
		m.AddRows(
			row.New(8).Add(
				col.New(8).Add(
					text.New(label, labelStyle),
				).WithStyle(totalsCell),
				col.New(4).Add(
					text.New(FormatNTD(value), valueStyle),
				).WithStyle(totalsCell),
			),
		)
	}

	addTotalRow("小計 (材料與工資)", data.Totals.Subtotal)
	addTotalRow(fmt.Sprintf("工程管理費 (%s%%)", formatQty(data.ManagementRate)), data.Totals.ManagementFee)
	addTotalRow(fmt.Sprintf("營業稅 (%s%%)", formatQty(data.TaxRate)), data.Totals.Tax)

	grandBg := &props.Color{Red: 33, Green: 37, Blue: 41}
	grandCell := &props.Cell{BackgroundColor: grandBg}
	grandLabel := props.Text{
		Size:  10,
		Style: fontstyle.Bold,
		Align: align.Right,
		Color: &props.Color{Red: 255, Green: 255, Blue: 255},
	}

	m.AddRows(
		row.New(10).Add(
			col.New(8).Add(
				text.New("總計預估金額 (含稅)", grandLabel),
			).WithStyle(grandCell),
			col.New(4).Add(
				text.New(FormatNTD(data.Totals.GrandTotal), grandLabel),
			).WithStyle(grandCell),
		),
	)
}

// addSourcesAndNotes adds the citation list and the fixed disclaimer notes.
func addSourcesAndNotes(m core.Maroto, data ExportData) {
	small := props.Text{
		Size:  7,
		Align: align.Left,
		Color: &props.Color{Red: 100, Green: 100, Blue: 100},
	}

	if len(data.Sources) > 0 {
		m.AddRows(row.New(6))
		m.AddRows(
			row.New(5).Add(
				col.New(12).Add(
					text.New("市場搜尋參考來源", props.Text{
						Size:  8,
						Style: fontstyle.Bold,
						Align: align.Left,
					}),
				),
			),
		)
		for _, s := range data.Sources {
			label := s.Title
			if s.URI != "" && s.URI != "#" {
				label = fmt.Sprintf("%s — %s", s.Title, s.URI)
			}
			m.AddRows(
				row.New(4).Add(
					col.New(12).Add(text.New(label, small)),
				),
			)
		}
	}

	m.AddRows(row.New(6))
	notes := []string{
		"• 本估價單內容僅供參考，實際工程項目以合約為準。",
		"• 市場價格變動頻繁，若距報價日超過 7 天請重新詢價。",
		"• 以上單價由 AI 搜尋市場參考價生成，實際價格請與材料商確認。",
	}
	for _, n := range notes {
		m.AddRows(
			row.New(4).Add(
				col.New(12).Add(text.New(n, small)),
			),
		)
	}
}

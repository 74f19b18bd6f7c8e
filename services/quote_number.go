package services

import (
	"fmt"
	"time"

	"github.com/pocketbase/pocketbase"
)

// formatQuoteNumber constructs the reference number string from components.
func formatQuoteNumber(day string, sequence int) string {
	return fmt.Sprintf("EST-%s-%03d", day, sequence)
}

// GenerateQuoteNumber creates the next quote reference number.
// Format: EST-{yyyymmdd}-{sequence}, with the sequence restarting each day.
func GenerateQuoteNumber(app *pocketbase.PocketBase, now time.Time) (string, error) {
	day := now.Format("20060102")
	prefix := fmt.Sprintf("EST-%s-", day)

	existing, err := app.FindRecordsByFilter(
		"quotes",
		"reference_number ~ {:prefix}",
		"",
		0,
		0,
		map[string]any{"prefix": prefix + "%"},
	)
	if err != nil {
		// Collection missing or no records yet; start at 1.
		existing = nil
	}

	return formatQuoteNumber(day, len(existing)+1), nil
}

package collections

import (
	"fmt"
	"log"

	"github.com/pocketbase/pocketbase"
)

// MigrateBlankReferenceNumbers finds all quote records that have no
// reference number assigned and backfills one derived from the record's
// creation date. Quotes created before reference numbers existed keep their
// position in lists and exports this way. Safe to call on every startup --
// returns early if nothing to migrate.
func MigrateBlankReferenceNumbers(app *pocketbase.PocketBase) error {
	quotesCol, err := app.FindCollectionByNameOrId("quotes")
	if err != nil {
		return fmt.Errorf("migrate: could not find quotes collection: %w", err)
	}

	blanks, err := app.FindRecordsByFilter(
		quotesCol,
		"reference_number = ''",
		"created",
		0,
		0,
		nil,
	)
	if err != nil {
		return fmt.Errorf("migrate: could not query quotes without reference numbers: %w", err)
	}

	if len(blanks) == 0 {
		return nil
	}

	log.Printf("migrate: found %d quote(s) without a reference number -- backfilling...\n", len(blanks))

	// Sequence numbers restart per creation day, matching how new quotes
	// are numbered. Counters start above any numbers already taken that day.
	perDay := map[string]int{}
	for _, q := range blanks {
		day := q.GetDateTime("created").Time().Format("20060102")
		if _, ok := perDay[day]; !ok {
			taken, err := app.FindRecordsByFilter(
				quotesCol,
				"reference_number ~ {:prefix}",
				"", 0, 0,
				map[string]any{"prefix": fmt.Sprintf("EST-%s-%%", day)},
			)
			if err != nil {
				return fmt.Errorf("migrate: could not count existing references for %s: %w", day, err)
			}
			perDay[day] = len(taken)
		}
		perDay[day]++
		ref := fmt.Sprintf("EST-%s-%03d", day, perDay[day])

		q.Set("reference_number", ref)
		if err := app.Save(q); err != nil {
			log.Printf("migrate: failed to backfill quote %s: %v\n", q.Id, err)
			continue
		}
		log.Printf("migrate: quote %s -> %s\n", q.Id, ref)
	}

	log.Println("migrate: reference number backfill complete.")
	return nil
}

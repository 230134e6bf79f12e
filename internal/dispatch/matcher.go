package dispatch

import (
	"fmt"
	"sort"
	"strings"
)

// placeholder used in skip entries when no recipient address is known.
const noRecipient = "-"

// Reconcile matches sheet rows against the file index, in row order.
// A file may be claimed by at most one row; the first row to match wins
// and later rows matching the same file are skipped. Files are scanned
// in lexicographic name order so matching is deterministic regardless
// of how the index was produced. After all rows, every unclaimed file
// is reported as skipped, so both sides of the reconciliation are
// accounted for.
//
// Matching policy: a file is eligible for a row when the file name
// starts with the row's unit identifier. Prefix matching (rather than
// substring) keeps unit "5" from claiming "15_report.pdf".
func Reconcile(rows []SheetRow, files []FileEntry) (ready []ReadyItem, skipped []SkippedItem) {
	ordered := make([]FileEntry, len(files))
	copy(ordered, files)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Name < ordered[j].Name })

	claimed := make(map[string]bool, len(ordered))

	for _, row := range rows {
		unit := strings.TrimSpace(row.UnitID)
		recipients := ParseRecipients(row.Email)
		if len(recipients) == 0 {
			skipped = append(skipped, SkippedItem{
				Recipients: []string{noRecipient},
				Reason:     fmt.Sprintf("missing or invalid email for unit %s", unit),
			})
			continue
		}

		match, found := firstMatch(unit, ordered)
		if !found {
			skipped = append(skipped, SkippedItem{
				Recipients: recipients,
				Reason:     fmt.Sprintf("no PDF found for unit %s", unit),
			})
			continue
		}

		if claimed[match.Name] {
			skipped = append(skipped, SkippedItem{
				Recipients: recipients,
				Reason:     fmt.Sprintf("file %s already matched to another row", match.Name),
			})
			continue
		}

		claimed[match.Name] = true
		ready = append(ready, ReadyItem{
			UnitID:     unit,
			RefCode:    strings.TrimSpace(row.RefCode),
			Recipients: recipients,
			FileName:   match.Name,
			FileID:     match.ID,
		})
	}

	for _, f := range ordered {
		if !claimed[f.Name] {
			skipped = append(skipped, SkippedItem{
				Recipients: []string{noRecipient},
				Reason:     fmt.Sprintf("file %s not matched to any row", f.Name),
			})
		}
	}

	return ready, skipped
}

func firstMatch(unit string, files []FileEntry) (FileEntry, bool) {
	if unit == "" {
		return FileEntry{}, false
	}
	for _, f := range files {
		if strings.HasPrefix(f.Name, unit) {
			return f, true
		}
	}
	return FileEntry{}, false
}

// ParseRecipients splits a raw recipient cell on commas and semicolons,
// trimming whitespace and dropping empty entries.
func ParseRecipients(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';'
	})
	var out []string
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

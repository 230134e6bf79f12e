package dispatch

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRecipients(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"single", "a@x.com", []string{"a@x.com"}},
		{"semicolons", "a@x.com;b@y.com", []string{"a@x.com", "b@y.com"}},
		{"comma with space", "a@x.com, b@y.com", []string{"a@x.com", "b@y.com"}},
		{"mixed separators", "a@x.com; b@y.com,c@z.com", []string{"a@x.com", "b@y.com", "c@z.com"}},
		{"trailing separator", "a@x.com;", []string{"a@x.com"}},
		{"empty", "", nil},
		{"whitespace only", "   ", nil},
		{"separators only", ";,;", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseRecipients(tt.raw))
		})
	}
}

func TestReconcile_PrefixMatching(t *testing.T) {
	rows := []SheetRow{
		{UnitID: "5", Email: "five@x.com", RefCode: "K5"},
		{UnitID: "15", Email: "fifteen@x.com", RefCode: "K15"},
	}
	files := []FileEntry{
		{Name: "15_report.pdf", ID: "id15"},
		{Name: "5_report.pdf", ID: "id5"},
	}

	ready, skipped := Reconcile(rows, files)

	require.Len(t, ready, 2)
	assert.Empty(t, skipped)
	// Unit "5" must not claim "15_report.pdf" even though it sorts first.
	assert.Equal(t, "5_report.pdf", ready[0].FileName)
	assert.Equal(t, "id5", ready[0].FileID)
	assert.Equal(t, "15_report.pdf", ready[1].FileName)
}

func TestReconcile_FirstClaimWins(t *testing.T) {
	// Scenario from the run history: two rows for the same unit, one file.
	rows := []SheetRow{
		{UnitID: "5", Email: "a@x.com", RefCode: "K5"},
		{UnitID: "5", Email: "b@y.com", RefCode: "K5b"},
	}
	files := []FileEntry{{Name: "5_report.pdf", ID: "id1"}}

	ready, skipped := Reconcile(rows, files)

	require.Len(t, ready, 1)
	assert.Equal(t, "5", ready[0].UnitID)
	assert.Equal(t, "5_report.pdf", ready[0].FileName)
	assert.Equal(t, []string{"a@x.com"}, ready[0].Recipients)

	require.Len(t, skipped, 1)
	assert.Equal(t, []string{"b@y.com"}, skipped[0].Recipients)
	assert.Contains(t, skipped[0].Reason, "already matched")
}

func TestReconcile_MissingEmail(t *testing.T) {
	rows := []SheetRow{
		{UnitID: "7", Email: "", RefCode: "K7"},
		{UnitID: "8", Email: "  ", RefCode: "K8"},
	}
	files := []FileEntry{{Name: "7_report.pdf", ID: "id7"}}

	ready, skipped := Reconcile(rows, files)

	assert.Empty(t, ready)
	require.Len(t, skipped, 3) // two rows + the unclaimed file
	assert.Equal(t, []string{"-"}, skipped[0].Recipients)
	assert.Contains(t, skipped[0].Reason, "missing or invalid email for unit 7")
	assert.Contains(t, skipped[1].Reason, "missing or invalid email for unit 8")
	assert.Contains(t, skipped[2].Reason, "file 7_report.pdf not matched to any row")
}

func TestReconcile_NoFileForRow(t *testing.T) {
	rows := []SheetRow{{UnitID: "9", Email: "nine@x.com", RefCode: "K9"}}

	ready, skipped := Reconcile(rows, nil)

	assert.Empty(t, ready)
	require.Len(t, skipped, 1)
	assert.Equal(t, []string{"nine@x.com"}, skipped[0].Recipients)
	assert.Contains(t, skipped[0].Reason, "no PDF found for unit 9")
}

func TestReconcile_EveryEntityAccounted(t *testing.T) {
	rows := []SheetRow{
		{UnitID: "1", Email: "one@x.com", RefCode: "K1"},
		{UnitID: "2", Email: "", RefCode: "K2"},
		{UnitID: "3", Email: "three@x.com", RefCode: "K3"},
		{UnitID: "1", Email: "dup@x.com", RefCode: "K1b"},
	}
	files := []FileEntry{
		{Name: "1_invoice.pdf", ID: "f1"},
		{Name: "2_invoice.pdf", ID: "f2"},
		{Name: "orphan.pdf", ID: "f3"},
	}

	ready, skipped := Reconcile(rows, files)

	// Every row lands in exactly one bucket.
	assert.Equal(t, len(rows), len(ready)+len(skipped)-unmatchedFiles(skipped))

	// Every file is either claimed or reported unmatched.
	claimed := map[string]bool{}
	for _, r := range ready {
		assert.False(t, claimed[r.FileName], "file %s claimed twice", r.FileName)
		claimed[r.FileName] = true
	}
	unmatched := 0
	for _, s := range skipped {
		if len(s.Recipients) == 1 && s.Recipients[0] == "-" && strings.Contains(s.Reason, "not matched to any row") {
			unmatched++
		}
	}
	assert.Equal(t, len(files), len(claimed)+unmatched)
}

func TestReconcile_DeterministicOrder(t *testing.T) {
	rows := []SheetRow{{UnitID: "10", Email: "ten@x.com", RefCode: "K10"}}
	// Two files both prefix-match unit 10; the lexicographically first
	// must win regardless of input order.
	forward := []FileEntry{{Name: "10_a.pdf", ID: "a"}, {Name: "10_b.pdf", ID: "b"}}
	reversed := []FileEntry{{Name: "10_b.pdf", ID: "b"}, {Name: "10_a.pdf", ID: "a"}}

	readyA, _ := Reconcile(rows, forward)
	readyB, _ := Reconcile(rows, reversed)

	require.Len(t, readyA, 1)
	require.Len(t, readyB, 1)
	assert.Equal(t, "10_a.pdf", readyA[0].FileName)
	assert.Equal(t, readyA[0].FileName, readyB[0].FileName)
}

func unmatchedFiles(skipped []SkippedItem) int {
	n := 0
	for _, s := range skipped {
		if strings.Contains(s.Reason, "not matched to any row") {
			n++
		}
	}
	return n
}

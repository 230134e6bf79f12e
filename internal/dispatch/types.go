package dispatch

import (
	"context"
	"fmt"
)

// SheetRow is one data row from the client's spreadsheet.
type SheetRow struct {
	UnitID  string `json:"apt_number"` // matched against attachment filenames
	RefCode string `json:"kr_nr"`      // secondary reference used in templating
	Email   string `json:"email"`      // raw recipient field, comma/semicolon separated
}

// FileEntry is one attachment candidate from the client's drive folder.
type FileEntry struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// ReadyItem is a row that has claimed a file and is ready to be sent.
type ReadyItem struct {
	UnitID     string   `json:"apt_number"`
	RefCode    string   `json:"kr_nr"`
	Recipients []string `json:"recipients"`
	FileName   string   `json:"pdf"`
	FileID     string   `json:"-"`
}

// SkippedItem records why a row or file was left out of the run.
// Recipients holds the parsed addresses when known, otherwise a
// placeholder ("-" for rows without a usable address or unmatched
// files, "ALL" when the whole client is disabled).
type SkippedItem struct {
	Recipients []string `json:"recipients"`
	Reason     string   `json:"reason"`
}

// PreviewResult is the side-effect-free answer to "what would a run do".
type PreviewResult struct {
	Ready   []ReadyItem   `json:"ready"`
	Skipped []SkippedItem `json:"skipped"`
}

// Outcome is the final ledger of an executed run. Every row and every
// file of the run lands in exactly one bucket.
type Outcome struct {
	Sent    [][]string    `json:"sent"`
	Skipped []SkippedItem `json:"skipped"`
}

// RowSource fetches tabular row data for a client.
type RowSource interface {
	Rows(ctx context.Context, spreadsheetID, sheetName string) ([]SheetRow, error)
}

// FileStore lists the attachment candidates in a folder and fetches
// file content by id.
type FileStore interface {
	ListPDFs(ctx context.Context, folderID string) ([]FileEntry, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// Message is a single outbound email.
type Message struct {
	To         []string
	Bcc        string
	Subject    string
	Body       string
	Attachment string // local file path, empty for no attachment
}

// Sender delivers messages over a connection that may be reused across
// a run. Reset drops the current connection so the next Send dials a
// fresh one.
type Sender interface {
	Send(ctx context.Context, msg *Message) error
	Reset()
	Close() error
}

// RemoteFetchError wraps a spreadsheet or file-index fetch failure.
// These are fatal for the run: no partial data is matched against.
type RemoteFetchError struct {
	Op  string
	Err error
}

func (e *RemoteFetchError) Error() string {
	return fmt.Sprintf("remote fetch (%s): %v", e.Op, e.Err)
}

func (e *RemoteFetchError) Unwrap() error { return e.Err }

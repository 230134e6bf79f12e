package dispatch

import (
	"context"
	"time"

	"github.com/halduskeskus/postiljon/internal/config"
	"github.com/halduskeskus/postiljon/internal/pkg/logger"
)

// Pipeline wires the capabilities of a run. The Google capabilities
// are built per run from the client's own credentials, so their
// constructors are injected rather than prebuilt instances; there are
// no process-wide sessions.
type Pipeline struct {
	// Sheets builds the spreadsheet capability for a credential file.
	Sheets func(ctx context.Context, credentialsPath string) (RowSource, error)
	// Files builds the drive capability for a credential file.
	Files func(ctx context.Context, credentialsPath string) (FileStore, error)
	// Sender builds the outbound mail capability for a client.
	Sender func(client *config.Client) Sender

	// Transient classifies a send error as connection-level (retry on
	// a fresh connection) vs permanent (give up). Nil means never retry.
	Transient func(error) bool

	// Sleep and Now are injectable for tests; nil means the real thing.
	Sleep func(time.Duration)
	Now   func() time.Time
}

// Preview fetches rows and the file index and reconciles them without
// any side effects. Safe to call repeatedly.
func (p *Pipeline) Preview(ctx context.Context, client *config.Client) (*PreviewResult, error) {
	if err := client.Validate(); err != nil {
		return nil, err
	}

	rows, _, files, err := p.fetch(ctx, client)
	if err != nil {
		return nil, err
	}

	ready, skipped := Reconcile(rows, files)
	return &PreviewResult{Ready: ready, Skipped: skipped}, nil
}

// Execute runs the full pipeline: reconcile, deliver, report. Config
// and fetch failures abort the call; everything at the row/item level
// lands in the outcome's skip ledger instead. A control-email failure
// is logged, and returned alongside the finalized outcome only when
// the client opted into strict reporting.
func (p *Pipeline) Execute(ctx context.Context, client *config.Client) (*Outcome, error) {
	if err := client.Validate(); err != nil {
		return nil, err
	}

	if !client.Active {
		return &Outcome{
			Skipped: []SkippedItem{{
				Recipients: []string{"ALL"},
				Reason:     "client is not active, dispatch disabled",
			}},
		}, nil
	}

	rows, store, files, err := p.fetch(ctx, client)
	if err != nil {
		return nil, err
	}

	ready, matchSkipped := Reconcile(rows, files)
	logger.Info("reconciled run",
		"client", client.Login,
		"rows", len(rows),
		"files", len(files),
		"ready", len(ready),
		"skipped", len(matchSkipped))

	sender := p.Sender(client)
	defer sender.Close()

	delivered, err := p.deliver(ctx, client, store, sender, ready)
	if err != nil {
		return nil, err
	}

	outcome := &Outcome{
		Sent:    delivered.Sent,
		Skipped: append(matchSkipped, delivered.Skipped...),
	}

	if err := p.sendReport(ctx, client, sender, outcome); err != nil {
		logger.Error("control email failed",
			"client", client.Login,
			"control_email", client.ControlEmail,
			"error", err.Error())
		if client.StrictReport {
			return outcome, err
		}
	}

	return outcome, nil
}

func (p *Pipeline) fetch(ctx context.Context, client *config.Client) ([]SheetRow, FileStore, []FileEntry, error) {
	src, err := p.Sheets(ctx, client.CredentialsPath)
	if err != nil {
		return nil, nil, nil, &RemoteFetchError{Op: "sheet session", Err: err}
	}
	rows, err := src.Rows(ctx, client.SheetID, client.SheetName)
	if err != nil {
		return nil, nil, nil, err
	}

	store, err := p.Files(ctx, client.CredentialsPath)
	if err != nil {
		return nil, nil, nil, &RemoteFetchError{Op: "drive session", Err: err}
	}
	files, err := store.ListPDFs(ctx, client.FolderID)
	if err != nil {
		return nil, nil, nil, err
	}

	return rows, store, files, nil
}

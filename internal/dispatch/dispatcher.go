package dispatch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/halduskeskus/postiljon/internal/config"
	"github.com/halduskeskus/postiljon/internal/pkg/logger"
)

// retryBackoff is how long to wait before the single retry on a
// transient send failure.
const retryBackoff = 5 * time.Second

// deliver sends every ready item in order and returns the delivery
// ledger. Item-level failures (download or send) become skip entries;
// only temp-directory creation can fail the whole call. The downloaded
// attachments live under a run-scoped temp directory that is removed
// before deliver returns, whatever happened in the loop.
func (p *Pipeline) deliver(ctx context.Context, client *config.Client, store FileStore, sender Sender, ready []ReadyItem) (*Outcome, error) {
	outcome := &Outcome{}
	if len(ready) == 0 {
		return outcome, nil
	}

	tmpDir, err := os.MkdirTemp("", fmt.Sprintf("postiljon-%s-%s-", client.Login, uuid.NewString()[:8]))
	if err != nil {
		return nil, fmt.Errorf("create attachment dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	sent := 0
	for i, item := range ready {
		path, err := p.fetchAttachment(ctx, store, tmpDir, item)
		if err != nil {
			outcome.Skipped = append(outcome.Skipped, SkippedItem{
				Recipients: item.Recipients,
				Reason:     fmt.Sprintf("download failed for %s: %v", item.FileName, err),
			})
			continue
		}

		msg := &Message{
			To:         item.Recipients,
			Bcc:        client.EmailBCC,
			Subject:    client.EmailSubject,
			Body:       RenderBody(client.EmailBody, item.RefCode, client.AddressPrefix),
			Attachment: path,
		}

		start := time.Now()
		if err := p.sendWithRetry(ctx, sender, msg); err != nil {
			outcome.Skipped = append(outcome.Skipped, SkippedItem{
				Recipients: item.Recipients,
				Reason:     fmt.Sprintf("send failed: %v", err),
			})
			continue
		}

		logger.Info("email sent",
			"client", client.Login,
			"unit", item.UnitID,
			"recipients", fmt.Sprintf("%v", item.Recipients),
			"duration_ms", time.Since(start).Milliseconds())

		outcome.Sent = append(outcome.Sent, item.Recipients)
		sent++

		if i < len(ready)-1 {
			p.pace(client, sender, sent)
		}
	}

	return outcome, nil
}

func (p *Pipeline) fetchAttachment(ctx context.Context, store FileStore, tmpDir string, item ReadyItem) (string, error) {
	data, err := store.Download(ctx, item.FileID)
	if err != nil {
		return "", err
	}
	path := filepath.Join(tmpDir, filepath.Base(item.FileName))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}
	return path, nil
}

// sendWithRetry sends once, and on a transient connection-level failure
// drops the connection, backs off briefly and retries exactly once on a
// fresh connection. Permanent failures (auth, malformed content) are
// returned as-is.
func (p *Pipeline) sendWithRetry(ctx context.Context, sender Sender, msg *Message) error {
	err := sender.Send(ctx, msg)
	if err == nil {
		return nil
	}
	if p.Transient == nil || !p.Transient(err) {
		return err
	}

	logger.Warn("transient send failure, reconnecting", "error", err.Error())
	sender.Reset()
	p.sleep(retryBackoff)

	return sender.Send(ctx, msg)
}

// pace applies the client's rate-limiting knobs after a successful
// send: a fixed delay between items, a longer pause every
// PauseAfterCount sends, and a proactive re-dial every
// ReconnectAfterCount sends.
func (p *Pipeline) pace(client *config.Client, sender Sender, sent int) {
	if client.ReconnectAfterCount > 0 && sent%client.ReconnectAfterCount == 0 {
		sender.Reset()
	}
	if client.PauseAfterCount > 0 && sent%client.PauseAfterCount == 0 {
		logger.Info("rate limit pause", "client", client.Login, "after", sent, "pause", client.Pause().String())
		p.sleep(client.Pause())
		return
	}
	p.sleep(client.SendDelay())
}

func (p *Pipeline) sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	if p.Sleep != nil {
		p.Sleep(d)
		return
	}
	time.Sleep(d)
}

package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/halduskeskus/postiljon/internal/config"
)

// buildReport composes the control email summarizing a finished run.
func buildReport(client *config.Client, outcome *Outcome, now time.Time) (subject, body string) {
	subject = fmt.Sprintf("[REPORT] Dispatch for %s", client.DisplayName)

	var b strings.Builder
	fmt.Fprintf(&b, "Dispatch finished at %s.\n\n", now.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Client: %s\n", client.Login)
	fmt.Fprintf(&b, "Emails sent: %d\n", len(outcome.Sent))
	fmt.Fprintf(&b, "Skipped: %d\n", len(outcome.Skipped))

	if len(outcome.Skipped) > 0 {
		b.WriteString("\nSkip reasons:\n")
		for _, s := range outcome.Skipped {
			fmt.Fprintf(&b, "- %s: %s\n", strings.Join(s.Recipients, ", "), s.Reason)
		}
	}

	return subject, b.String()
}

// sendReport delivers the control email to the client's operator
// address over the same sender used for the run. There is no retry:
// the outcome is already finalized and a report failure must not
// change it.
func (p *Pipeline) sendReport(ctx context.Context, client *config.Client, sender Sender, outcome *Outcome) error {
	subject, body := buildReport(client, outcome, p.now())

	return sender.Send(ctx, &Message{
		To:      []string{client.ControlEmail},
		Subject: subject,
		Body:    body,
	})
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Client is one client's externally supplied configuration record.
// It is immutable for the duration of a run.
type Client struct {
	Login           string `json:"login"`
	Password        string `json:"password"`
	DisplayName     string `json:"display_name"`
	CredentialsPath string `json:"credentials_path"`

	SheetID   string `json:"sheet_id"`
	SheetName string `json:"sheet_name"`
	FolderID  string `json:"folder_id"`

	AddressPrefix string `json:"address_prefix"`
	EmailSubject  string `json:"email_subject"`
	EmailBody     string `json:"email_body"`
	EmailBCC      string `json:"email_bcc"`

	EmailUser     string `json:"email_user"`
	EmailPassword string `json:"email_password"`
	SMTPHost      string `json:"smtp_host"`
	SMTPPort      int    `json:"smtp_port"`

	Active       bool   `json:"active"`
	ControlEmail string `json:"control_email"`

	// Delivery pacing knobs. Zero values are replaced by defaults at
	// load time; an explicit negative value disables the knob.
	SendDelaySeconds    int `json:"send_delay_seconds"`
	PauseAfterCount     int `json:"pause_after_count"`
	PauseSeconds        int `json:"pause_seconds"`
	ReconnectAfterCount int `json:"reconnect_after_count"`

	// StrictReport surfaces a control-email send failure to the caller
	// instead of only logging it.
	StrictReport bool `json:"strict_report"`
}

// SendDelay returns the configured delay between sends
func (c *Client) SendDelay() time.Duration {
	if c.SendDelaySeconds < 0 {
		return 0
	}
	return time.Duration(c.SendDelaySeconds) * time.Second
}

// Pause returns the configured long pause applied every PauseAfterCount sends
func (c *Client) Pause() time.Duration {
	if c.PauseSeconds < 0 {
		return 0
	}
	return time.Duration(c.PauseSeconds) * time.Second
}

// ValidationError reports a missing or invalid required field in a
// client record. It aborts a run before any network call.
type ValidationError struct {
	Login string
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("client %q: missing required field %q", e.Login, e.Field)
}

// Validate checks that every field a run depends on is present.
func (c *Client) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"login", c.Login},
		{"credentials_path", c.CredentialsPath},
		{"sheet_id", c.SheetID},
		{"sheet_name", c.SheetName},
		{"folder_id", c.FolderID},
		{"email_user", c.EmailUser},
		{"email_password", c.EmailPassword},
		{"email_subject", c.EmailSubject},
		{"email_body", c.EmailBody},
		{"control_email", c.ControlEmail},
	}
	for _, f := range required {
		if f.value == "" {
			return &ValidationError{Login: c.Login, Field: f.name}
		}
	}
	return nil
}

func (c *Client) applyDefaults() {
	if c.SMTPHost == "" {
		c.SMTPHost = "smtp.gmail.com"
	}
	if c.SMTPPort == 0 {
		c.SMTPPort = 587
	}
	if c.SendDelaySeconds == 0 {
		c.SendDelaySeconds = 2
	}
	if c.PauseAfterCount == 0 {
		c.PauseAfterCount = 50
	}
	if c.PauseSeconds == 0 {
		c.PauseSeconds = 60
	}
	if c.ReconnectAfterCount == 0 {
		c.ReconnectAfterCount = 20
	}
	if c.DisplayName == "" {
		c.DisplayName = c.Login
	}
}

// LoadClients reads the client registry: a JSON object keyed by login.
// Defaults are applied and every record is validated; a bad record
// fails the whole load so a misconfigured client is caught at startup
// rather than mid-run.
func LoadClients(path string) (map[string]*Client, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read client registry: %w", err)
	}

	var clients map[string]*Client
	if err := json.Unmarshal(data, &clients); err != nil {
		return nil, fmt.Errorf("parse client registry: %w", err)
	}

	for login, c := range clients {
		if c.Login == "" {
			c.Login = login
		}
		c.applyDefaults()
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}

	return clients, nil
}

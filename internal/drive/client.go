// Package drive lists and downloads attachment files from a client's
// Google Drive folder.
package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/halduskeskus/postiljon/internal/dispatch"
)

// Client wraps an authenticated Drive service for one credential file.
type Client struct {
	svc *drive.Service
}

// NewClient builds a Drive client from a service-account JSON key.
func NewClient(ctx context.Context, credentialsPath string) (*Client, error) {
	key, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	cfg, err := google.JWTConfigFromJSON(key, drive.DriveReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}

	svc, err := drive.NewService(ctx, option.WithHTTPClient(cfg.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &Client{svc: svc}, nil
}

// ListPDFs returns the PDF files in the folder, sorted by name so
// downstream matching is deterministic. The listing is the complete
// snapshot for one run; a fetch failure aborts the run rather than
// matching against a partial index.
func (c *Client) ListPDFs(ctx context.Context, folderID string) ([]dispatch.FileEntry, error) {
	query := fmt.Sprintf("'%s' in parents and mimeType='application/pdf' and trashed=false", folderID)

	var entries []dispatch.FileEntry
	pageToken := ""
	for {
		call := c.svc.Files.List().
			Q(query).
			Fields("nextPageToken, files(id, name)").
			PageSize(1000).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		resp, err := call.Do()
		if err != nil {
			return nil, &dispatch.RemoteFetchError{Op: "file index", Err: err}
		}
		for _, f := range resp.Files {
			entries = append(entries, dispatch.FileEntry{Name: f.Name, ID: f.Id})
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

// Download fetches a file's content by id.
func (c *Client) Download(ctx context.Context, fileID string) ([]byte, error) {
	resp, err := c.svc.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("download file %s: %w", fileID, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file %s: %w", fileID, err)
	}
	return data, nil
}

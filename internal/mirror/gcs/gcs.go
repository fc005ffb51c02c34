// Package gcs implements the remote mirror ObjectStore on Google Cloud
// Storage using service account credentials.
package gcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"contribs/internal/mirror"

	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gstorage "google.golang.org/api/storage/v1"
)

type Client struct {
	svc    *gstorage.Service
	bucket string
}

var _ mirror.ObjectStore = (*Client)(nil)

// NewFromEnv creates a GCS client using environment variables.
// Required: GCS_BUCKET
// Credentials: GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or
// GOOGLE_APPLICATION_CREDENTIALS.
func NewFromEnv(ctx context.Context) (*Client, error) {
	bucket := strings.TrimSpace(os.Getenv("GCS_BUCKET"))
	if bucket == "" {
		return nil, errors.New("missing GCS_BUCKET")
	}

	svc, err := newStorageService(ctx)
	if err != nil {
		return nil, fmt.Errorf("storage service: %w", err)
	}

	return &Client{svc: svc, bucket: bucket}, nil
}

func newStorageService(ctx context.Context) (*gstorage.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))

	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	slog.InfoContext(ctx, "Creating Cloud Storage service",
		"credentials_size", len(credentialsJSON),
		"scope", gstorage.DevstorageReadWriteScope)

	service, err := gstorage.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gstorage.DevstorageReadWriteScope))
	if err != nil {
		return nil, fmt.Errorf("create storage service: %w", err)
	}

	return service, nil
}

func (c *Client) Put(ctx context.Context, key string, data []byte) error {
	obj := &gstorage.Object{Name: key}
	_, err := c.svc.Objects.Insert(c.bucket, obj).
		Media(bytes.NewReader(data)).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("insert object %s/%s: %w", c.bucket, key, err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := c.svc.Objects.Get(c.bucket, key).Context(ctx).Download()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && apiErr.Code == 404 {
			return nil, mirror.ErrNotFound
		}
		return nil, fmt.Errorf("download object %s/%s: %w", c.bucket, key, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read object body %s/%s: %w", c.bucket, key, err)
	}
	return data, nil
}

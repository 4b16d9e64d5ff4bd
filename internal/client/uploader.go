package client

import (
	"context"
	"fmt"
	"net/http"
	"os"
)

// HTTPUploader PUTs files straight to presigned URLs. ContentLength is set
// from the file size so the request is never chunked; S3 rejects chunked
// presigned PUTs.
type HTTPUploader struct {
	httpClient  *http.Client
	contentType string
}

func NewHTTPUploader(httpClient *http.Client, contentType string) *HTTPUploader {
	return &HTTPUploader{
		httpClient:  httpClient,
		contentType: contentType,
	}
}

func (u *HTTPUploader) PutFile(ctx context.Context, uploadURL, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, file)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.ContentLength = stat.Size()
	req.Header.Set("Content-Type", u.contentType)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to upload: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("upload rejected with status %d", resp.StatusCode)
	}

	return nil
}

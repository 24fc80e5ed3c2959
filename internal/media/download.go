package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"newsvault/internal/logger"
)

// Downloader mirrors remote assets into a local directory. Fetching an
// asset whose file already exists is a no-op, so repeated spider runs do
// not re-download anything.
type Downloader struct {
	httpClient *http.Client
	dir        string
}

// NewDownloader creates a downloader writing into dir, creating it if needed.
func NewDownloader(httpClient *http.Client, dir string) (*Downloader, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}
	return &Downloader{httpClient: httpClient, dir: dir}, nil
}

// Fetch downloads one asset unless it is already present, returning its
// local filename.
func (d *Downloader) Fetch(ctx context.Context, url string) (string, error) {
	name := LocalName(url)
	if name == "" {
		return "", fmt.Errorf("asset URL %q has no filename", url)
	}
	path := filepath.Join(d.dir, name)

	if _, err := os.Stat(path); err == nil {
		logger.Debug("Asset already present", "path", path)
		return name, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request for %s: %w", url, err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download asset %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("asset %s returned status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read asset %s: %w", url, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write asset %s: %w", path, err)
	}

	logger.Info("Downloaded asset", "url", url, "path", path)
	return name, nil
}

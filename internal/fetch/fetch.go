// Package fetch downloads repository dump files into the local data
// directory, ready for the load commands.
package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gnamed/gnamed/internal/namespace"
)

// Fetcher downloads the resources of the configured repositories.
type Fetcher struct {
	client  *http.Client
	dataDir string
	log     *slog.Logger
}

// NewFetcher builds a fetcher writing into dataDir. A zero timeout
// means no limit; dump downloads routinely run for minutes.
func NewFetcher(dataDir string, timeout time.Duration, log *slog.Logger) *Fetcher {
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{
		client:  &http.Client{Timeout: timeout},
		dataDir: dataDir,
		log:     log,
	}
}

// Fetch downloads every resource of the named repository. Files are
// written to a temporary name first and renamed on success, so an
// aborted download never leaves a truncated dump behind.
func (f *Fetcher) Fetch(ctx context.Context, name string) error {
	repo, ok := namespace.Repositories[name]
	if !ok {
		return fmt.Errorf("unknown repository %q", name)
	}
	if err := os.MkdirAll(f.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	for _, res := range repo.Resources {
		if err := f.download(ctx, repo.URL+res.Path, res.Filename); err != nil {
			return fmt.Errorf("fetch %s: %w", name, err)
		}
	}
	return nil
}

func (f *Fetcher) download(ctx context.Context, url, filename string) error {
	target := filepath.Join(f.dataDir, filename)
	f.log.Info("downloading", "url", url, "target", target)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}

	tmp, err := os.CreateTemp(f.dataDir, filename+".part-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	start := time.Now()
	written, err := io.Copy(tmp, resp.Body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return err
	}

	f.log.Info("download complete",
		"target", target,
		"bytes", written,
		"elapsed", time.Since(start).Round(time.Millisecond),
	)
	return nil
}

package privacy

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// downloadTimeout bounds the whole model download, not individual reads; a
// multi-GB file on a slow link legitimately takes most of an hour.
const downloadTimeout = time.Hour

// ProgressFunc is invoked after each chunk of a download with
// (downloaded, total) bytes. total is 0 when the server did not send a
// Content-Length.
type ProgressFunc func(downloaded, total int64)

// httpClient disables HTTP/2: HuggingFace's CDN occasionally sends GOAWAY
// frames mid-transfer that crash Go's internal h2 read-loop goroutine.
var httpClient = &http.Client{
	Transport: &http.Transport{
		TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		TLSNextProto:    make(map[string]func(string, *tls.Conn) http.RoundTripper),
	},
}

// Get performs a guarded GET, returning the raw response body.
func (g *Guard) Get(ctx context.Context, rawURL string) ([]byte, error) {
	if err := g.IsURLAllowed(rawURL); err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("privacy: build request: %w", err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("privacy: get %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("privacy: get %s: status %d", rawURL, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// GetJSON performs a guarded GET and unmarshals the body into v.
func (g *Guard) GetJSON(ctx context.Context, rawURL string, v any) error {
	body, err := g.Get(ctx, rawURL)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, v)
}

// PostJSON performs a guarded POST with a JSON-encoded body.
func (g *Guard) PostJSON(ctx context.Context, rawURL string, payload any) ([]byte, error) {
	if err := g.IsURLAllowed(rawURL); err != nil {
		return nil, err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("privacy: marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("privacy: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("privacy: post %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("privacy: post %s: status %d", rawURL, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// DownloadFile streams rawURL's body to destPath atomically: write to
// destPath+".download", stream chunk-by-chunk invoking progress after each
// chunk, flush+close, then rename over destPath. Any failure — request,
// write, flush, or rename — deletes the temp file before returning, so
// destPath never observes a partial file.
func (g *Guard) DownloadFile(ctx context.Context, rawURL, destPath string, progress ProgressFunc) (err error) {
	if allowErr := g.IsURLAllowed(rawURL); allowErr != nil {
		return allowErr
	}

	tmpPath := destPath + ".download"
	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("privacy: create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			os.Remove(tmpPath)
		}
	}()

	reqCtx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, reqErr := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if reqErr != nil {
		f.Close()
		err = fmt.Errorf("privacy: build request: %w", reqErr)
		return err
	}
	resp, doErr := httpClient.Do(req)
	if doErr != nil {
		f.Close()
		err = fmt.Errorf("privacy: download %s: %w", rawURL, doErr)
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		f.Close()
		err = fmt.Errorf("privacy: download %s: status %d", rawURL, resp.StatusCode)
		return err
	}

	total := resp.ContentLength
	if total < 0 {
		total = 0
	}
	var downloaded int64
	buf := make([]byte, 32*1024)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := f.Write(buf[:n]); werr != nil {
				f.Close()
				err = fmt.Errorf("privacy: write: %w", werr)
				return err
			}
			downloaded += int64(n)
			if progress != nil {
				progress(downloaded, total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			f.Close()
			err = fmt.Errorf("privacy: read: %w", readErr)
			return err
		}
	}

	if flushErr := f.Sync(); flushErr != nil {
		f.Close()
		err = fmt.Errorf("privacy: flush: %w", flushErr)
		return err
	}
	if closeErr := f.Close(); closeErr != nil {
		err = fmt.Errorf("privacy: close: %w", closeErr)
		return err
	}
	if renameErr := os.Rename(tmpPath, destPath); renameErr != nil {
		err = fmt.Errorf("privacy: rename: %w", renameErr)
		return err
	}
	return nil
}

package acquire

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/schollz/progressbar/v3"
)

// odpURL points at the AWS Open Data mirror of SRA runs.
func odpURL(acc string) string {
	return fmt.Sprintf("https://sra-pub-run-odp.s3.amazonaws.com/sra/%s/%s", acc, acc)
}

// httpFetch streams the run over HTTPS into a temp file and renames it
// into place on completion, so an interrupted download never leaves a
// plausible-looking raw file behind.
func (f *Fetcher) httpFetch(ctx context.Context, acc string) (string, error) {
	local := RawName(acc)
	url := odpURL(acc)
	tmp := local + ".tmp"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("http fetch of %s: %w", acc, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("http fetch of %s: %s returned %s", acc, url, resp.Status)
	}

	out, err := os.Create(tmp)
	if err != nil {
		return "", err
	}

	body := io.Reader(resp.Body)
	if !f.opts.Quiet {
		bar := progressbar.DefaultBytes(resp.ContentLength, acc)
		body = io.TeeReader(resp.Body, bar)
	}

	if _, err := io.Copy(out, body); err != nil {
		out.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("http fetch of %s: %w", acc, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return "", err
	}

	if err := os.Rename(tmp, local); err != nil {
		return "", err
	}
	return local, nil
}

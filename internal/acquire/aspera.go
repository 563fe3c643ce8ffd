package acquire

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glarue/fasterq-dump/internal/run"
)

// aspera transfers src with ascp when a route and key exist.
func (f *Fetcher) aspera(ctx context.Context, src, local string) (string, error) {
	if _, err := f.runner.LookPath("ascp"); err != nil {
		return "", fmt.Errorf("ascp not available: %w", err)
	}

	asperaSrc := asperaURL(src)
	if asperaSrc == "" {
		return "", fmt.Errorf("no aspera route for %s", src)
	}

	key := asperaKeyPath()
	if key == "" {
		return "", errors.New("aspera ssh key not found")
	}

	cmd := run.Command{
		Name: "ascp",
		Args: []string{
			"-i", key,
			"-k", "1", // resume partial transfers
			"-T",
			"-l", "300m",
			asperaSrc,
			local,
		},
	}
	if err := f.runner.Run(ctx, cmd); err != nil {
		return "", err
	}
	return local, nil
}

// asperaURL converts a known FTP location to ascp's host:path form.
func asperaURL(url string) string {
	if strings.Contains(url, "ftp-trace.ncbi.nlm.nih.gov") {
		return strings.Replace(url, "ftp://ftp-trace.ncbi.nlm.nih.gov",
			"anonftp@ftp.ncbi.nlm.nih.gov:", 1)
	}
	if strings.Contains(url, "ftp.sra.ebi.ac.uk") {
		return strings.Replace(url, "ftp://ftp.sra.ebi.ac.uk",
			"era-fasp@fasp.sra.ebi.ac.uk:", 1)
	}
	return ""
}

// asperaKeyPath probes the usual install locations for the bundled key.
func asperaKeyPath() string {
	home, _ := os.UserHomeDir()
	candidates := []string{
		filepath.Join(home, ".aspera/connect/etc/asperaweb_id_dsa.openssh"),
		"/opt/aspera/etc/asperaweb_id_dsa.openssh",
	}

	for _, p := range candidates {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

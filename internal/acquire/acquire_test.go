package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/glarue/fasterq-dump/internal/run"
)

// scriptRunner fakes subprocess execution. Behavior per program name:
// a list of errors consumed one call at a time (nil means success), an
// optional stdout payload, and an optional side effect.
type scriptRunner struct {
	results map[string][]error
	stdout  map[string]string
	onRun   func(cmd run.Command) // invoked for successful calls
	missing map[string]bool
	calls   []run.Command
}

func newScriptRunner() *scriptRunner {
	return &scriptRunner{
		results: make(map[string][]error),
		stdout:  make(map[string]string),
		missing: make(map[string]bool),
	}
}

func (s *scriptRunner) Run(_ context.Context, cmd run.Command) error {
	s.calls = append(s.calls, cmd)

	queue := s.results[cmd.Name]
	var err error
	if len(queue) > 0 {
		err = queue[0]
		s.results[cmd.Name] = queue[1:]
	}
	if err != nil {
		return err
	}

	if out, ok := s.stdout[cmd.Name]; ok && cmd.Stdout != nil {
		io.WriteString(cmd.Stdout, out)
	}
	if s.onRun != nil {
		s.onRun(cmd)
	}
	return nil
}

func (s *scriptRunner) LookPath(name string) (string, error) {
	if s.missing[name] {
		return "", fmt.Errorf("%s: executable file not found in $PATH", name)
	}
	return "/usr/bin/" + name, nil
}

func (s *scriptRunner) callsTo(name string) int {
	n := 0
	for _, c := range s.calls {
		if c.Name == name {
			n++
		}
	}
	return n
}

// inTempDir runs the test from a fresh working directory, since raw
// files are named relative to the cwd.
func inTempDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	old, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(old) })
}

func newTestFetcher(opts Options, r run.Runner) *Fetcher {
	opts.Quiet = true
	f := New(opts, r)
	f.sleep = func(time.Duration) {}
	f.stderr = io.Discard
	return f
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		in      string
		want    Strategy
		wantErr bool
	}{
		{"all", StrategyAll, false},
		{"", StrategyAll, false},
		{"curl", StrategyCurl, false},
		{"WGET", StrategyWget, false},
		{"prefetch", StrategyPrefetch, false},
		{"http", StrategyHTTP, false},
		{"ftp", StrategyAll, true},
	}

	for _, tt := range tests {
		got, err := ParseStrategy(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseStrategy(%q) succeeded, want error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseStrategy(%q) failed: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseStrategy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLegacyURL(t *testing.T) {
	got := legacyURL("SRR123456")
	want := "ftp://ftp-trace.ncbi.nlm.nih.gov/sra/sra-instant/reads/ByRun/sra/SRR/SRR123/SRR123456/SRR123456.sra"
	if got != want {
		t.Errorf("legacyURL = %q, want %q", got, want)
	}
}

func TestFetchReusesExistingFile(t *testing.T) {
	inTempDir(t)
	if err := os.WriteFile("SRR1.sra", []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}

	r := newScriptRunner()
	f := newTestFetcher(Options{Strategy: StrategyAll}, r)

	for i := 0; i < 2; i++ {
		path, err := f.Fetch(context.Background(), "SRR1")
		if err != nil {
			t.Fatalf("Fetch #%d failed: %v", i+1, err)
		}
		if path != "SRR1.sra" {
			t.Errorf("Fetch #%d = %q, want SRR1.sra", i+1, path)
		}
	}

	if len(r.calls) != 0 {
		t.Errorf("expected no subprocess work for existing file, got %d calls", len(r.calls))
	}
}

func TestFetchOverwriteIgnoresExistingFile(t *testing.T) {
	inTempDir(t)
	if err := os.WriteFile("SRR1.sra", []byte("stale"), 0644); err != nil {
		t.Fatal(err)
	}

	r := newScriptRunner()
	r.onRun = func(cmd run.Command) {
		if cmd.Name == "prefetch" {
			os.WriteFile("SRR1.sra", []byte("fresh"), 0644)
		}
	}
	f := newTestFetcher(Options{Strategy: StrategyPrefetch, Overwrite: true}, r)

	if _, err := f.Fetch(context.Background(), "SRR1"); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if r.callsTo("prefetch") != 1 {
		t.Errorf("expected 1 prefetch call under --overwrite, got %d", r.callsTo("prefetch"))
	}
}

func TestPrefetchStrategy(t *testing.T) {
	inTempDir(t)
	r := newScriptRunner()
	f := newTestFetcher(Options{Strategy: StrategyPrefetch}, r)

	path, err := f.Fetch(context.Background(), "SRR42")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if path != "SRR42.sra" {
		t.Errorf("Fetch = %q, want SRR42.sra", path)
	}

	if len(r.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(r.calls))
	}
	args := strings.Join(r.calls[0].Args, " ")
	if !strings.Contains(args, "--max-size 80000000") {
		t.Errorf("prefetch missing size ceiling: %q", args)
	}
	if !strings.Contains(args, "-o ./SRR42.sra") {
		t.Errorf("prefetch output not pinned to cwd: %q", args)
	}
}

func TestDirectTransferRetriesThenSucceeds(t *testing.T) {
	inTempDir(t)
	r := newScriptRunner()
	r.stdout["srapath"] = "https://example.org/SRR9.sra\n"
	r.results["curl"] = []error{errors.New("exit status 7"), nil}

	f := newTestFetcher(Options{Strategy: StrategyCurl}, r)
	path, err := f.Fetch(context.Background(), "SRR9")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if path != "SRR9.sra" {
		t.Errorf("Fetch = %q, want SRR9.sra", path)
	}

	if got := r.callsTo("srapath"); got != 1 {
		t.Errorf("expected 1 srapath call, got %d", got)
	}
	if got := r.callsTo("curl"); got != 2 {
		t.Errorf("expected 2 curl attempts, got %d", got)
	}
}

func TestDirectTransferExhaustsRetries(t *testing.T) {
	inTempDir(t)
	r := newScriptRunner()
	r.stdout["srapath"] = "https://example.org/SRR9.sra\n"
	fail := errors.New("exit status 7")
	r.results["curl"] = []error{fail, fail}
	r.results["wget"] = []error{fail, fail}

	f := newTestFetcher(Options{Strategy: StrategyAll}, r)
	f.httpClient = &http.Client{Transport: failingTransport{}}
	r.results["prefetch"] = []error{errors.New("exit status 3")}

	_, err := f.Fetch(context.Background(), "SRR9")
	if err == nil {
		t.Fatal("expected failure when every strategy is exhausted")
	}

	if got := r.callsTo("prefetch"); got != 1 {
		t.Errorf("expected prefetch tried first, got %d calls", got)
	}
	if got := r.callsTo("curl"); got != 2 {
		t.Errorf("expected 2 curl attempts, got %d", got)
	}
	if got := r.callsTo("wget"); got != 2 {
		t.Errorf("expected 2 wget attempts, got %d", got)
	}
}

func TestResolveRetriesWithDelay(t *testing.T) {
	inTempDir(t)
	r := newScriptRunner()
	r.results["srapath"] = []error{errors.New("exit status 3"), nil}
	r.stdout["srapath"] = "https://example.org/SRR5.sra\n"

	var slept []time.Duration
	f := newTestFetcher(Options{}, r)
	f.sleep = func(d time.Duration) { slept = append(slept, d) }

	src, err := f.resolve(context.Background(), "SRR5")
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if src != "https://example.org/SRR5.sra" {
		t.Errorf("resolve = %q", src)
	}
	if len(slept) != 1 || slept[0] != 5*time.Second {
		t.Errorf("expected one 5s backoff, got %v", slept)
	}
}

func TestDirectTransferLocalPath(t *testing.T) {
	inTempDir(t)
	if err := os.WriteFile("cached.sra", []byte("data"), 0644); err != nil {
		t.Fatal(err)
	}

	r := newScriptRunner()
	r.stdout["srapath"] = "cached.sra\n"

	f := newTestFetcher(Options{Strategy: StrategyCurl}, r)
	path, err := f.Fetch(context.Background(), "SRR3")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if path != "cached.sra" {
		t.Errorf("Fetch = %q, want cached.sra", path)
	}
	if got := r.callsTo("curl"); got != 0 {
		t.Errorf("expected no transfer for locally cached run, got %d curl calls", got)
	}
}

func TestAsperaURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{
			"ftp://ftp-trace.ncbi.nlm.nih.gov/sra/x.sra",
			"anonftp@ftp.ncbi.nlm.nih.gov:/sra/x.sra",
		},
		{
			"ftp://ftp.sra.ebi.ac.uk/vol1/x.sra",
			"era-fasp@fasp.sra.ebi.ac.uk:/vol1/x.sra",
		},
		{"https://example.org/x.sra", ""},
	}

	for _, tt := range tests {
		if got := asperaURL(tt.in); got != tt.want {
			t.Errorf("asperaURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTransferArgs(t *testing.T) {
	curl := strings.Join(transferArgs("curl", "URL", "f.sra"), " ")
	if curl != "-L -o f.sra URL" {
		t.Errorf("curl args = %q", curl)
	}
	wget := strings.Join(transferArgs("wget", "URL", "f.sra"), " ")
	if wget != "-O f.sra URL" {
		t.Errorf("wget args = %q", wget)
	}
}

// failingTransport makes the built-in HTTP strategy fail fast without
// touching the network.
type failingTransport struct{}

func (failingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("no route to host")
}

package replay

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/ziadkadry99/wa-relay/internal/signature"
)

type nopReporter struct {
	mu      sync.Mutex
	updates int
	total   int
}

func (r *nopReporter) Start(total int) { r.total = total }
func (r *nopReporter) Update(current int, message string) {
	r.mu.Lock()
	r.updates++
	r.mu.Unlock()
}
func (r *nopReporter) Finish() {}

// verifyingServer mimics the relay endpoint: 403 on a bad signature,
// otherwise {"status":"ok"}.
func verifyingServer(t *testing.T, secret []byte) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		if !signature.Verify(secret, body, r.Header.Get("Interakt-Signature")) {
			w.WriteHeader(http.StatusForbidden)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid signature"})
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestSendSigned(t *testing.T) {
	secret := []byte("s3cret")
	srv := verifyingServer(t, secret)
	r := New(Config{URL: srv.URL, Secret: secret, SignatureHeader: "Interakt-Signature"})

	code, status, err := r.Send(context.Background(), []byte(`{"data":{}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != http.StatusOK || status != "ok" {
		t.Errorf("expected 200 ok, got %d %q", code, status)
	}
}

func TestSendUnsignedRejected(t *testing.T) {
	secret := []byte("s3cret")
	srv := verifyingServer(t, secret)
	r := New(Config{URL: srv.URL, Secret: secret, SignatureHeader: "Interakt-Signature", Unsigned: true})

	code, status, err := r.Send(context.Background(), []byte(`{}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if code != http.StatusForbidden || status != "invalid signature" {
		t.Errorf("expected 403 invalid signature, got %d %q", code, status)
	}
}

func TestRunReportsEachFile(t *testing.T) {
	secret := []byte("k")
	srv := verifyingServer(t, secret)
	dir := t.TempDir()
	files := []string{
		writeFile(t, dir, "a.json", `{"n":1}`),
		filepath.Join(dir, "missing.json"),
		writeFile(t, dir, "b.json", `{"n":2}`),
	}

	rep := &nopReporter{}
	results := New(Config{URL: srv.URL, Secret: secret, SignatureHeader: "Interakt-Signature"}).
		Run(context.Background(), files, rep)

	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if !results[0].OK() || !results[2].OK() {
		t.Errorf("expected files a and b accepted: %+v", results)
	}
	if results[1].Err == nil {
		t.Error("expected read error for missing file")
	}
	if rep.total != 3 || rep.updates != 3 {
		t.Errorf("expected 3 progress updates of 3, got %d of %d", rep.updates, rep.total)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results := New(Config{URL: "http://127.0.0.1:1"}).Run(ctx, []string{"a.json", "b.json"}, &nopReporter{})
	if len(results) != 0 {
		t.Errorf("expected no results after cancel, got %d", len(results))
	}
}

func TestExpand(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.json", "{}")
	b := writeFile(t, dir, "nested/b.json", "{}")
	writeFile(t, dir, "nested/notes.txt", "x")

	files, err := Expand([]string{dir})
	if err != nil {
		t.Fatalf("Expand(dir): %v", err)
	}
	if len(files) != 2 || files[0] != a || files[1] != b {
		t.Errorf("expected [%s %s], got %v", a, b, files)
	}

	files, err = Expand([]string{a, filepath.Join(dir, "**", "*.json")})
	if err != nil {
		t.Fatalf("Expand(glob): %v", err)
	}
	if len(files) != 2 {
		t.Errorf("expected duplicates removed, got %v", files)
	}

	if _, err := Expand([]string{filepath.Join(dir, "*.xml")}); err == nil {
		t.Error("expected error when nothing matches")
	}
}

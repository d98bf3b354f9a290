// Package replay posts captured webhook bodies to a running relay, signed the
// way the provider signs them. It is a development aid for exercising the
// webhook endpoint end to end.
package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/ziadkadry99/wa-relay/internal/progress"
	"github.com/ziadkadry99/wa-relay/internal/signature"
)

// Config describes the target endpoint.
type Config struct {
	URL             string
	Secret          []byte
	SignatureHeader string
	Timeout         time.Duration
	// Unsigned omits the signature header, for checking rejection.
	Unsigned bool
}

// Result is the outcome of one delivery.
type Result struct {
	File       string
	StatusCode int
	// Status is the "status" or "error" member of the JSON response.
	Status string
	Err    error
}

// OK reports whether the relay accepted the body.
func (r Result) OK() bool {
	return r.Err == nil && r.StatusCode == http.StatusOK
}

// Replayer sends bodies to the configured endpoint.
type Replayer struct {
	cfg  Config
	http *http.Client
}

// New creates a replayer. A zero timeout defaults to 10s.
func New(cfg Config) *Replayer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Replayer{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

// Send posts body and returns the HTTP status and the response status text.
func (r *Replayer) Send(ctx context.Context, body []byte) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return 0, "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if !r.cfg.Unsigned {
		req.Header.Set(r.cfg.SignatureHeader, signature.Sign(r.cfg.Secret, body))
	}

	resp, err := r.http.Do(req)
	if err != nil {
		return 0, "", fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var out struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return resp.StatusCode, "", nil
	}
	if out.Status == "" {
		return resp.StatusCode, out.Error, nil
	}
	return resp.StatusCode, out.Status, nil
}

// Run sends each file in order, reporting progress. It stops early only when
// ctx is cancelled.
func (r *Replayer) Run(ctx context.Context, files []string, rep progress.Reporter) []Result {
	results := make([]Result, 0, len(files))
	rep.Start(len(files))
	defer rep.Finish()

	for i, file := range files {
		if ctx.Err() != nil {
			break
		}
		res := Result{File: file}
		body, err := os.ReadFile(file)
		if err != nil {
			res.Err = fmt.Errorf("reading %s: %w", file, err)
		} else {
			res.StatusCode, res.Status, res.Err = r.Send(ctx, body)
		}
		results = append(results, res)

		msg := fmt.Sprintf("%s %d %s", filepath.Base(file), res.StatusCode, res.Status)
		if res.Err != nil {
			msg = fmt.Sprintf("%s error: %v", filepath.Base(file), res.Err)
		}
		rep.Update(i+1, msg)
	}
	return results
}

// Expand resolves file arguments. Each argument may be a plain path, a
// directory (all *.json files beneath it), or a doublestar glob such as
// "captures/**/*.json". The result is sorted and deduplicated.
func Expand(args []string) ([]string, error) {
	seen := make(map[string]bool)
	var files []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			files = append(files, p)
		}
	}

	for _, arg := range args {
		if info, err := os.Stat(arg); err == nil {
			if !info.IsDir() {
				add(arg)
				continue
			}
			arg = filepath.Join(arg, "**", "*.json")
		}
		matches, err := doublestar.FilepathGlob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", arg)
		}
		for _, m := range matches {
			add(m)
		}
	}
	sort.Strings(files)
	return files, nil
}

package client_test

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/adamwoolhether/fetcher/client"
	"github.com/adamwoolhether/fetcher/client/download"
)

type payload struct {
	Body string `json:"body"`
}

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("failed to parse URL %q: %v", raw, err)
	}

	return u
}

func TestClient_WithUserAgent(t *testing.T) {
	expectedUA := "TestUserAgent/1.0"

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua := r.Header.Get("User-Agent")
		if ua != expectedUA {
			t.Errorf("expected User-Agent %q, got %q", expectedUA, ua)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer ts.Close()

	c, err := client.Build(client.WithUserAgent(expectedUA))
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	req, err := c.Request(t.Context(), mustParse(t, ts.URL), http.MethodGet)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	if err := c.Do(req, http.StatusOK); err != nil {
		t.Errorf("expected no error, got: %v", err)
	}
}

func TestClient_Do_DecodesBody(t *testing.T) {
	want := payload{Body: "hello"}

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"body":"hello"}`))
	}))
	defer ts.Close()

	c, err := client.Build()
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	req, err := c.Request(t.Context(), mustParse(t, ts.URL), http.MethodGet)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	var got payload
	if err := c.Do(req, http.StatusOK, client.WithDestination(&got)); err != nil {
		t.Fatalf("Do: %v", err)
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected payload (-want +got):\n%s", diff)
	}
}

func TestClient_Do_UnexpectedStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte(`{"reason":"out of coffee"}`))
	}))
	defer ts.Close()

	c, err := client.Build()
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	req, err := c.Request(t.Context(), mustParse(t, ts.URL), http.MethodGet)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	var errBody struct {
		Reason string `json:"reason"`
	}
	err = c.Do(req, http.StatusOK, client.WithErrorInto(&errBody))
	if !errors.Is(err, client.ErrUnexpectedStatusCode) {
		t.Fatalf("expected ErrUnexpectedStatusCode, got %v", err)
	}

	var statusErr *client.UnexpectedStatusError
	if !errors.As(err, &statusErr) {
		t.Fatalf("expected UnexpectedStatusError, got %T", err)
	}
	if statusErr.StatusCode != http.StatusTeapot {
		t.Errorf("expected status 418, got %d", statusErr.StatusCode)
	}
	if errBody.Reason != "out of coffee" {
		t.Errorf("expected decoded error body, got %+v", errBody)
	}
}

func TestClient_Download(t *testing.T) {
	content := []byte("streamed response body")
	sum := sha256.Sum256(content)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(content)
	}))
	defer ts.Close()

	c, err := client.Build()
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	req, err := c.Request(t.Context(), mustParse(t, ts.URL), http.MethodGet)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "out.bin")
	if err := c.Download(req, http.StatusOK, client.Path(dest),
		client.WithChecksum(sha256.New(), hex.EncodeToString(sum[:])),
	); err != nil {
		t.Fatalf("Download: %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("unexpected file content: %q", got)
	}
}

func TestClient_Download_StatusErrorLeavesNoFile(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	c, err := client.Build()
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	req, err := c.Request(t.Context(), mustParse(t, ts.URL), http.MethodGet)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	dest := filepath.Join(t.TempDir(), "out.bin")
	err = c.Download(req, http.StatusOK, client.Path(dest))
	if !errors.Is(err, client.ErrUnexpectedStatusCode) {
		t.Fatalf("expected ErrUnexpectedStatusCode, got %v", err)
	}

	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Error("expected no file for a failed status check")
	}
}

func TestClient_Download_RedirectCount(t *testing.T) {
	content := []byte("final content")

	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/hop", http.StatusFound)
	})
	mux.HandleFunc("/hop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusFound)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(content)
	})

	ts := httptest.NewServer(mux)
	defer ts.Close()

	c, err := client.Build()
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	req, err := c.Request(t.Context(), mustParse(t, ts.URL+"/start"), http.MethodGet)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	dir := t.TempDir()

	var gotCount, gotFinal string
	dest := client.PathFunc(func(h http.Header) (string, error) {
		gotCount = h.Get(download.RedirectCountHeader)
		gotFinal = h.Get(download.FinalURLHeader)
		return filepath.Join(dir, "resolved.bin"), nil
	})

	if err := c.Download(req, http.StatusOK, dest); err != nil {
		t.Fatalf("Download: %v", err)
	}

	if gotCount != "2" {
		t.Errorf("expected redirect count 2, got %q", gotCount)
	}
	if gotFinal != ts.URL+"/final" {
		t.Errorf("expected final url %q, got %q", ts.URL+"/final", gotFinal)
	}

	got, err := os.ReadFile(filepath.Join(dir, "resolved.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, content) {
		t.Errorf("unexpected file content: %q", got)
	}
}

func TestClient_DownloadAsync_Batch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("content for " + r.URL.Path))
	}))
	defer ts.Close()

	c, err := client.Build()
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	dir := t.TempDir()

	newReq := func(path string) *http.Request {
		req, err := c.Request(t.Context(), mustParse(t, ts.URL+path), http.MethodGet)
		if err != nil {
			t.Fatalf("failed to create request: %v", err)
		}
		return req
	}

	r, err := c.DownloadAsync(newReq("/a"), http.StatusOK, client.Path(filepath.Join(dir, "a.bin")),
		client.WithBatch(2),
	)
	if err != nil {
		t.Fatalf("DownloadAsync: %v", err)
	}
	r.Add(newReq("/b"), http.StatusOK, client.Path(filepath.Join(dir, "b.bin")))
	r.Add(newReq("/c"), http.StatusOK, client.Path(filepath.Join(dir, "c.bin")))

	if err := r.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	for _, name := range []string{"a.bin", "b.bin", "c.bin"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}
}

func TestBuild_OptionValidation(t *testing.T) {
	testCases := []struct {
		name string
		opt  client.Option
	}{
		{name: "Nil http client", opt: client.WithClient(nil)},
		{name: "Nil transport", opt: client.WithTransport(nil)},
		{name: "Negative timeout", opt: client.WithTimeout(-1)},
		{name: "Zero throttle rps", opt: client.WithThrottle(0, 5)},
		{name: "Zero throttle burst", opt: client.WithThrottle(5, 0)},
		{name: "Nil tracer", opt: client.WithTracer(nil)},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := client.Build(tc.opt); err == nil {
				t.Error("expected option validation error")
			}
		})
	}
}

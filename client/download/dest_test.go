package download

import (
	"errors"
	"net/http"
	"net/url"
	"testing"
)

func TestExpectedLength(t *testing.T) {
	testCases := []struct {
		name         string
		headers      http.Header
		lengthHeader string
		exp          int64
	}{
		{
			name:         "Plain Content-Length",
			headers:      http.Header{"Content-Length": []string{"1234"}},
			lengthHeader: "Content-Length",
			exp:          1234,
		},
		{
			name:         "Missing header",
			headers:      http.Header{},
			lengthHeader: "Content-Length",
			exp:          UnknownLength,
		},
		{
			name:         "Unparseable value",
			headers:      http.Header{"Content-Length": []string{"many"}},
			lengthHeader: "Content-Length",
			exp:          UnknownLength,
		},
		{
			name:         "Negative value",
			headers:      http.Header{"Content-Length": []string{"-5"}},
			lengthHeader: "Content-Length",
			exp:          UnknownLength,
		},
		{
			name: "Gzip forces unknown",
			headers: http.Header{
				"Content-Length":   []string{"1234"},
				"Content-Encoding": []string{"gzip"},
			},
			lengthHeader: "Content-Length",
			exp:          UnknownLength,
		},
		{
			name: "Deflate forces unknown",
			headers: http.Header{
				"Content-Length":   []string{"1234"},
				"Content-Encoding": []string{"deflate"},
			},
			lengthHeader: "Content-Length",
			exp:          UnknownLength,
		},
		{
			name: "Compress forces unknown",
			headers: http.Header{
				"Content-Length":   []string{"1234"},
				"Content-Encoding": []string{"compress"},
			},
			lengthHeader: "Content-Length",
			exp:          UnknownLength,
		},
		{
			name: "Custom header unaffected by encoding",
			headers: http.Header{
				"X-File-Size":      []string{"9876"},
				"Content-Encoding": []string{"gzip"},
			},
			lengthHeader: "X-File-Size",
			exp:          9876,
		},
		{
			name: "Identity encoding keeps length",
			headers: http.Header{
				"Content-Length":   []string{"42"},
				"Content-Encoding": []string{"identity"},
			},
			lengthHeader: "Content-Length",
			exp:          42,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := expectedLength(tc.headers, tc.lengthHeader); got != tc.exp {
				t.Errorf("expected %d, got %d", tc.exp, got)
			}
		})
	}
}

func TestDestination_PathResolve(t *testing.T) {
	got, err := Path("/tmp/file.bin").resolve(&http.Response{}, 0)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != "/tmp/file.bin" {
		t.Errorf("unexpected path: %q", got)
	}
}

func TestDestination_EmptyPath(t *testing.T) {
	if _, err := Path("").resolve(&http.Response{}, 0); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestDestination_PathFuncSeesSyntheticHeaders(t *testing.T) {
	finalURL, _ := url.Parse("https://example.com/real/file.bin")
	resp := &http.Response{
		Header:  http.Header{"Content-Type": []string{"application/octet-stream"}},
		Request: &http.Request{URL: finalURL},
	}

	var seen http.Header
	dest := PathFunc(func(h http.Header) (string, error) {
		seen = h
		return "/tmp/resolved.bin", nil
	})

	got, err := dest.resolve(resp, 3)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got != "/tmp/resolved.bin" {
		t.Errorf("unexpected path: %q", got)
	}

	if seen.Get(RedirectCountHeader) != "3" {
		t.Errorf("expected redirect count 3, got %q", seen.Get(RedirectCountHeader))
	}
	if seen.Get(FinalURLHeader) != "https://example.com/real/file.bin" {
		t.Errorf("unexpected final url: %q", seen.Get(FinalURLHeader))
	}

	// The response's own header mapping must not be mutated.
	if resp.Header.Get(RedirectCountHeader) != "" {
		t.Error("response headers were mutated")
	}
}

func TestDestination_PathFuncErrors(t *testing.T) {
	wantErr := errors.New("no idea where to put this")

	_, err := PathFunc(func(http.Header) (string, error) {
		return "", wantErr
	}).resolve(&http.Response{}, 0)

	if !errors.Is(err, wantErr) {
		t.Errorf("expected %v, got %v", wantErr, err)
	}
}

func TestDestination_PathFuncEmptyResult(t *testing.T) {
	_, err := PathFunc(func(http.Header) (string, error) {
		return "", nil
	}).resolve(&http.Response{}, 0)

	if err == nil {
		t.Error("expected error for empty resolved path")
	}
}

package download

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
)

// Synthetic headers added to the mapping handed to a [PathFunc]
// destination, describing the request that actually produced the
// response.
const (
	// RedirectCountHeader reports the number of redirects followed.
	RedirectCountHeader = "X-Redirect-Count"

	// FinalURLHeader reports the fully resolved URL the body was
	// served from.
	FinalURLHeader = "X-Final-Url"
)

// Destination names where the response body lands. Build one with
// [Path] for a literal file path, or [PathFunc] to derive the path
// from the response headers once they are known.
type Destination struct {
	path string
	fn   func(http.Header) (string, error)
}

// Path returns a Destination for a literal file path. Missing parent
// directories are created.
func Path(p string) Destination {
	return Destination{path: p}
}

// PathFunc returns a Destination that derives the file path from the
// response headers. Before fn is invoked the header mapping is
// augmented with [RedirectCountHeader] and [FinalURLHeader].
func PathFunc(fn func(http.Header) (string, error)) Destination {
	return Destination{fn: fn}
}

// resolve produces the concrete file path. For a PathFunc destination
// the headers are cloned and augmented first, so fn observes the
// synthetic entries without the response being mutated.
func (d Destination) resolve(resp *http.Response, redirects int) (string, error) {
	if d.fn == nil {
		if d.path == "" {
			return "", errors.New("destination path must not be empty")
		}
		return d.path, nil
	}

	headers := resp.Header.Clone()
	if headers == nil {
		headers = make(http.Header)
	}
	headers.Set(RedirectCountHeader, strconv.Itoa(redirects))
	if resp.Request != nil && resp.Request.URL != nil {
		headers.Set(FinalURLHeader, resp.Request.URL.String())
	}

	path, err := d.fn(headers)
	if err != nil {
		return "", err
	}
	if path == "" {
		return "", errors.New("destination func returned empty path")
	}

	return path, nil
}

// expectedLength parses the configured length header into the total
// byte count, or [UnknownLength] when absent or unusable. When the
// configured header is the generic Content-Length and the body is
// compressed, the on-wire length misrepresents the decompressed size,
// so the total is forced unknown.
func expectedLength(headers http.Header, lengthHeader string) int64 {
	if strings.EqualFold(lengthHeader, lengthHeaderDefault) {
		switch strings.ToLower(headers.Get("Content-Encoding")) {
		case "gzip", "deflate", "compress":
			return UnknownLength
		}
	}

	v := headers.Get(lengthHeader)
	if v == "" {
		return UnknownLength
	}

	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n < 0 {
		return UnknownLength
	}

	return n
}

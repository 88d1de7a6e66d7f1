// Package client provides the core implementation of the configurable HTTP
// client built on [net/http].
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options:
//
//	c, err := client.Build(
//		client.WithTimeout(10 * time.Second),
//		client.WithUserAgent("myapp/1.0"),
//	)
//
// # Making Requests
//
// Construct a [URL] and [Request], then execute with [Client.Do]:
//
//	u := client.URL("https", "api.example.com", "/v1/resource")
//	req, err := client.Request(ctx, u, http.MethodGet)
//	err = c.Do(req, http.StatusOK, client.WithDestination(&result))
//
// # Downloading Files
//
// Stream a response body directly to disk with bandwidth shaping,
// receive timeouts and progress reporting:
//
//	err = c.Download(req, http.StatusOK, download.Path("/tmp/file.bin"),
//		download.WithBandwidthCap(1<<20),
//		download.WithProgressFunc(report),
//	)
//
// The destination may be derived from the response headers once they
// are known, including the synthetic redirect-count and final-URL
// entries:
//
//	dest := download.PathFunc(func(h http.Header) (string, error) {
//		return "/tmp/" + h.Get("Content-Disposition"), nil
//	})
//
// # Async Downloads
//
// A single file can be downloaded asynchronously with [Client.DownloadAsync]:
//
//	r, err := c.DownloadAsync(req, http.StatusOK, download.Path("/tmp/file.bin"))
//	// ... do other work ...
//	if err := r.Err(); err != nil { ... }
//
// For multiple concurrent downloads, use [WithBatch] to set a concurrency
// limit and [download.Result.Add] to enqueue additional files:
//
//	r, err := c.DownloadAsync(req1, http.StatusOK, download.Path("/tmp/a.bin"),
//		download.WithBatch(4),
//	)
//	r.Add(req2, http.StatusOK, download.Path("/tmp/b.bin"))
//	r.Add(req3, http.StatusOK, download.Path("/tmp/c.bin"))
//	err = r.Wait() // blocks until all downloads finish
//
// For lower-level control see the
// [github.com/adamwoolhether/fetcher/client/download] package.
package client

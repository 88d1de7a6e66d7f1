// Package download streams HTTP response bodies to disk with
// bandwidth shaping, progress reporting, receive timeouts, resumable
// appends and optional checksum validation.
//
// # Single Download
//
// [Handle] writes the response body to the resolved destination,
// deleting the partial file if the download fails:
//
//	err := download.Handle(ctx, resp, 0, download.Path(destPath), logger,
//		download.WithBandwidthCap(1<<20),
//		download.WithProgressFunc(report),
//	)
//
// The destination may also be derived from the response headers with
// [PathFunc], which additionally observes the synthetic
// [RedirectCountHeader] and [FinalURLHeader] entries.
//
// Most callers should use the higher-level
// [github.com/adamwoolhether/fetcher/client] package, which invokes
// Handle internally and re-exports all download options as
// client.With* functions.
package download

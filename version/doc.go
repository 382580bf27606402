// Package version reports the speechkit build.
//
// Version and Commit are set with -ldflags; otherwise the commit is read
// from the Go build info:
//
//	go build -ldflags "-X github.com/kbukum/speechkit/version.Version=0.3.0" ./cmd/transcribe
package version

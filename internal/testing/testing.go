// package testing contains shared testing utilities
package testing

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"strings"
	"testing"
)

// FailingWriter passes the first After writes to Target and fails every write after that.
// The zero value fails immediately.
type FailingWriter struct {
	After  int
	Target io.Writer

	writes int
}

func (w *FailingWriter) Write(p []byte) (int, error) {
	if w.writes >= w.After {
		return 0, errors.New("write failed")
	}
	w.writes++
	if w.Target == nil {
		return len(p), nil
	}
	return w.Target.Write(p)
}

// RoundTripFunc adapts a function to [http.RoundTripper] so a test can stand in for a remote host.
type RoundTripFunc func(req *http.Request) (*http.Response, error)

func (f RoundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

// Unreachable is a round tripper that fails every request with err.
func Unreachable(err error) RoundTripFunc {
	return func(*http.Request) (*http.Response, error) {
		return nil, err
	}
}

// Respond is a round tripper that answers every request with status, contentType and body.
// Each request it serves is appended to seen when seen is not nil.
func Respond(status int, contentType, body string, seen *[]string) RoundTripFunc {
	return func(req *http.Request) (*http.Response, error) {
		if seen != nil {
			*seen = append(*seen, req.URL.String())
		}
		return &http.Response{
			StatusCode: status,
			Header:     http.Header{"Content-Type": []string{contentType}},
			Body:       io.NopCloser(strings.NewReader(body)),
			Request:    req,
		}, nil
	}
}

// FailingBody is a response body whose reads always fail.
type FailingBody struct{}

func (FailingBody) Read([]byte) (int, error) { return 0, errors.New("read failed") }
func (FailingBody) Close() error             { return nil }

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

// MustReadJSON decodes the JSON file at path into a T.
func MustReadJSON[T any](t *testing.T, path string) T {
	t.Helper()
	var v T
	if err := json.Unmarshal([]byte(MustReadFile(t, path)), &v); err != nil {
		t.Fatalf("File %s is not valid JSON: %v", path, err)
	}
	return v
}

// masochat/utils/http/httputils.go
package httputils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// StatusError is returned for non-2xx answers. Body holds the trimmed
// response text, which servers in this project keep human readable.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return e.Body
	}
	return fmt.Sprintf("bad status: %s", e.Status)
}

// PostStream posts body as JSON and hands back the open response body for
// incremental reading. The caller owns the returned ReadCloser.
func PostStream(ctx context.Context, client *http.Client, url string, body interface{}, headers map[string]string) (io.ReadCloser, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if client == nil {
		client = http.DefaultClient
	}
	r, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if r.StatusCode < 200 || r.StatusCode > 299 {
		defer r.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(r.Body, 64<<10))
		return nil, &StatusError{StatusCode: r.StatusCode, Status: r.Status, Body: strings.TrimSpace(string(b))}
	}
	return r.Body, nil
}

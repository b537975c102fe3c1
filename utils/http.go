package utils

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"golang.org/x/net/context"
)

// PostJson sends body to url and returns the response. Non-2xx answers are
// returned together with an error so that callers may still read the body.
func PostJson(ctx context.Context, client *http.Client, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, fmt.Errorf("Server response: %v", resp.Status)
	}
	return resp, nil
}

// ReadBody reads and closes a response body.
func ReadBody(resp io.ReadCloser) (string, error) {
	defer resp.Close()
	body, err := io.ReadAll(resp)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

func PrintJsonResponse(body []byte) {
	// print indented JSON
	var out bytes.Buffer
	if err := json.Indent(&out, body, "", "\t"); err != nil {
		os.Stdout.Write(body)
		fmt.Println()
		return
	}
	out.WriteTo(os.Stdout)
	fmt.Println()
}

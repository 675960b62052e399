package turn

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// backboardHostMarker identifies the "Backboard" provider by hostname,
// per §6: it authenticates via X-API-Key instead of Authorization: Bearer.
const backboardHostMarker = "backboard.io"

// PayloadBuilder renders the request body for one turn. Callers close over
// the conversation history, tools, and model parameters; the engine treats
// the result as an opaque JSON body.
type PayloadBuilder func() ([]byte, error)

// buildRequest constructs the HTTPS POST to endpoint with the provider's
// authentication header selected by hostname, plus any caller-supplied
// extra headers.
func buildRequest(endpoint, apiKey string, extra map[string]string, body []byte) (*http.Request, error) {
	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.Contains(endpoint, backboardHostMarker) {
		req.Header.Set("X-API-Key", apiKey)
	} else {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}
	for k, v := range extra {
		req.Header.Set(k, v)
	}
	return req, nil
}

// apiErrorBody is the best-effort shape of a provider error body: {error:{message}}.
type apiErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// extractErrorMessage best-effort parses body as {error:{message}}, falling
// back to the raw text when it does not decode (§6 "Header parsing...
// best-effort parses {error.message} or falls back to raw text").
func extractErrorMessage(body []byte) string {
	var parsed apiErrorBody
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Message != "" {
		return parsed.Error.Message
	}
	return string(body)
}

func readAll(r io.Reader, limit int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, limit))
}

package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// StationClient queries a moondream-station compatible server.
// POST {endpoint}/v1/query {image_url, question, model} -> {answer}
type StationClient struct {
	endpoint   string
	model      string
	httpClient *http.Client
}

// NewStationClient creates a client for endpoint. model names the weights
// the server should answer with and may be empty.
func NewStationClient(endpoint, model string, timeout time.Duration) *StationClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &StationClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Encode wraps the PNG bytes in a data URL.
func (c *StationClient) Encode(_ context.Context, image []byte) (Encoded, error) {
	if len(image) == 0 {
		return Encoded{}, fmt.Errorf("empty image")
	}
	return Encoded{DataURL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(image)}, nil
}

type queryRequest struct {
	ImageURL string `json:"image_url"`
	Question string `json:"question"`
	Model    string `json:"model,omitempty"`
	Stream   bool   `json:"stream"`
}

// Query sends one question about image.
func (c *StationClient) Query(ctx context.Context, image Encoded, question string) (Answer, error) {
	jsonData, err := json.Marshal(queryRequest{
		ImageURL: image.DataURL,
		Question: question,
		Model:    c.model,
	})
	if err != nil {
		return Answer{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/v1/query", bytes.NewReader(jsonData))
	if err != nil {
		return Answer{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Answer{}, fmt.Errorf("failed to reach vision model: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Answer{}, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Answer{}, fmt.Errorf("vision model returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var result struct {
		Answer string `json:"answer"`
		Error  string `json:"error"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return Answer{}, fmt.Errorf("failed to parse response: %w", err)
	}
	if result.Error != "" {
		return Answer{}, fmt.Errorf("vision model error: %s", result.Error)
	}

	return Answer{Answer: strings.TrimSpace(result.Answer)}, nil
}

package seeddata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// client wraps http.Client with a request timeout.
type client struct {
	http *http.Client
}

func newClient(timeout time.Duration) *client {
	return &client{http: &http.Client{Timeout: timeout}}
}

type ingestRequest struct {
	Partner string           `json:"partner"`
	Kind    string           `json:"dataset_kind"`
	BatchID string           `json:"batch_id"`
	Rows    []map[string]any `json:"rows"`
}

type ingestResponse struct {
	Stored int `json:"stored"`
}

// submitBatch posts one batch to /records and returns the stored count.
func (c *client) submitBatch(ctx context.Context, baseURL string, b batch) (int, error) {
	body, err := json.Marshal(ingestRequest{
		Partner: b.Partner,
		Kind:    b.Kind,
		BatchID: b.BatchID,
		Rows:    b.Rows,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal batch: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+"/records", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to submit batch: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		return 0, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(raw))
	}

	var out ingestResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return 0, fmt.Errorf("failed to parse response: %w", err)
	}
	return out.Stored, nil
}

// fetchSummary reads back /analytics/summary for a partner.
func (c *client) fetchSummary(ctx context.Context, baseURL, partner string) (map[string]any, error) {
	u := baseURL + "/analytics/summary?partner=" + url.QueryEscape(partner)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch summary: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(raw))
	}

	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to parse summary: %w", err)
	}
	return out, nil
}

package enrichment

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"context"
)

// AwardsClient fetches award details from the external awards API by award
// identifier. Like the profile provider it is best-effort only.
type AwardsClient struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
}

// AwardDetail is the subset of the awards API response the pipeline uses
type AwardDetail struct {
	AwardIdentifier    string  `json:"award_identifier"`
	Description        string  `json:"description"`
	PlaceOfPerformance string  `json:"place_of_performance"`
	SubawardCount      int     `json:"subaward_count"`
	PotentialValue     float64 `json:"potential_value"`
}

// NewAwardsClient creates an awards detail client
func NewAwardsClient(endpoint, apiKey string) *AwardsClient {
	return &AwardsClient{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		endpoint: endpoint,
		apiKey:   apiKey,
	}
}

// GetAwardDetail fetches details for a single award identifier
func (c *AwardsClient) GetAwardDetail(ctx context.Context, awardIdentifier string) (*AwardDetail, error) {
	detailURL := fmt.Sprintf("%s/%s", c.endpoint, awardIdentifier)

	req, err := http.NewRequestWithContext(ctx, "GET", detailURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	var detail AwardDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, fmt.Errorf("failed to parse awards response: %w", err)
	}

	if detail.AwardIdentifier == "" {
		detail.AwardIdentifier = awardIdentifier
	}

	return &detail, nil
}

// Health checks that the awards API is reachable
func (c *AwardsClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "HEAD", c.endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("awards API health check failed: %w", err)
	}
	resp.Body.Close()
	return nil
}

// Close cleans up client resources
func (c *AwardsClient) Close() {
	c.httpClient.CloseIdleConnections()
}

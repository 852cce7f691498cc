package enrichment

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// ProfileClient looks up company profile pages by name and extracts the
// fields the flywheel turns into facts. The provider is best-effort and
// non-authoritative; failures are reported, never fatal.
type ProfileClient struct {
	httpClient *http.Client
	endpoint   string
	userAgent  string
}

// Profile holds the extracted fields of a company profile page
type Profile struct {
	Website       string
	Description   string
	Location      string
	EmployeeCount string
}

// NewProfileClient creates a profile lookup client
func NewProfileClient(endpoint string) *ProfileClient {
	return &ProfileClient{
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:    10,
				IdleConnTimeout: 30 * time.Second,
			},
		},
		endpoint:  endpoint,
		userAgent: "Mozilla/5.0 (compatible; IntelPipeline/1.0)",
	}
}

// Lookup fetches and parses the profile page for a company name
func (c *ProfileClient) Lookup(ctx context.Context, companyName string) (*Profile, error) {
	lookupURL := fmt.Sprintf("%s?name=%s", c.endpoint, url.QueryEscape(companyName))

	req, err := http.NewRequestWithContext(ctx, "GET", lookupURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	return parseProfile(doc), nil
}

// parseProfile extracts known fields from the profile document
func parseProfile(doc *goquery.Document) *Profile {
	profile := &Profile{}

	doc.Find("[data-field]").Each(func(_ int, sel *goquery.Selection) {
		field, _ := sel.Attr("data-field")
		value := strings.TrimSpace(sel.Text())
		if value == "" {
			return
		}

		switch field {
		case "website":
			profile.Website = value
		case "description":
			profile.Description = value
		case "location":
			profile.Location = value
		case "employee_count":
			profile.EmployeeCount = value
		}
	})

	// Fall back to common meta tags when the structured fields are absent
	if profile.Description == "" {
		if desc, ok := doc.Find(`meta[name="description"]`).Attr("content"); ok {
			profile.Description = strings.TrimSpace(desc)
		}
	}

	return profile
}

// IsEmpty reports whether the lookup produced nothing usable
func (p *Profile) IsEmpty() bool {
	return p.Website == "" && p.Description == "" && p.Location == "" && p.EmployeeCount == ""
}

// Health checks that the provider is reachable
func (c *ProfileClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "HEAD", c.endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("profile API health check failed: %w", err)
	}
	resp.Body.Close()
	return nil
}

// Close cleans up client resources
func (c *ProfileClient) Close() {
	c.httpClient.CloseIdleConnections()
}

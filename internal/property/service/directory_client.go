package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"

	"github.com/stayware/callguard/internal/config"
	propertydomain "github.com/stayware/callguard/internal/property/domain"
)

type directoryClient struct {
	baseURL   string
	authToken string
	client    *http.Client
}

// NewDirectory builds the HTTP client for the external partner directory.
// Direct-integration gateway groups resolve through it.
func NewDirectory(cfg config.Config) propertydomain.Directory {
	timeout := time.Duration(cfg.DirectoryTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &directoryClient{
		baseURL:   strings.TrimRight(strings.TrimSpace(cfg.DirectoryBaseURL), "/"),
		authToken: strings.TrimSpace(cfg.DirectoryAuthToken),
		client:    &http.Client{Timeout: timeout},
	}
}

type directoryLookupResponse struct {
	PropertyID string `json:"property_id"`
}

func (c *directoryClient) LookupProperty(ctx context.Context, enterpriseID, groupID string) (snowflake.ID, error) {
	if c.baseURL == "" {
		return 0, fmt.Errorf("%w: base url not configured", propertydomain.ErrDirectoryUnavailable)
	}

	endpoint := fmt.Sprintf("%s/v1/partners/%s/properties?enterprise_id=%s",
		c.baseURL,
		url.PathEscape(strings.TrimSpace(groupID)),
		url.QueryEscape(strings.TrimSpace(enterpriseID)),
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", propertydomain.ErrDirectoryUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return 0, propertydomain.ErrDirectoryNoMapping
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return 0, fmt.Errorf("%w: status %d", propertydomain.ErrDirectoryUnavailable, resp.StatusCode)
	}

	var payload directoryLookupResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("%w: decode response: %v", propertydomain.ErrDirectoryUnavailable, err)
	}

	id, err := snowflake.ParseString(strings.TrimSpace(payload.PropertyID))
	if err != nil || id == 0 {
		return 0, propertydomain.ErrDirectoryNoMapping
	}
	return id, nil
}

package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"nodefoundry-ledger/config"
	"nodefoundry-ledger/internal/core/domain"
	"nodefoundry-ledger/pkg/apperror"

	"github.com/rs/zerolog"
)

// HTTPClient interface for testability.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client implements ports.Directory against the infra directory service's
// HTTP API.
type Client struct {
	baseURL    string
	httpClient HTTPClient
	log        zerolog.Logger
}

// NewClient creates a directory client.
func NewClient(cfg config.DirectoryConfig, httpClient HTTPClient, log zerolog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
		log:        log,
	}
}

// infraResponse is the directory's listing payload.
type infraResponse struct {
	Data struct {
		ID           string `json:"id"`
		OwnerAddress string `json:"owner_address"`
		Status       string `json:"status"`
	} `json:"data"`
}

func (c *Client) fetchInfra(ctx context.Context, infraID string) (*infraResponse, error) {
	url := fmt.Sprintf("%s/api/v1/infra/%s", c.baseURL, infraID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("building directory request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error().Err(err).Str("infra_id", infraID).Msg("directory lookup failed")
		return nil, apperror.ErrDirectoryUnavailable(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		c.log.Error().Int("status", resp.StatusCode).Str("infra_id", infraID).Msg("directory returned unexpected status")
		return nil, apperror.ErrDirectoryUnavailable(fmt.Errorf("directory status %d", resp.StatusCode))
	}

	var ir infraResponse
	if err := json.NewDecoder(resp.Body).Decode(&ir); err != nil {
		return nil, apperror.ErrDirectoryUnavailable(fmt.Errorf("decoding directory response: %w", err))
	}
	return &ir, nil
}

// InfraExists reports whether the directory knows the listing.
func (c *Client) InfraExists(ctx context.Context, infraID string) (bool, error) {
	ir, err := c.fetchInfra(ctx, infraID)
	if err != nil {
		return false, err
	}
	return ir != nil, nil
}

// InfraStatus returns the listing's lifecycle status. Unknown listings report
// as inactive.
func (c *Client) InfraStatus(ctx context.Context, infraID string) (domain.InfraStatus, error) {
	ir, err := c.fetchInfra(ctx, infraID)
	if err != nil {
		return domain.InfraStatusInactive, err
	}
	if ir == nil || ir.Data.Status != string(domain.InfraStatusActive) {
		return domain.InfraStatusInactive, nil
	}
	return domain.InfraStatusActive, nil
}

// InfraOwner resolves the provider payout account for a listing.
func (c *Client) InfraOwner(ctx context.Context, infraID string) (string, error) {
	ir, err := c.fetchInfra(ctx, infraID)
	if err != nil {
		return "", err
	}
	if ir == nil {
		return "", apperror.ErrNotFound("Infra listing")
	}
	return ir.Data.OwnerAddress, nil
}

// Package integration holds clients for collaborator services.
package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	apperrors "github.com/skafu/skafu/internal/platform/errors"
)

const defaultTemplateTimeout = 10 * time.Second

// TemplateInfo is the template registry's view of a template.
type TemplateInfo struct {
	ID            string `json:"id"`
	LatestVersion string `json:"latest_version"`
	Compatible    bool   `json:"compatible"`
}

// TemplateClient queries the template registry service.
type TemplateClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewTemplateClient builds a client for the registry at baseURL.
func NewTemplateClient(baseURL string, timeout time.Duration) (*TemplateClient, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("template registry url is required")
	}
	if timeout <= 0 {
		timeout = defaultTemplateTimeout
	}
	return &TemplateClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// GetTemplate fetches one template by id.
//
// A missing template is a NOT_FOUND domain error; transport failures and
// registry 5xx responses surface as INTEGRATION_FAILURE so callers can
// distinguish "template gone" from "registry down".
func (c *TemplateClient) GetTemplate(ctx context.Context, templateID string) (TemplateInfo, error) {
	if c == nil || c.httpClient == nil {
		return TemplateInfo{}, fmt.Errorf("template client is not configured")
	}
	templateID = strings.TrimSpace(templateID)
	if templateID == "" {
		return TemplateInfo{}, apperrors.New(apperrors.CodeValidation, "template id is required")
	}

	url := fmt.Sprintf("%s/templates/%s", c.baseURL, templateID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return TemplateInfo{}, fmt.Errorf("build template request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return TemplateInfo{}, apperrors.Wrap(apperrors.CodeIntegrationFailure, "template registry unreachable", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var info TemplateInfo
		if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
			return TemplateInfo{}, apperrors.Wrap(apperrors.CodeIntegrationFailure, "decode template response", err)
		}
		return info, nil
	case resp.StatusCode == http.StatusNotFound:
		return TemplateInfo{}, apperrors.WithMetadata(apperrors.CodeNotFound, "template not found", map[string]string{
			"template_id": templateID,
		})
	default:
		return TemplateInfo{}, apperrors.New(apperrors.CodeIntegrationFailure, fmt.Sprintf("template registry returned %d", resp.StatusCode))
	}
}

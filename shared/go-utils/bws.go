package utils

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	sdk "github.com/bitwarden/sdk-go"
)

const (
	bwsLoginAttempts  = 5
	bwsInitialBackoff = 500 * time.Millisecond
)

// BWSSecretsClient wraps an authenticated Bitwarden SDK client.
type BWSSecretsClient struct {
	bw    sdk.BitwardenClientInterface
	orgID string
}

// BWSEnabled reports whether secrets should be read from Bitwarden instead
// of plain environment variables.
func BWSEnabled() bool {
	return strings.TrimSpace(os.Getenv("BWS_ACCESS_TOKEN")) != ""
}

// NewBWSSecretsClient logs in with BWS_ACCESS_TOKEN. Rate-limited logins
// are retried with exponential backoff.
func NewBWSSecretsClient() (*BWSSecretsClient, error) {
	accessToken := os.Getenv("BWS_ACCESS_TOKEN")
	if strings.TrimSpace(accessToken) == "" {
		return nil, errors.New("BWS_ACCESS_TOKEN env var is missing or empty")
	}
	orgID := os.Getenv("BWS_ORGANIZATION_ID")
	if strings.TrimSpace(orgID) == "" {
		return nil, errors.New("BWS_ORGANIZATION_ID env var is missing or empty")
	}

	bw, err := sdk.NewBitwardenClient(nil, nil)
	if err != nil {
		return nil, fmt.Errorf("initialising Bitwarden SDK client: %w", err)
	}

	err = retry.Do(
		func() error { return bw.AccessTokenLogin(accessToken, nil) },
		retry.Attempts(bwsLoginAttempts),
		retry.Delay(bwsInitialBackoff),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isBWSRateLimited),
		retry.OnRetry(func(n uint, err error) {
			Logger.WithError(err).Warnf("Bitwarden rate limited login (attempt %d/%d)", n+1, bwsLoginAttempts)
		}),
	)
	if err != nil {
		bw.Close()
		return nil, fmt.Errorf("Bitwarden access-token login failed: %w", err)
	}
	return &BWSSecretsClient{bw: bw, orgID: orgID}, nil
}

// sdk-go does not expose a typed status code.
func isBWSRateLimited(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(msg, "Too Many Requests")
}

// Close releases resources held by the underlying SDK client.
func (c *BWSSecretsClient) Close() {
	if c != nil && c.bw != nil {
		c.bw.Close()
	}
}

// GetBWSSecrets returns every key/value secret of the named project.
func (c *BWSSecretsClient) GetBWSSecrets(projectName string) (map[string]string, error) {
	if strings.TrimSpace(projectName) == "" {
		return nil, errors.New("projectName must not be empty")
	}

	projectsResp, err := c.bw.Projects().List(c.orgID)
	if err != nil {
		return nil, fmt.Errorf("listing Bitwarden projects: %w", err)
	}

	var projectID string
	for _, p := range projectsResp.Data {
		if strings.EqualFold(p.Name, projectName) {
			projectID = p.ID
			break
		}
	}
	if projectID == "" {
		return nil, fmt.Errorf("project %q not found in organisation %s", projectName, c.orgID)
	}

	syncResp, err := c.bw.Secrets().Sync(c.orgID, nil)
	if err != nil {
		return nil, fmt.Errorf("syncing Bitwarden secrets: %w", err)
	}

	out := make(map[string]string)
	for _, s := range syncResp.Secrets {
		if s.ProjectID != nil && *s.ProjectID == projectID {
			out[s.Key] = s.Value
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no secrets found for project %q", projectName)
	}
	return out, nil
}

// SecretSource resolves named secrets either from a Bitwarden project map
// or, when Bitwarden is not configured, from the process environment.
type SecretSource struct {
	values map[string]string
}

// NewSecretSource merges the given Bitwarden projects, later projects
// overriding earlier ones. With BWS disabled it reads os.Getenv.
func NewSecretSource(projects ...string) (*SecretSource, error) {
	if !BWSEnabled() {
		return &SecretSource{}, nil
	}

	client, err := NewBWSSecretsClient()
	if err != nil {
		return nil, err
	}
	defer client.Close()

	merged := make(map[string]string)
	for _, p := range projects {
		secrets, err := client.GetBWSSecrets(p)
		if err != nil {
			return nil, err
		}
		for k, v := range secrets {
			merged[k] = v
		}
	}
	return &SecretSource{values: merged}, nil
}

// Get returns the secret for key, falling back to the environment.
func (s *SecretSource) Get(key string) string {
	if s != nil && s.values != nil {
		if v, ok := s.values[key]; ok && v != "" {
			return v
		}
	}
	return os.Getenv(key)
}

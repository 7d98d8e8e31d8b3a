// Package ghchecks reads check runs from the GitHub Checks API.
package ghchecks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v71/github"
	"golang.org/x/oauth2"
)

// DefaultAPIURL is the public GitHub REST endpoint.
const DefaultAPIURL = "https://api.github.com"

// ErrNoCredentials is returned when neither a token nor an app key is configured.
var ErrNoCredentials = errors.New("no GitHub credentials: set a token or app id, installation id and private key")

// Credentials authenticate against GitHub. Either Token, or the three App
// fields, must be set.
type Credentials struct {
	Token string

	AppID          int64
	InstallationID int64
	PrivateKey     []byte // PEM
}

// IsApp reports whether app installation auth is configured.
func (c Credentials) IsApp() bool {
	return c.AppID != 0
}

// NewClient builds a go-github client for apiURL. An empty apiURL or
// DefaultAPIURL targets github.com; anything else is treated as an
// Enterprise Server base URL.
func NewClient(ctx context.Context, creds Credentials, apiURL string) (*github.Client, error) {
	apiURL = strings.TrimSuffix(apiURL, "/")
	enterprise := apiURL != "" && apiURL != DefaultAPIURL

	var httpClient *http.Client
	switch {
	case creds.IsApp():
		if creds.InstallationID == 0 {
			return nil, errors.New("github app auth requires an installation id")
		}
		itr, err := ghinstallation.New(http.DefaultTransport, creds.AppID, creds.InstallationID, creds.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create GitHub app transport: %w", err)
		}
		if enterprise {
			itr.BaseURL = enterpriseAPIBase(apiURL)
		}
		httpClient = &http.Client{Transport: itr}
	case creds.Token != "":
		httpClient = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.Token}))
	default:
		return nil, ErrNoCredentials
	}

	client := github.NewClient(httpClient)
	if !enterprise {
		return client, nil
	}

	client, err := client.WithEnterpriseURLs(apiURL, apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid GitHub API URL %q: %w", apiURL, err)
	}
	return client, nil
}

// enterpriseAPIBase adds the /api/v3 REST prefix to an Enterprise Server
// host URL, matching what go-github does for its own base URL.
func enterpriseAPIBase(apiURL string) string {
	u, err := url.Parse(apiURL)
	if err != nil {
		return apiURL
	}
	if strings.HasSuffix(u.Path, "/api/v3") || strings.HasPrefix(u.Host, "api.") || strings.Contains(u.Host, ".api.") {
		return apiURL
	}
	return apiURL + "/api/v3"
}

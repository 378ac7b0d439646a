package commerce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// tokenSource fetches and caches an OAuth2 client-credentials token for the
// commerce platform API. Tokens are refreshed shortly before expiry.
type tokenSource struct {
	authURL      string
	clientID     string
	clientSecret string
	projectKey   string
	httpClient   *http.Client

	mu      sync.Mutex
	token   string
	expires time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

const tokenExpirySlack = 60 * time.Second

func newTokenSource(authURL, clientID, clientSecret, projectKey string, httpClient *http.Client) *tokenSource {
	return &tokenSource{
		authURL:      strings.TrimSuffix(authURL, "/"),
		clientID:     clientID,
		clientSecret: clientSecret,
		projectKey:   projectKey,
		httpClient:   httpClient,
	}
}

// Token returns a valid bearer token, fetching a new one when the cached
// token is missing or about to expire.
func (t *tokenSource) Token(ctx context.Context) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.token != "" && time.Now().Before(t.expires.Add(-tokenExpirySlack)) {
		return t.token, nil
	}

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("scope", "manage_project:"+t.projectKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.authURL+"/oauth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("error creating token request: %w", err)
	}
	req.SetBasicAuth(t.clientID, t.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error fetching token: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("token request returned status %d: %s", resp.StatusCode, string(body))
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("error decoding token response: %w", err)
	}

	t.token = tr.AccessToken
	t.expires = time.Now().Add(time.Duration(tr.ExpiresIn) * time.Second)
	return t.token, nil
}

// Invalidate drops the cached token so the next call fetches a fresh one.
func (t *tokenSource) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token = ""
}

package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/renameio/v2"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/youtube/v3"

	"onemin/internal/services"
)

var scopes = []string{youtube.YoutubeUploadScope, youtube.YoutubeScope}

// storedToken accepts both the oauth2.Token JSON shape and the authorized
// user shape written by Google's Python client libraries.
type storedToken struct {
	AccessToken  string    `json:"access_token"`
	Token        string    `json:"token"`
	TokenType    string    `json:"token_type"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry"`
}

func (s storedToken) oauth2Token() *oauth2.Token {
	access := s.AccessToken
	if access == "" {
		access = s.Token
	}
	tokenType := s.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	return &oauth2.Token{
		AccessToken:  access,
		TokenType:    tokenType,
		RefreshToken: s.RefreshToken,
		Expiry:       s.Expiry,
	}
}

// authorizedClient builds an HTTP client that signs requests with the stored
// token and refreshes it through the client secrets when it expires.
func authorizedClient(ctx context.Context, secretsFile, tokenFile string) (*http.Client, error) {
	secrets, err := os.ReadFile(secretsFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "upload", "credentials",
				fmt.Sprintf("OAuth client secrets not found at %s (set youtube.client_secrets_file)", secretsFile), nil)
		}
		return nil, services.Wrap(services.ErrTransient, "upload", "credentials", "Read youtube.client_secrets_file", err)
	}
	conf, err := google.ConfigFromJSON(secrets, scopes...)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "upload", "credentials", "Parse youtube.client_secrets_file", err)
	}

	raw, err := os.ReadFile(tokenFile)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, services.Wrap(services.ErrNotFound, "upload", "credentials",
				fmt.Sprintf("OAuth token not found at %s (set youtube.token_file)", tokenFile), nil)
		}
		return nil, services.Wrap(services.ErrTransient, "upload", "credentials", "Read youtube.token_file", err)
	}
	var stored storedToken
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "upload", "credentials", "Parse youtube.token_file", err)
	}
	token := stored.oauth2Token()
	if token.AccessToken == "" && token.RefreshToken == "" {
		return nil, services.Wrap(services.ErrConfiguration, "upload", "credentials",
			"youtube.token_file has neither an access token nor a refresh token", nil)
	}

	source := &persistingSource{
		base: conf.TokenSource(ctx, token),
		path: tokenFile,
		last: token.AccessToken,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(token, source)), nil
}

// persistingSource writes refreshed tokens back to the token file so the
// next process starts with a valid access token.
type persistingSource struct {
	mu   sync.Mutex
	base oauth2.TokenSource
	path string
	last string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		p.last = tok.AccessToken
		if data, err := json.MarshalIndent(tok, "", "  "); err == nil {
			_ = renameio.WriteFile(p.path, data, 0o600)
		}
	}
	return tok, nil
}

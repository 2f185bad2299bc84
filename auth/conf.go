package auth

import (
	"errors"
	"strings"

	"golang.org/x/oauth2/clientcredentials"
)

// Conf holds the OAuth2 client credentials used for outbound calls.
type Conf struct {
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	AuthURL      string   `json:"auth_url"`
	Scopes       []string `json:"scopes"`
}

// Enabled reports whether a token endpoint is configured.
func (c Conf) Enabled() bool { return c.AuthURL != "" }

// Validate requires a client id alongside the token endpoint.
func (c Conf) Validate() error {
	if !c.Enabled() {
		return nil
	}
	if strings.TrimSpace(c.ClientID) == "" {
		return errors.New("auth: client_id is required with auth_url")
	}
	return nil
}

func (c *Conf) toOauth2Config() clientcredentials.Config {
	return clientcredentials.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		TokenURL:     c.AuthURL,
		Scopes:       c.Scopes,
	}
}

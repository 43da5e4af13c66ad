package rsgapi

import (
	"context"
	"fmt"
	"net/url"
)

// tokenResp is the JSON body returned by the token endpoint.
type tokenResp struct {
	Token string `json:"token"`
}

// IssueToken exchanges a username and password for an API token.
// The request is sent without any Authorization header.
func (c *Client) IssueToken(ctx context.Context, username, password string) (string, error) {
	req, err := newFormRequest(ctx, c.baseURL+PathGetToken, url.Values{
		"username": {username},
		"password": {password},
	})
	if err != nil {
		return "", err
	}

	var tr tokenResp
	if err := c.do(c.base, req, &tr); err != nil {
		return "", err
	}
	if tr.Token == "" {
		return "", fmt.Errorf("token response from %s did not contain a token", PathGetToken)
	}
	return tr.Token, nil
}

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
)

// TokenSource supplies the CSRF token sent with every edit.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a token obtained out of band.
type StaticToken string

// Token returns the token itself.
func (t StaticToken) Token(context.Context) (string, error) {
	return string(t), nil
}

// QueryTokenSource fetches a token with action=query&meta=tokens and keeps it
// until Invalidate is called.
type QueryTokenSource struct {
	client *Client

	mu    sync.Mutex
	token string
}

// NewQueryTokenSource creates a token source reading from c's endpoint.
func NewQueryTokenSource(c *Client) *QueryTokenSource {
	return &QueryTokenSource{client: c}
}

// Token returns the cached token, fetching it first if needed.
func (s *QueryTokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.token != "" {
		return s.token, nil
	}

	form := url.Values{}
	form.Set("action", "query")
	form.Set("meta", "tokens")
	form.Set("type", "csrf")
	body, err := s.client.call(ctx, "query", form)
	if err != nil {
		return "", err
	}

	var resp struct {
		Query struct {
			Tokens struct {
				CSRF string `json:"csrftoken"`
			} `json:"tokens"`
		} `json:"query"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("%w: token response: %v", ErrParse, err)
	}
	if resp.Query.Tokens.CSRF == "" {
		return "", fmt.Errorf("%w: token response has no csrftoken", ErrParse)
	}
	s.token = resp.Query.Tokens.CSRF
	return s.token, nil
}

// Invalidate drops the cached token.
func (s *QueryTokenSource) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

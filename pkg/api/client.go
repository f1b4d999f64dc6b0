package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"wikibasego/pkg/config"
	"wikibasego/pkg/logging"
	"wikibasego/pkg/request"
	"wikibasego/pkg/tracker"
	"wikibasego/pkg/wikibase"
)

const apiEndpoint = "https://www.wikidata.org/w/api.php"

// Client talks to a MediaWiki api.php with the Wikibase extension. It
// implements wikibase.Gateway.
type Client struct {
	request     *request.Client
	tracker     *tracker.Tracker
	APIEndpoint string
	Logger      *slog.Logger
	// Tokens supplies edit tokens. A nil source fetches them with meta=tokens.
	Tokens TokenSource
	// Bot marks edits as bot edits.
	Bot bool
	// BatchSize caps ids per wbgetentities request.
	BatchSize int
	// Languages restricts fetched terms when a read names no languages.
	Languages []string
}

var _ wikibase.Gateway = (*Client)(nil)

// NewClient creates a new client against the Wikidata endpoint.
func NewClient(r *request.Client, t *tracker.Tracker, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		request:     r,
		tracker:     t,
		APIEndpoint: apiEndpoint,
		Logger:      logger,
		BatchSize:   config.MaxBatchSize,
	}
	c.Tokens = NewQueryTokenSource(c)
	return c
}

// NewFromConfig builds the transport and the client from cfg.
func NewFromConfig(cfg *config.Config, t *tracker.Tracker) *Client {
	r := request.New(t, request.ClientConfig{
		Timeout:   cfg.Request.Timeout.Std(),
		Retries:   cfg.Request.Retries,
		BaseDelay: cfg.Request.Backoff.BaseDelay.Std(),
		MaxDelay:  cfg.Request.Backoff.MaxDelay.Std(),
		Gap:       cfg.Request.Gap.Std(),
		UserAgent: cfg.API.UserAgent,
	})
	c := NewClient(r, t, slog.With("component", "wikibase_api"))
	c.APIEndpoint = cfg.API.Endpoint
	c.Bot = cfg.API.Bot
	c.Languages = cfg.API.Languages
	if cfg.API.BatchSize > 0 && cfg.API.BatchSize <= config.MaxBatchSize {
		c.BatchSize = cfg.API.BatchSize
	}
	if cfg.API.CSRFToken != "" {
		c.Tokens = StaticToken(cfg.API.CSRFToken)
	}
	return c
}

// Close shuts down the transport. Only call it when the client owns the
// transport, as one built by NewFromConfig does.
func (c *Client) Close() {
	c.request.Close()
}

type errorPayload struct {
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// call posts form to the endpoint and returns the body of a successful
// response. Error payloads become *wikibase.RemoteError.
func (c *Client) call(ctx context.Context, action string, form url.Values) ([]byte, error) {
	form.Set("format", "json")
	form.Set("formatversion", "1")
	logging.RequestLogger.Info("API call", "action", action, "params", redact(form))

	body, err := c.request.PostForm(ctx, c.APIEndpoint, form)
	if err != nil {
		c.track(action, err)
		return nil, fmt.Errorf("%w: %s: %w", ErrTransport, action, err)
	}

	var payload errorPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		err = fmt.Errorf("%w: %s: %v", ErrParse, action, err)
		c.track(action, err)
		return nil, err
	}
	if payload.Error != nil {
		rerr := &wikibase.RemoteError{Code: payload.Error.Code, Info: payload.Error.Info}
		c.track(action, rerr)
		c.Logger.Warn("API error", "action", action, "code", rerr.Code, "info", rerr.Info)
		return nil, rerr
	}
	c.track(action, nil)
	return body, nil
}

func (c *Client) track(action string, err error) {
	if c.tracker == nil {
		return
	}
	var rerr *wikibase.RemoteError
	switch {
	case err == nil:
		c.tracker.TrackSuccess(action)
	case errors.As(err, &rerr):
		c.tracker.TrackRemoteError(action, rerr.Code)
	default:
		c.tracker.TrackFailure(action)
	}
}

// edit performs a write action: it adds the token and the common edit
// parameters, and retries once with a fresh token on badtoken.
func (c *Client) edit(ctx context.Context, action string, form url.Values, baseRevisionID int64, summary string) ([]byte, error) {
	if c.Bot {
		form.Set("bot", "1")
	}
	if baseRevisionID > 0 {
		form.Set("baserevid", fmt.Sprint(baseRevisionID))
	}
	if summary != "" {
		form.Set("summary", summary)
	}

	for attempt := 0; ; attempt++ {
		token, err := c.Tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("edit token: %w", err)
		}
		form.Set("token", token)

		body, err := c.call(ctx, action, form)
		var rerr *wikibase.RemoteError
		if attempt == 0 && errors.As(err, &rerr) && rerr.Code == "badtoken" {
			if inv, ok := c.Tokens.(interface{ Invalidate() }); ok {
				c.Logger.Info("Edit token rejected, refreshing", "action", action)
				inv.Invalidate()
				continue
			}
		}
		return body, err
	}
}

// editResult decodes an edit response. wbeditentity reports the new revision
// inside the entity rather than in pageinfo.
func (c *Client) editResult(action string, body []byte) (*wikibase.EditResult, error) {
	var res wikibase.EditResult
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, action, err)
	}
	if res.PageInfo == nil && len(res.Entity) > 0 {
		var rev struct {
			LastRevisionID int64 `json:"lastrevid"`
		}
		if err := json.Unmarshal(res.Entity, &rev); err == nil && rev.LastRevisionID > 0 {
			res.PageInfo = &wikibase.PageInfo{LastRevisionID: rev.LastRevisionID}
		}
	}
	return &res, nil
}

func redact(form url.Values) string {
	clean := make(url.Values, len(form))
	for k, v := range form {
		if k == "token" {
			continue
		}
		clean[k] = v
	}
	return clean.Encode()
}

func joinPipe(values []string) string {
	return strings.Join(values, "|")
}

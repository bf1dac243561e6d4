// Package rug reads the rug catalog from the Rug API.
package rug

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"rugsync/internal/httpclient"
	"rugsync/internal/logger"
	"rugsync/internal/models"
	"rugsync/internal/syncerr"
)

const (
	PageSize = 200
	TokenTTL = 3 * time.Hour
)

// TokenStore persists bearer tokens issued for a shop.
type TokenStore interface {
	SaveToken(ctx context.Context, shopID, token string, expiresAt time.Time) error
}

type Connector struct {
	baseURL   string
	client    *httpclient.Client
	tokens    TokenStore
	pageDelay time.Duration
	logger    *logger.Logger
	now       func() time.Time
}

func New(baseURL string, client *httpclient.Client, tokens TokenStore, pageDelay time.Duration, logger *logger.Logger) *Connector {
	return &Connector{
		baseURL:   strings.TrimRight(baseURL, "/"),
		client:    client,
		tokens:    tokens,
		pageDelay: pageDelay,
		logger:    logger,
		now:       time.Now,
	}
}

type tokenResponse struct {
	Token string `json:"token"`
}

type pageResponse struct {
	Data       []json.RawMessage `json:"data"`
	Pagination struct {
		Next json.RawMessage `json:"next"`
	} `json:"pagination"`
}

// AcquireToken returns the shop's cached bearer token while it is valid and
// otherwise requests, caches and persists a new one. The shop is updated in
// place.
func (c *Connector) AcquireToken(ctx context.Context, shop *models.Shop) (string, error) {
	now := c.now()
	if shop.TokenValid(now) {
		return shop.BearerToken, nil
	}
	if shop.RugAPIKey == "" {
		return "", &syncerr.AuthError{Shop: shop.Name, Err: errors.New("no api key configured")}
	}

	h := http.Header{}
	h.Set("x-api-key", shop.RugAPIKey)
	h.Set("Accept", "application/json")

	resp, err := c.client.Do(ctx, http.MethodPost, c.baseURL+"/api/token", h, nil)
	if err != nil {
		return "", &syncerr.AuthError{Shop: shop.Name, Err: err}
	}

	var tr tokenResponse
	if err := json.Unmarshal(resp.Body, &tr); err != nil {
		return "", &syncerr.AuthError{Shop: shop.Name, Err: fmt.Errorf("failed to decode token response: %w", err)}
	}
	if tr.Token == "" {
		return "", &syncerr.AuthError{Shop: shop.Name, Err: errors.New("token missing from response")}
	}

	expires := now.Add(TokenTTL)
	shop.BearerToken = tr.Token
	shop.TokenExpiresAt = &expires

	if c.tokens != nil {
		if err := c.tokens.SaveToken(ctx, shop.ID, tr.Token, expires); err != nil {
			// the token is still usable for this run
			c.logger.Warn("Failed to persist token for shop %s: %v", shop.Name, err)
		}
	}
	return tr.Token, nil
}

// FetchAll pages through the whole catalog. It stops on an empty page or
// when the API reports no next page. If a page fails, the records read so
// far are returned together with a *syncerr.FetchError.
func (c *Connector) FetchAll(ctx context.Context, token string) ([]Record, error) {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	h.Set("Accept", "application/json")

	var records []Record
	skip := 0

	for page := 1; ; page++ {
		url := fmt.Sprintf("%s/api/rug?limit=%d&skip=%d", c.baseURL, PageSize, skip)

		resp, err := c.client.Do(ctx, http.MethodGet, url, h, nil)
		if err != nil {
			return records, &syncerr.FetchError{Page: page, Err: err}
		}

		var pr pageResponse
		if err := json.Unmarshal(resp.Body, &pr); err != nil {
			return records, &syncerr.FetchError{Page: page, Err: fmt.Errorf("failed to decode page: %w", err)}
		}
		if len(pr.Data) == 0 {
			break
		}

		for i, raw := range pr.Data {
			var rec Record
			if err := json.Unmarshal(raw, &rec); err != nil {
				c.logger.Warn("Skipping undecodable record %d on page %d: %v", i, page, err)
				continue
			}
			records = append(records, rec)
		}
		c.logger.Debug("Fetched page %d (%d records, %d total)", page, len(pr.Data), len(records))

		if !hasNext(pr.Pagination.Next) {
			break
		}
		skip += len(pr.Data)
		httpclient.Pause(ctx, c.pageDelay)
	}

	return records, nil
}

func hasNext(raw json.RawMessage) bool {
	switch strings.TrimSpace(string(raw)) {
	case "", "null", "false", `""`:
		return false
	}
	return true
}

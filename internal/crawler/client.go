package crawler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Client talks to the MediaWiki action API of one wiki.
type Client struct {
	scraper *Scraper
	apiURL  string
}

// NewClient creates an API client for apiURL using scraper for transport.
func NewClient(apiURL string, scraper *Scraper) *Client {
	return &Client{
		scraper: scraper,
		apiURL:  apiURL,
	}
}

// apiError is the {"error": {...}} member of a failed API response.
type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type envelope struct {
	Error *apiError `json:"error"`
}

// Call performs one API request. format=json and formatversion=2 are always
// set; action defaults to query.
func (c *Client) Call(ctx context.Context, params url.Values, out any) error {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}

	if q.Get("action") == "" {
		q.Set("action", "query")
	}

	q.Set("format", "json")
	q.Set("formatversion", "2")

	reqURL := c.apiURL + "?" + q.Encode()

	body, err := c.scraper.Scrape(ctx, reqURL)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	if env.Error != nil {
		return fmt.Errorf("%w: %s: %s", ErrAPI, env.Error.Code, env.Error.Info)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}

	return nil
}

type parseResponse struct {
	Parse *struct {
		Title  string `json:"title"`
		Text   string `json:"text"`
		PageID int64  `json:"pageid"`
		RevID  int64  `json:"revid"`
	} `json:"parse"`
}

// ParseRevision returns the rendered HTML of a revision.
func (c *Client) ParseRevision(ctx context.Context, revID int64) (string, error) {
	params := url.Values{
		"action":             {"parse"},
		"oldid":              {strconv.FormatInt(revID, 10)},
		"prop":               {"text"},
		"disableeditsection": {"1"},
		"disabletoc":         {"1"},
	}

	var resp parseResponse
	if err := c.Call(ctx, params, &resp); err != nil {
		return "", fmt.Errorf("parse revision %d: %w", revID, err)
	}

	if resp.Parse == nil {
		return "", fmt.Errorf("parse revision %d: %w: missing parse member", revID, ErrMalformedResponse)
	}

	return resp.Parse.Text, nil
}

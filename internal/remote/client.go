package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/dghubble/oauth1"

	"github.com/roach88/plume/internal/dag"
)

// DefaultBaseURL is the versioned REST surface of the host.
const DefaultBaseURL = "https://api.twitter.com/2"

// ClientOptions tunes a network-backed adapter. Zero values pick the
// defaults noted on each field.
type ClientOptions struct {
	BaseURL     string        // default DefaultBaseURL
	HTTPTimeout time.Duration // default 30s
	MaxRequests int           // rate limit: requests per window, default 50
	Window      time.Duration // rate limit window, default 15m
	Retry       RetryConfig   // zero value means DefaultRetryConfig
}

func (o *ClientOptions) withDefaults() ClientOptions {
	out := ClientOptions{}
	if o != nil {
		out = *o
	}
	if out.BaseURL == "" {
		out.BaseURL = DefaultBaseURL
	}
	if out.HTTPTimeout == 0 {
		out.HTTPTimeout = 30 * time.Second
	}
	if out.MaxRequests == 0 {
		out.MaxRequests = 50
	}
	if out.Window == 0 {
		out.Window = 15 * time.Minute
	}
	if out.Retry.MaxAttempts == 0 {
		out.Retry = DefaultRetryConfig()
	}
	return out
}

// Client talks to the host's REST surface. Every call passes rate
// limiter admission and the retry policy before a failure is
// surfaced. Construct via NewBearerClient or NewSignedClient.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *RateLimiter
	retrier *Retrier
}

// NewBearerClient creates an adapter authenticating with an app-only
// bearer token.
func NewBearerClient(token string, opts *ClientOptions) *Client {
	o := opts.withDefaults()
	return &Client{
		baseURL: o.BaseURL,
		http: &http.Client{
			Timeout:   o.HTTPTimeout,
			Transport: &bearerTransport{token: token, base: http.DefaultTransport},
		},
		limiter: NewRateLimiter(o.MaxRequests, o.Window),
		retrier: NewRetrier(o.Retry),
	}
}

// Credentials is the OAuth1 credential quad for request signing.
type Credentials struct {
	APIKey            string
	APISecret         string
	AccessToken       string
	AccessTokenSecret string
}

// NewSignedClient creates an adapter that signs every request with
// OAuth1 user credentials. Posting requires signed requests; bearer
// tokens are read-only on the current host.
func NewSignedClient(creds Credentials, opts *ClientOptions) *Client {
	o := opts.withDefaults()
	config := oauth1.NewConfig(creds.APIKey, creds.APISecret)
	token := oauth1.NewToken(creds.AccessToken, creds.AccessTokenSecret)
	httpClient := config.Client(oauth1.NoContext, token)
	httpClient.Timeout = o.HTTPTimeout
	return &Client{
		baseURL: o.BaseURL,
		http:    httpClient,
		limiter: NewRateLimiter(o.MaxRequests, o.Window),
		retrier: NewRetrier(o.Retry),
	}
}

type bearerTransport struct {
	token string
	base  http.RoundTripper
}

func (t *bearerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(clone)
}

type tweetData struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	AuthorID  string `json:"author_id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type tweetEnvelope struct {
	Data   tweetData `json:"data"`
	Errors []struct {
		Detail string `json:"detail"`
		Title  string `json:"title"`
	} `json:"errors,omitempty"`
}

type createRequest struct {
	Text  string       `json:"text"`
	Reply *replyTarget `json:"reply,omitempty"`
}

type replyTarget struct {
	InReplyToTweetID string `json:"in_reply_to_tweet_id"`
}

type searchEnvelope struct {
	Data []struct {
		ID               string `json:"id"`
		ReferencedTweets []struct {
			Type string `json:"type"`
			ID   string `json:"id"`
		} `json:"referenced_tweets,omitempty"`
	} `json:"data"`
	Meta struct {
		NextToken string `json:"next_token,omitempty"`
	} `json:"meta"`
}

// Fetch implements Adapter.
func (c *Client) Fetch(ctx context.Context, id dag.PostID) ([]byte, error) {
	var env tweetEnvelope
	endpoint := fmt.Sprintf("%s/tweets/%s?tweet.fields=created_at,author_id", c.baseURL, url.PathEscape(id))
	if err := c.call(ctx, http.MethodGet, endpoint, nil, &env); err != nil {
		return nil, err
	}
	if env.Data.ID == "" {
		return nil, &APIError{Message: fmt.Sprintf("post not found: %s", id)}
	}
	return []byte(env.Data.Text), nil
}

// Store implements Adapter.
func (c *Client) Store(ctx context.Context, content []byte) (dag.PostID, error) {
	return c.create(ctx, createRequest{Text: string(content)})
}

// StoreReply implements Adapter.
func (c *Client) StoreReply(ctx context.Context, parent dag.PostID, content []byte) (dag.PostID, error) {
	return c.create(ctx, createRequest{
		Text:  string(content),
		Reply: &replyTarget{InReplyToTweetID: parent},
	})
}

func (c *Client) create(ctx context.Context, req createRequest) (dag.PostID, error) {
	var env tweetEnvelope
	if err := c.call(ctx, http.MethodPost, c.baseURL+"/tweets", req, &env); err != nil {
		return "", err
	}
	if env.Data.ID == "" {
		return "", &APIError{Message: "host returned no post ID"}
	}
	return env.Data.ID, nil
}

// FetchReplies implements Adapter. The host exposes replies through
// conversation search; results are paged at PageSize and filtered to
// direct replies of id.
func (c *Client) FetchReplies(ctx context.Context, id dag.PostID) ([]dag.PostID, error) {
	var replies []dag.PostID
	nextToken := ""

	for {
		q := url.Values{}
		q.Set("query", fmt.Sprintf("conversation_id:%s", id))
		q.Set("max_results", fmt.Sprintf("%d", PageSize))
		q.Set("tweet.fields", "referenced_tweets")
		if nextToken != "" {
			q.Set("next_token", nextToken)
		}

		var env searchEnvelope
		endpoint := c.baseURL + "/tweets/search/recent?" + q.Encode()
		if err := c.call(ctx, http.MethodGet, endpoint, nil, &env); err != nil {
			return nil, err
		}

		for _, tw := range env.Data {
			for _, ref := range tw.ReferencedTweets {
				if ref.Type == "replied_to" && ref.ID == id {
					replies = append(replies, tw.ID)
				}
			}
		}

		nextToken = env.Meta.NextToken
		if nextToken == "" {
			return replies, nil
		}
	}
}

// call performs one logical API call: rate limiter admission, then the
// HTTP round trip under the retry policy, then JSON decoding.
func (c *Client) call(ctx context.Context, method, endpoint string, body, out any) error {
	return c.retrier.Do(ctx, func() error {
		if err := c.limiter.Acquire(ctx); err != nil {
			return err
		}

		var reader io.Reader
		if body != nil {
			payload, err := json.Marshal(body)
			if err != nil {
				return fmt.Errorf("encode request: %w", err)
			}
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return ErrRateLimited
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			return &APIError{Status: resp.StatusCode, Message: string(raw)}
		}

		if out != nil {
			if err := json.Unmarshal(raw, out); err != nil {
				return fmt.Errorf("decode response: %w", err)
			}
		}
		return nil
	})
}

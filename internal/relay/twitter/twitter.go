// Package twitter implements the source-platform capability over the
// Twitter v2 API using gotwi.
package twitter

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/michimani/gotwi"
	"github.com/michimani/gotwi/fields"
	"github.com/michimani/gotwi/resources"
	"github.com/michimani/gotwi/tweet/timeline"
	timelinetypes "github.com/michimani/gotwi/tweet/timeline/types"
	"github.com/michimani/gotwi/user/userlookup"
	userlookuptypes "github.com/michimani/gotwi/user/userlookup/types"

	"github.com/blacktop/skyrelay/internal/logutil"
	"github.com/blacktop/skyrelay/internal/relay"
)

const httpTimeout = 30 * time.Second

// timelineMinPage is the smallest page size the user-tweets timeline
// endpoint accepts; requests for fewer posts still fetch a page this big.
const timelineMinPage = 5

// Config captures the OAuth 1.0a user-context credentials.
type Config struct {
	APIKey       string
	APISecret    string
	AccessToken  string
	AccessSecret string
}

// Client implements relay.SourceClient for X (Twitter).
type Client struct {
	api *gotwi.Client
}

// New constructs an authenticated Twitter reader.
func New(ctx context.Context, cfg Config) (*Client, error) {
	httpClient := &http.Client{Timeout: httpTimeout}

	client, err := gotwi.NewClient(&gotwi.NewClientInput{
		HTTPClient:           httpClient,
		AuthenticationMethod: gotwi.AuthenMethodOAuth1UserContext,
		OAuthToken:           cfg.AccessToken,
		OAuthTokenSecret:     cfg.AccessSecret,
		APIKey:               cfg.APIKey,
		APIKeySecret:         cfg.APISecret,
		Debug:                logutil.Verbose(),
	})
	if err != nil {
		return nil, fmt.Errorf("create X client: %w", err)
	}

	if !client.IsReady() {
		return nil, errors.New("twitter client not ready")
	}

	return &Client{api: client}, nil
}

// ResolveAccountID looks up the stable user id behind a handle.
func (c *Client) ResolveAccountID(ctx context.Context, handle string) (string, error) {
	out, err := userlookup.GetByUsername(ctx, c.api, &userlookuptypes.GetByUsernameInput{
		Username: strings.TrimPrefix(handle, "@"),
	})
	if err != nil {
		return "", fmt.Errorf("lookup %s: %w", handle, unwrapGotwiError(err))
	}

	id := gotwi.StringValue(out.Data.ID)
	if id == "" {
		return "", fmt.Errorf("user %s not found", handle)
	}
	return id, nil
}

// LatestPosts fetches the account's newest tweets, most recent first, with
// link entities expanded.
func (c *Client) LatestPosts(ctx context.Context, accountID string, count int) ([]relay.SourcePost, error) {
	pageSize := count
	if pageSize < timelineMinPage {
		pageSize = timelineMinPage
	}

	out, err := timeline.ListTweets(ctx, c.api, &timelinetypes.ListTweetsInput{
		ID:          accountID,
		MaxResults:  timelinetypes.ListMaxResults(pageSize),
		TweetFields: fields.TweetFieldList{fields.TweetFieldEntities},
	})
	if err != nil {
		return nil, fmt.Errorf("list tweets: %w", unwrapGotwiError(err))
	}

	posts := make([]relay.SourcePost, 0, count)
	for _, tweet := range out.Data {
		posts = append(posts, toSourcePost(tweet))
		if len(posts) == count {
			break
		}
	}
	return posts, nil
}

func toSourcePost(tweet resources.Tweet) relay.SourcePost {
	post := relay.SourcePost{
		ID:   gotwi.StringValue(tweet.ID),
		Text: gotwi.StringValue(tweet.Text),
	}
	if tweet.Entities != nil {
		for _, u := range tweet.Entities.URLs {
			expanded := gotwi.StringValue(u.ExpandedURL)
			if expanded == "" {
				expanded = gotwi.StringValue(u.URL)
			}
			if expanded != "" {
				post.URLs = append(post.URLs, expanded)
			}
		}
	}
	return post
}

func unwrapGotwiError(err error) error {
	var gwErr *gotwi.GotwiError
	if errors.As(err, &gwErr) && gwErr != nil {
		return fmt.Errorf("%s", summarizeGotwiError(gwErr))
	}
	return err
}

func summarizeGotwiError(err *gotwi.GotwiError) string {
	if err == nil {
		return "unknown X API error"
	}

	parts := make([]string, 0, 4)
	if err.Title != "" {
		parts = append(parts, err.Title)
	}
	if err.Detail != "" {
		parts = append(parts, err.Detail)
	}
	for _, apiErr := range err.APIErrors {
		if apiErr.Message != "" {
			parts = append(parts, apiErr.Message)
		}
	}
	if len(parts) == 0 {
		if msg := err.Error(); msg != "" {
			parts = append(parts, msg)
		}
	}
	if len(parts) == 0 {
		parts = append(parts, "X API request failed")
	}

	return strings.Join(parts, "; ")
}

// Package bluesky implements the destination-platform capability over the
// AT Protocol using indigo's xrpc client.
package bluesky

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/api/bsky"
	"github.com/bluesky-social/indigo/lex/util"
	"github.com/bluesky-social/indigo/xrpc"

	"github.com/blacktop/skyrelay/internal/relay"
)

const requestTimeout = 30 * time.Second

// Config holds the connection settings for one Bluesky session.
type Config struct {
	PDSURL      string
	Handle      string
	AppPassword string
}

// Client implements relay.DestinationClient for Bluesky.
type Client struct {
	client *xrpc.Client
}

// New authenticates against the PDS and returns a publishing client. Use an
// App Password, not the account password.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.PDSURL == "" {
		cfg.PDSURL = "https://bsky.social"
	}

	httpClient := &http.Client{Timeout: requestTimeout}
	userAgent := "skyrelay/1"
	xrpcClient := &xrpc.Client{
		Client:    httpClient,
		Host:      cfg.PDSURL,
		UserAgent: &userAgent,
	}

	session, err := atproto.ServerCreateSession(ctx, xrpcClient, &atproto.ServerCreateSession_Input{
		Identifier: cfg.Handle,
		Password:   cfg.AppPassword,
	})
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	xrpcClient.Auth = &xrpc.AuthInfo{
		AccessJwt:  session.AccessJwt,
		RefreshJwt: session.RefreshJwt,
		Handle:     session.Handle,
		Did:        session.Did,
	}

	return &Client{client: xrpcClient}, nil
}

// UploadBlob stores raw bytes on the PDS and returns the blob reference for
// use in a post record.
func (c *Client) UploadBlob(ctx context.Context, data []byte) (relay.BlobRef, error) {
	resp, err := atproto.RepoUploadBlob(ctx, c.client, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("upload blob: %w", err)
	}
	if resp.Blob == nil {
		return nil, fmt.Errorf("upload blob: empty response")
	}
	return resp.Blob, nil
}

// Publish creates an app.bsky.feed.post record with an optional external
// link embed, returning the record URI.
func (c *Client) Publish(ctx context.Context, text string, embed *relay.Embed) (string, error) {
	post := &bsky.FeedPost{
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
		Text:      text,
	}

	if embed != nil {
		thumb, ok := embed.Thumb.(*util.LexBlob)
		if !ok {
			return "", fmt.Errorf("publish: unexpected blob reference %T", embed.Thumb)
		}
		post.Embed = &bsky.FeedPost_Embed{
			EmbedExternal: &bsky.EmbedExternal{
				External: &bsky.EmbedExternal_External{
					Title:       embed.Title,
					Description: embed.Description,
					Uri:         embed.URI,
					Thumb:       thumb,
				},
			},
		}
	}

	out, err := atproto.RepoCreateRecord(ctx, c.client, &atproto.RepoCreateRecord_Input{
		Collection: "app.bsky.feed.post",
		Repo:       c.client.Auth.Did,
		Record: &util.LexiconTypeDecoder{
			Val: post,
		},
	})
	if err != nil {
		return "", fmt.Errorf("create record: %w", err)
	}

	return out.Uri, nil
}

package relay

import "context"

// AccountPair binds one source account to one destination account. Pairs are
// immutable for the lifetime of the process.
type AccountPair struct {
	SourceHandle string
	DestHandle   string
	DestPassword string
}

// SourcePost is one post fetched from the source platform. URLs carries the
// expanded form of any links embedded in the text, in document order.
type SourcePost struct {
	ID   string
	Text string
	URLs []string
}

// LinkMetadata is the preview metadata extracted from a linked page.
// Thumbnail is empty when the page declares no og:image.
type LinkMetadata struct {
	Title       string
	Description string
	Thumbnail   string
}

// BlobRef identifies a binary uploaded to the destination platform. Its
// concrete type is owned by the destination client implementation; the core
// only passes it back unmodified when publishing.
type BlobRef any

// Embed is a link-preview attachment for a destination post.
type Embed struct {
	Title       string
	Description string
	URI         string
	Thumb       BlobRef
}

// SourceClient reads posts from the source platform on behalf of one
// authenticated session.
type SourceClient interface {
	// ResolveAccountID maps a handle to the platform's stable account id.
	ResolveAccountID(ctx context.Context, handle string) (string, error)

	// LatestPosts returns up to count posts for the account, most recent
	// first. An empty slice is a valid result, not an error.
	LatestPosts(ctx context.Context, accountID string, count int) ([]SourcePost, error)
}

// DestinationClient publishes posts to the destination platform on behalf of
// one authenticated session.
type DestinationClient interface {
	// UploadBlob stores raw bytes on the destination and returns a
	// reference usable in a subsequent Publish.
	UploadBlob(ctx context.Context, data []byte) (BlobRef, error)

	// Publish creates a post with the given text and optional link-preview
	// embed, returning the created post's identifier.
	Publish(ctx context.Context, text string, embed *Embed) (string, error)
}

// SourceDialer authenticates to the source platform for one account pair.
type SourceDialer func(ctx context.Context, pair AccountPair) (SourceClient, error)

// DestinationDialer authenticates to the destination platform for one
// account pair.
type DestinationDialer func(ctx context.Context, pair AccountPair) (DestinationClient, error)

package relay

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/blacktop/skyrelay/internal/logutil"
)

// DefaultInterval is the delay between poll cycles for one account pair.
const DefaultInterval = 60 * time.Second

// Relay mirrors new posts from one source account to one destination
// account. Each relay owns its state exclusively and runs strictly
// sequentially: one cycle at a time, one post in flight at a time.
type Relay struct {
	pair       AccountPair
	dialSource SourceDialer
	dialDest   DestinationDialer
	preview    *Preview
	interval   time.Duration
	log        *log.Logger

	source    SourceClient
	dest      DestinationClient
	accountID string

	// lastRelayedID is the dedup marker. It is only advanced after a
	// confirmed successful publish, so a failed publish leaves the post
	// eligible for retry on the next poll.
	lastRelayedID string
}

// NewRelay builds a relay for one account pair. A zero interval selects
// DefaultInterval.
func NewRelay(pair AccountPair, dialSource SourceDialer, dialDest DestinationDialer, preview *Preview, interval time.Duration) *Relay {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if preview == nil {
		preview = NewPreview(nil)
	}
	logger := logutil.With("source", pair.SourceHandle, "dest", pair.DestHandle)
	return &Relay{
		pair:       pair,
		dialSource: dialSource,
		dialDest:   dialDest,
		preview:    preview.WithLogger(logger),
		interval:   interval,
		log:        logger,
	}
}

// Run authenticates to both platforms and polls until ctx is cancelled.
// Login or account-resolution failure terminates this relay only; cycle
// errors are logged and the loop continues.
func (r *Relay) Run(ctx context.Context) error {
	source, err := r.dialSource(ctx, r.pair)
	if err != nil {
		return AuthError{Platform: "source", Handle: r.pair.SourceHandle, Err: err}
	}
	r.source = source
	r.log.Info("logged into source platform")

	dest, err := r.dialDest(ctx, r.pair)
	if err != nil {
		return AuthError{Platform: "destination", Handle: r.pair.DestHandle, Err: err}
	}
	r.dest = dest
	r.log.Info("logged into destination platform")

	r.accountID, err = source.ResolveAccountID(ctx, r.pair.SourceHandle)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", r.pair.SourceHandle, err)
	}
	r.log.Info("monitoring account", "id", r.accountID)

	for {
		if err := r.cycle(ctx); err != nil && ctx.Err() == nil {
			r.log.Warn("relay cycle failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(r.interval):
		}
	}
}

// cycle runs one poll→process→publish iteration. Errors returned here are
// cycle-scoped: the caller logs them and the next cycle starts fresh.
func (r *Relay) cycle(ctx context.Context) error {
	posts, err := r.source.LatestPosts(ctx, r.accountID, 1)
	if err != nil {
		return fmt.Errorf("fetch posts: %w", err)
	}
	if len(posts) == 0 {
		return nil
	}

	latest := posts[0]
	if latest.ID == r.lastRelayedID {
		return nil
	}

	r.log.Info("new post", "id", latest.ID, "text", previewText(latest.Text))

	var embed *Embed
	if link := firstLink(latest); link != "" {
		link = RewriteAttribution(link)
		if meta := r.preview.Metadata(ctx, link); meta != nil && meta.Thumbnail != "" {
			image := r.preview.Image(ctx, meta.Thumbnail)
			embed = BuildEmbed(ctx, r.dest, meta, image, link, r.log)
		}
	}

	clean := stripShortLinks(latest.Text)
	if n := utf8.RuneCountInString(clean); n > CharacterLimit {
		r.log.Debug("post exceeds destination limit, trimming", "runes", n)
	}
	text := SanitizeText(clean)

	postID, err := r.dest.Publish(ctx, text, embed)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	r.lastRelayedID = latest.ID
	r.log.Info("published", "post", postID, "embed", embed != nil)
	return nil
}

// firstLink returns the post's canonical link: the first embedded URL.
func firstLink(post SourcePost) string {
	if len(post.URLs) == 0 {
		return ""
	}
	return post.URLs[0]
}

func previewText(text string) string {
	runes := []rune(text)
	if len(runes) <= 50 {
		return text
	}
	return string(runes[:50]) + "..."
}

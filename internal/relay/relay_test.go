package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu    sync.Mutex
	posts []SourcePost
	err   error
}

func (s *fakeSource) ResolveAccountID(_ context.Context, handle string) (string, error) {
	return "id-" + handle, nil
}

func (s *fakeSource) LatestPosts(_ context.Context, _ string, count int) ([]SourcePost, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if len(s.posts) > count {
		return append([]SourcePost(nil), s.posts[:count]...), nil
	}
	return append([]SourcePost(nil), s.posts...), nil
}

func (s *fakeSource) setPosts(posts ...SourcePost) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.posts = posts
}

type publishedPost struct {
	text  string
	embed *Embed
}

type fakeDest struct {
	mu         sync.Mutex
	uploads    [][]byte
	uploadErr  error
	publishErr error
	published  []publishedPost
}

func (d *fakeDest) UploadBlob(_ context.Context, data []byte) (BlobRef, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.uploadErr != nil {
		return nil, d.uploadErr
	}
	d.uploads = append(d.uploads, data)
	return fmt.Sprintf("blob-%d", len(d.uploads)), nil
}

func (d *fakeDest) Publish(_ context.Context, text string, embed *Embed) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.publishErr != nil {
		return "", d.publishErr
	}
	d.published = append(d.published, publishedPost{text: text, embed: embed})
	return fmt.Sprintf("post-%d", len(d.published)), nil
}

func (d *fakeDest) publishedPosts() []publishedPost {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]publishedPost(nil), d.published...)
}

func (d *fakeDest) setPublishErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.publishErr = err
}

func newTestRelay(src SourceClient, dst DestinationClient) *Relay {
	r := NewRelay(AccountPair{SourceHandle: "alice", DestHandle: "alice.bsky.social"}, nil, nil, NewPreview(nil), time.Millisecond)
	r.source = src
	r.dest = dst
	r.accountID = "id-alice"
	return r
}

func TestCycleDedupPublishesOnce(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	src.setPosts(SourcePost{ID: "100", Text: "hello"})
	dst := &fakeDest{}
	r := newTestRelay(src, dst)

	for range 5 {
		require.NoError(t, r.cycle(context.Background()))
	}

	assert.Len(t, dst.publishedPosts(), 1)
	assert.Equal(t, "100", r.lastRelayedID)
}

func TestCycleEmptyTimelineIsNoop(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	dst := &fakeDest{}
	r := newTestRelay(src, dst)

	require.NoError(t, r.cycle(context.Background()))
	assert.Empty(t, dst.publishedPosts())
	assert.Empty(t, r.lastRelayedID)
}

func TestCyclePublishFailureLeavesMarkerUnset(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	src.setPosts(SourcePost{ID: "100", Text: "hello"})
	dst := &fakeDest{}
	dst.setPublishErr(errors.New("boom"))
	r := newTestRelay(src, dst)

	err := r.cycle(context.Background())
	require.Error(t, err)
	assert.Empty(t, r.lastRelayedID)

	// still the latest post, so the next cycle retries it
	dst.setPublishErr(nil)
	require.NoError(t, r.cycle(context.Background()))
	assert.Len(t, dst.publishedPosts(), 1)
	assert.Equal(t, "100", r.lastRelayedID)
}

func TestCycleFetchFailureIsCycleScoped(t *testing.T) {
	t.Parallel()

	src := &fakeSource{err: errors.New("rate limited")}
	dst := &fakeDest{}
	r := newTestRelay(src, dst)

	require.Error(t, r.cycle(context.Background()))

	src.mu.Lock()
	src.err = nil
	src.mu.Unlock()
	src.setPosts(SourcePost{ID: "1", Text: "back"})

	require.NoError(t, r.cycle(context.Background()))
	assert.Len(t, dst.publishedPosts(), 1)
}

func TestCycleRelaysLinkPostWithEmbed(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	var server *httptest.Server
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bluesky", r.URL.Query().Get("utm_source"))
		fmt.Fprintf(w, `<html><head><title>Ex</title>
			<meta property="og:description" content="D">
			<meta property="og:image" content="%s/img.png">
			</head><body></body></html>`, server.URL)
	})
	mux.HandleFunc("/img.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("png-bytes"))
	})
	server = httptest.NewServer(mux)
	defer server.Close()

	src := &fakeSource{}
	src.setPosts(SourcePost{
		ID:   "7",
		Text: "Check this out https://t.co/abc123",
		URLs: []string{server.URL + "/a?utm_source=twitter"},
	})
	dst := &fakeDest{}
	r := newTestRelay(src, dst)

	require.NoError(t, r.cycle(context.Background()))

	posts := dst.publishedPosts()
	require.Len(t, posts, 1)
	assert.Equal(t, "Check this out", posts[0].text)

	require.NotNil(t, posts[0].embed)
	assert.Equal(t, "Ex", posts[0].embed.Title)
	assert.Equal(t, "D", posts[0].embed.Description)
	assert.Equal(t, server.URL+"/a?utm_source=bluesky", posts[0].embed.URI)
	assert.Equal(t, "blob-1", posts[0].embed.Thumb)

	require.Len(t, dst.uploads, 1)
	assert.Equal(t, []byte("png-bytes"), dst.uploads[0])
}

func TestCycleMetadataFailureStillPublishesText(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	server.Close() // connection refused from here on

	src := &fakeSource{}
	src.setPosts(SourcePost{ID: "8", Text: "no preview today", URLs: []string{server.URL + "/gone"}})
	dst := &fakeDest{}
	r := newTestRelay(src, dst)

	require.NoError(t, r.cycle(context.Background()))

	posts := dst.publishedPosts()
	require.Len(t, posts, 1)
	assert.Equal(t, "no preview today", posts[0].text)
	assert.Nil(t, posts[0].embed)
	assert.Equal(t, "8", r.lastRelayedID)
}

func TestCycleMeasuresStrippedTextForTrimming(t *testing.T) {
	t.Parallel()

	// raw text is over the limit but stripping the short link brings it
	// under, so the post goes out untrimmed
	src := &fakeSource{}
	src.setPosts(SourcePost{ID: "10", Text: strings.Repeat("y", 290) + " https://t.co/abc123XYZ"})
	dst := &fakeDest{}
	r := newTestRelay(src, dst)

	require.NoError(t, r.cycle(context.Background()))

	posts := dst.publishedPosts()
	require.Len(t, posts, 1)
	assert.Equal(t, strings.Repeat("y", 290), posts[0].text)
}

func TestCycleLongPostTruncated(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	src.setPosts(SourcePost{ID: "9", Text: strings.Repeat("x", 310)})
	dst := &fakeDest{}
	r := newTestRelay(src, dst)

	require.NoError(t, r.cycle(context.Background()))

	posts := dst.publishedPosts()
	require.Len(t, posts, 1)
	assert.Equal(t, strings.Repeat("x", 297)+"...", posts[0].text)
	assert.Nil(t, posts[0].embed)
}

func TestRunAuthFailureIsPairFatal(t *testing.T) {
	t.Parallel()

	dialSource := func(context.Context, AccountPair) (SourceClient, error) {
		return nil, errors.New("bad credentials")
	}
	r := NewRelay(AccountPair{SourceHandle: "alice"}, dialSource, nil, NewPreview(nil), time.Millisecond)

	err := r.Run(context.Background())
	require.Error(t, err)

	var authErr AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "source", authErr.Platform)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	src := &fakeSource{}
	src.setPosts(SourcePost{ID: "1", Text: "hi"})
	dst := &fakeDest{}

	dialSource := func(context.Context, AccountPair) (SourceClient, error) { return src, nil }
	dialDest := func(context.Context, AccountPair) (DestinationClient, error) { return dst, nil }
	r := NewRelay(AccountPair{SourceHandle: "alice"}, dialSource, dialDest, NewPreview(nil), time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	require.Eventually(t, func() bool { return len(dst.publishedPosts()) == 1 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("relay did not stop after cancellation")
	}
}

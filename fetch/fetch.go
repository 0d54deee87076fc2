// Package fetch retrieves the user accounts behind a list or feed,
// paginating over the relevant XRPC endpoints.
package fetch

import (
	"context"
	"fmt"
	"strings"

	comatproto "github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/api/bsky"
	"github.com/bluesky-social/indigo/xrpc"

	"bsky.watch/list-actions/resource"
)

// Entry is a single account as returned by the API.
type Entry struct {
	DID    string
	Handle string
}

// ResolveActor returns the DID for the given actor, resolving handles
// through com.atproto.identity.resolveHandle. DIDs pass through as-is.
func ResolveActor(ctx context.Context, client *xrpc.Client, actor string) (string, error) {
	if strings.HasPrefix(actor, "did:") {
		return actor, nil
	}
	resp, err := comatproto.IdentityResolveHandle(ctx, client, actor)
	if err != nil {
		return "", fmt.Errorf("resolving handle %q: %w", actor, err)
	}
	return resp.Did, nil
}

const pageSize = 100

// Iterator produces entries one at a time, requesting further pages only
// as they are consumed. It is finite and cannot be restarted.
type Iterator struct {
	ctx    context.Context
	client *xrpc.Client
	uri    string
	kind   resource.Kind

	limit  int64 // feed only: max posts to examine
	seen   int64 // feed only: posts examined so far
	cursor string
	buf    []Entry
	done   bool
	err    error
}

// Users returns an iterator over the accounts behind the resource at uri.
// For feeds, limit caps the number of posts examined; lists are always
// drained completely.
func Users(ctx context.Context, client *xrpc.Client, uri string, kind resource.Kind, limit int64) *Iterator {
	return &Iterator{ctx: ctx, client: client, uri: uri, kind: kind, limit: limit}
}

// Next returns the next entry. The second return value is false once the
// sequence is exhausted or a page request has failed; check the error in
// that case.
func (it *Iterator) Next() (Entry, bool, error) {
	for len(it.buf) == 0 {
		if it.done || it.err != nil {
			return Entry{}, false, it.err
		}
		if it.kind == resource.KindFeed {
			it.fetchFeedPage()
		} else {
			it.fetchListPage()
		}
	}

	entry := it.buf[0]
	it.buf = it.buf[1:]
	return entry, true, nil
}

func (it *Iterator) fetchListPage() {
	resp, err := bsky.GraphGetList(it.ctx, it.client, it.cursor, pageSize, it.uri)
	if err != nil {
		it.err = fmt.Errorf("app.bsky.graph.getList: %w", err)
		return
	}

	for _, item := range resp.Items {
		if item.Subject == nil {
			continue
		}
		it.buf = append(it.buf, Entry{DID: item.Subject.Did, Handle: item.Subject.Handle})
	}

	if resp.Cursor == nil || *resp.Cursor == "" || *resp.Cursor == it.cursor || len(resp.Items) == 0 {
		it.done = true
		return
	}
	it.cursor = *resp.Cursor
}

func (it *Iterator) fetchFeedPage() {
	want := it.limit - it.seen
	if want <= 0 {
		it.done = true
		return
	}
	if want > pageSize {
		want = pageSize
	}

	resp, err := bsky.FeedGetFeed(it.ctx, it.client, it.cursor, it.uri, want)
	if err != nil {
		it.err = fmt.Errorf("app.bsky.feed.getFeed: %w", err)
		return
	}

	posts := resp.Feed
	if int64(len(posts)) > it.limit-it.seen {
		posts = posts[:it.limit-it.seen]
	}
	it.seen += int64(len(posts))

	for _, item := range posts {
		if item.Post == nil || item.Post.Author == nil {
			continue
		}
		it.buf = append(it.buf, Entry{DID: item.Post.Author.Did, Handle: item.Post.Author.Handle})
	}

	if it.seen >= it.limit || resp.Cursor == nil || *resp.Cursor == "" || *resp.Cursor == it.cursor || len(resp.Feed) == 0 {
		it.done = true
		return
	}
	it.cursor = *resp.Cursor
}

package fetch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bluesky-social/indigo/xrpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bsky.watch/list-actions/resource"
)

func drain(t *testing.T, it *Iterator) []Entry {
	t.Helper()
	var entries []Entry
	for {
		entry, ok, err := it.Next()
		require.NoError(t, err)
		if !ok {
			return entries
		}
		entries = append(entries, entry)
	}
}

func testClient(t *testing.T, handler http.HandlerFunc) *xrpc.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return &xrpc.Client{Host: srv.URL, Client: srv.Client()}
}

func member(n string) map[string]any {
	return map[string]any{
		"uri":     "at://did:plc:owner/app.bsky.graph.listitem/" + n,
		"subject": map[string]any{"did": "did:plc:" + n, "handle": n + ".bsky.social"},
	}
}

func TestListPagination(t *testing.T) {
	pages := []map[string]any{
		{"cursor": "page2", "items": []any{member("alice"), member("bob")}},
		{"cursor": "page3", "items": []any{member("carol")}},
		{"items": []any{member("dave")}},
	}
	requests := 0

	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/xrpc/app.bsky.graph.getList", r.URL.Path)
		assert.Equal(t, "at://did:plc:owner/app.bsky.graph.list/abc", r.URL.Query().Get("list"))
		require.Less(t, requests, len(pages))
		json.NewEncoder(w).Encode(pages[requests])
		requests++
	})

	it := Users(context.Background(), client, "at://did:plc:owner/app.bsky.graph.list/abc", resource.KindList, 100)
	entries := drain(t, it)

	assert.Equal(t, 3, requests)
	require.Len(t, entries, 4)
	assert.Equal(t, Entry{DID: "did:plc:alice", Handle: "alice.bsky.social"}, entries[0])
	assert.Equal(t, Entry{DID: "did:plc:dave", Handle: "dave.bsky.social"}, entries[3])
}

func TestListStopsWithoutProgress(t *testing.T) {
	requests := 0
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		// Cursor set but no items: a further request would loop forever.
		json.NewEncoder(w).Encode(map[string]any{"cursor": "stuck", "items": []any{}})
	})

	it := Users(context.Background(), client, "at://did:plc:owner/app.bsky.graph.list/abc", resource.KindList, 100)
	entries := drain(t, it)

	assert.Empty(t, entries)
	assert.Equal(t, 1, requests)
}

func post(n string) map[string]any {
	return map[string]any{
		"post": map[string]any{
			"uri":       "at://did:plc:" + n + "/app.bsky.feed.post/1",
			"cid":       "bafyfake" + n,
			"author":    map[string]any{"did": "did:plc:" + n, "handle": n + ".bsky.social"},
			"record":    map[string]any{"$type": "app.bsky.feed.post"},
			"indexedAt": "2024-01-01T00:00:00Z",
		},
	}
}

func TestFeedStopsAtLimit(t *testing.T) {
	requests := 0
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/xrpc/app.bsky.feed.getFeed", r.URL.Path)
		requests++
		require.LessOrEqual(t, requests, 3, "must not request a page past the limit")
		// Four posts per page regardless of the requested limit.
		var feed []any
		for _, n := range []string{"a", "b", "c", "d"} {
			feed = append(feed, post(n+r.URL.Query().Get("cursor")))
		}
		json.NewEncoder(w).Encode(map[string]any{"cursor": r.URL.Query().Get("cursor") + "x", "feed": feed})
	})

	it := Users(context.Background(), client, "at://did:plc:owner/app.bsky.feed.generator/abc", resource.KindFeed, 10)
	entries := drain(t, it)

	assert.Equal(t, 3, requests)
	assert.Len(t, entries, 10, "posts past the limit are truncated")
}

func TestFeedExhaustedCursor(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"feed": []any{post("a"), post("b")}})
	})

	it := Users(context.Background(), client, "at://did:plc:owner/app.bsky.feed.generator/abc", resource.KindFeed, 100)
	entries := drain(t, it)
	assert.Len(t, entries, 2)
}

func TestFetchErrorAborts(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]any{"error": "InternalError", "message": "boom"})
	})

	it := Users(context.Background(), client, "at://did:plc:owner/app.bsky.graph.list/abc", resource.KindList, 100)
	_, ok, err := it.Next()
	assert.False(t, ok)
	assert.Error(t, err)

	// The error sticks; the iterator does not restart.
	_, ok, err = it.Next()
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestResolveActor(t *testing.T) {
	client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/xrpc/com.atproto.identity.resolveHandle", r.URL.Path)
		assert.Equal(t, "user.bsky.social", r.URL.Query().Get("handle"))
		json.NewEncoder(w).Encode(map[string]any{"did": "did:plc:resolved"})
	})

	did, err := ResolveActor(context.Background(), client, "user.bsky.social")
	require.NoError(t, err)
	assert.Equal(t, "did:plc:resolved", did)

	// DIDs are passed through without a network call.
	did, err = ResolveActor(context.Background(), nil, "did:plc:abc")
	require.NoError(t, err)
	assert.Equal(t, "did:plc:abc", did)
}

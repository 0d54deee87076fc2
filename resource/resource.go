// Package resource turns user-facing list/feed references into the
// at:// URIs the API expects.
package resource

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"bsky.watch/utils/aturl"
)

var ErrInvalidURL = errors.New("not a valid list or feed URL")

type Kind string

const (
	KindList Kind = "list"
	KindFeed Kind = "feed"
)

// collection returns the record collection backing this kind of resource.
func (k Kind) collection() string {
	if k == KindFeed {
		return "app.bsky.feed.generator"
	}
	return "app.bsky.graph.list"
}

// Reference is a normalized pointer to a list or a feed. Actor is either
// a DID or a handle, exactly as it appeared in the input.
type Reference struct {
	Kind  Kind
	Actor string
	Rkey  string
}

func (r Reference) URI() string {
	return fmt.Sprintf("at://%s/%s/%s", r.Actor, r.Kind.collection(), r.Rkey)
}

// Parse accepts either an at:// URI or a https://bsky.app web URL of the
// form /profile/<actor>/(lists|feed)/<rkey>. The path segment decides the
// resource kind; no guessing based on content.
func Parse(input string) (Reference, error) {
	if strings.HasPrefix(input, "at://") {
		return parseATURI(input)
	}

	u, err := url.Parse(input)
	if err != nil {
		return Reference{}, fmt.Errorf("%w: %s", ErrInvalidURL, err)
	}
	if u.Scheme != "https" || u.Host != "bsky.app" {
		return Reference{}, fmt.Errorf("%w: expected a https://bsky.app URL or an at:// URI", ErrInvalidURL)
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 4 || parts[0] != "profile" || parts[1] == "" || parts[3] == "" {
		return Reference{}, fmt.Errorf("%w: expected /profile/<actor>/(lists|feed)/<rkey>", ErrInvalidURL)
	}

	var kind Kind
	switch parts[2] {
	case "lists":
		kind = KindList
	case "feed":
		kind = KindFeed
	default:
		return Reference{}, fmt.Errorf("%w: unknown resource type %q", ErrInvalidURL, parts[2])
	}

	return Reference{Kind: kind, Actor: parts[1], Rkey: parts[3]}, nil
}

func parseATURI(input string) (Reference, error) {
	u, err := aturl.Parse(input)
	if err != nil {
		return Reference{}, fmt.Errorf("%w: %s", ErrInvalidURL, err)
	}

	parts := strings.SplitN(strings.TrimPrefix(u.Path, "/"), "/", 2)
	if len(parts) < 2 || parts[1] == "" {
		return Reference{}, fmt.Errorf("%w: missing rkey", ErrInvalidURL)
	}

	var kind Kind
	switch parts[0] {
	case "app.bsky.graph.list":
		kind = KindList
	case "app.bsky.feed.generator":
		kind = KindFeed
	default:
		return Reference{}, fmt.Errorf("%w: unsupported collection %q", ErrInvalidURL, parts[0])
	}

	return Reference{Kind: kind, Actor: u.Host, Rkey: parts[1]}, nil
}

// Prints the unique accounts behind a list or feed, without taking
// any action. Useful for checking what the main binary would process.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"

	"bsky.watch/utils/xrpcauth"

	"bsky.watch/list-actions/fetch"
	"bsky.watch/list-actions/resource"
	"bsky.watch/list-actions/userset"
)

var (
	limit = flag.Int64("limit", 100, "Max number of feed posts to fetch; ignored for lists")
)

func runMain(ctx context.Context) error {
	if flag.NArg() != 1 {
		return fmt.Errorf("usage: %s <list or feed URL>", os.Args[0])
	}

	ref, err := resource.Parse(flag.Arg(0))
	if err != nil {
		return err
	}

	username := os.Getenv("BSKY_USERNAME")
	password := os.Getenv("BSKY_PASSWORD")
	if username == "" || password == "" {
		return fmt.Errorf("BSKY_USERNAME and BSKY_PASSWORD must be set in the environment or a .env file")
	}

	client := xrpcauth.NewClientWithTokenSource(ctx, xrpcauth.PasswordAuth(username, password))

	did, err := fetch.ResolveActor(ctx, client, ref.Actor)
	if err != nil {
		return err
	}
	ref.Actor = did

	set, err := userset.Collect(fetch.Users(ctx, client, ref.URI(), ref.Kind, *limit), nil)
	if err != nil {
		return err
	}

	for _, user := range set.Users() {
		fmt.Printf("%s\t%s\n", user.DID, user.Handle)
	}

	return nil
}

func main() {
	flag.Parse()

	if err := runMain(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

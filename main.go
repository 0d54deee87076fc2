// Command list-actions bulk-blocks or bulk-mutes every account behind a
// Bluesky list or feed.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog"

	"bsky.watch/utils/xrpcauth"
	comatproto "github.com/bluesky-social/indigo/api/atproto"

	"bsky.watch/list-actions/actions"
	"bsky.watch/list-actions/audit"
	"bsky.watch/list-actions/config"
	"bsky.watch/list-actions/fetch"
	"bsky.watch/list-actions/resource"
	"bsky.watch/list-actions/userset"
)

var (
	action     = flag.String("action", "", "Action to apply to each account: block or mute")
	dryRun     = flag.Bool("dry-run", false, "If set, only report what would be done without making any changes")
	output     = flag.String("output", "", fmt.Sprintf("Path of the JSON audit file (default %q)", defaultOutput))
	limit      = flag.Int64("limit", 0, fmt.Sprintf("Max number of feed posts to fetch; ignored for lists (default %d)", defaultLimit))
	configPath = flag.String("config", "", "Optional YAML config file with defaults and skip entries")
)

const (
	defaultOutput = "users_to_process.json"
	defaultLimit  = 100
)

func runMain(ctx context.Context) error {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	ctx = setupLogging(ctx)
	log := zerolog.Ctx(ctx)

	if flag.NArg() != 1 {
		return fmt.Errorf("usage: %s <list or feed URL> --action block|mute [--dry-run] [--output PATH] [--limit N]", os.Args[0])
	}
	if *action == "" {
		return fmt.Errorf("--action is required")
	}
	act, err := actions.ParseAction(*action)
	if err != nil {
		return err
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

	var cfg *config.Config
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
		if err != nil {
			return err
		}
	}

	outputPath := *output
	if outputPath == "" && cfg != nil {
		outputPath = cfg.Output
	}
	if outputPath == "" {
		outputPath = defaultOutput
	}

	feedLimit := *limit
	if feedLimit == 0 && cfg != nil {
		feedLimit = cfg.Limit
	}
	if feedLimit == 0 {
		feedLimit = defaultLimit
	}

	client := xrpcauth.NewClientWithTokenSource(ctx, xrpcauth.PasswordAuth(username, password))
	session, err := comatproto.ServerGetSession(ctx, client)
	if err != nil {
		return fmt.Errorf("logging in as %q: %w", username, err)
	}
	log.Info().Msgf("Logged in as %s", session.Handle)

	skip, err := cfg.SkipSet(ctx)
	if err != nil {
		return err
	}
	if len(skip) > 0 {
		log.Info().Msgf("Skipping %d account(s) from the config", len(skip))
	}

	did, err := fetch.ResolveActor(ctx, client, ref.Actor)
	if err != nil {
		return err
	}
	ref.Actor = did
	log.Info().Msgf("Using URI: %s", ref.URI())

	if ref.Kind == resource.KindFeed {
		log.Info().Msgf("Processing feed (fetching up to %d posts)...", feedLimit)
	} else {
		log.Info().Msgf("Processing list...")
	}

	set, err := userset.Collect(fetch.Users(ctx, client, ref.URI(), ref.Kind, feedLimit), skip)
	if err != nil {
		return err
	}
	log.Info().Msgf("Found %d unique accounts", set.Len())

	if *dryRun {
		log.Info().Msgf("Dry run, no actions will be taken")
	}

	records, applyErr := actions.Apply(ctx, client, session.Did, set.Users(), act, *dryRun)

	// The audit file is written even if some of the actions failed.
	if err := audit.WriteFile(outputPath, records); err != nil {
		return err
	}
	log.Info().Msgf("Saved %d entries to %s", len(records), outputPath)

	return applyErr
}

func main() {
	flag.Parse()

	if err := runMain(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Package actions applies a block or mute to each user in a batch.
package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/imax9000/errors"
	"github.com/rs/zerolog"
	"golang.org/x/exp/maps"

	comatproto "github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/api/bsky"
	lexutil "github.com/bluesky-social/indigo/lex/util"
	"github.com/bluesky-social/indigo/xrpc"

	"bsky.watch/list-actions/audit"
	"bsky.watch/list-actions/fetch"
)

type Action string

const (
	Block Action = "block"
	Mute  Action = "mute"
)

func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case Block, Mute:
		return Action(s), nil
	}
	return "", fmt.Errorf("unknown action %q, expected %q or %q", s, Block, Mute)
}

// applied is the audit tag for a performed action.
func (a Action) applied() string {
	if a == Mute {
		return "muted"
	}
	return "blocked"
}

// intended is the audit tag used in dry-run mode.
func (a Action) intended() string {
	return "would-" + string(a)
}

// Apply runs the action against every user in order. repoDID is the DID of
// the logged in session, which owns the created block records.
//
// In dry-run mode no mutating call is made; every user gets a record tagged
// "would-block"/"would-mute". Otherwise a single user's failure is logged,
// recorded with the tag "failed" and does not stop the batch; the returned
// error only summarizes how many users failed.
func Apply(ctx context.Context, client *xrpc.Client, repoDID string, users []fetch.Entry, action Action, dryRun bool) ([]audit.Record, error) {
	log := zerolog.Ctx(ctx)

	records := make([]audit.Record, 0, len(users))
	failed := map[string]error{}

	for _, user := range users {
		now := time.Now().UTC()

		if dryRun {
			log.Info().Msgf("Would %s %s (%s)", action, user.Handle, user.DID)
			records = append(records, audit.Record{
				DID: user.DID, Handle: user.Handle, Action: action.intended(), Timestamp: now,
			})
			continue
		}

		tag := action.applied()
		if err := apply(ctx, client, repoDID, user.DID, action); err != nil {
			if xerr, ok := errors.As[*xrpc.Error](err); ok && xerr.IsThrottled() && xerr.Ratelimit != nil {
				log.Error().Err(err).Msgf("Rate limited while processing %s, limit resets at %s", user.Handle, xerr.Ratelimit.Reset)
			} else {
				log.Error().Err(err).Msgf("Failed to %s %s", action, user.Handle)
			}
			failed[user.Handle] = err
			tag = "failed"
		} else {
			log.Info().Msgf("%s %s", action.applied(), user.Handle)
		}
		records = append(records, audit.Record{
			DID: user.DID, Handle: user.Handle, Action: tag, Timestamp: now,
		})
	}

	if len(failed) > 0 {
		log.Error().Msgf("Failed for %d account(s): %v", len(failed), maps.Keys(failed))
		return records, fmt.Errorf("%d out of %d %s actions failed", len(failed), len(users), action)
	}
	return records, nil
}

func apply(ctx context.Context, client *xrpc.Client, repoDID string, subject string, action Action) error {
	switch action {
	case Mute:
		err := bsky.GraphMuteActor(ctx, client, &bsky.GraphMuteActor_Input{Actor: subject})
		if err != nil {
			return fmt.Errorf("app.bsky.graph.muteActor: %w", err)
		}
		return nil
	default:
		_, err := comatproto.RepoCreateRecord(ctx, client, &comatproto.RepoCreateRecord_Input{
			Collection: "app.bsky.graph.block",
			Repo:       repoDID,
			Record: &lexutil.LexiconTypeDecoder{Val: &bsky.GraphBlock{
				Subject:   subject,
				CreatedAt: time.Now().UTC().Format(time.RFC3339),
			}},
		})
		if err != nil {
			return fmt.Errorf("com.atproto.repo.createRecord: %w", err)
		}
		return nil
	}
}

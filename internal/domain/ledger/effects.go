package ledger

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// LogEffects is the default Effects implementation. The notes product's
// subscription and ad surfaces live outside this service, so completion is
// only recorded here; those systems consume the receipt event from redis.
type LogEffects struct{}

func (LogEffects) ActivateSubscription(_ context.Context, userID uuid.UUID, tx *Transaction) error {
	log.Info().
		Str("user_id", userID.String()).
		Str("reference", tx.Reference).
		Msg("subscription payment completed")
	return nil
}

func (LogEffects) UnlockAd(_ context.Context, userID uuid.UUID, tx *Transaction) error {
	log.Info().
		Str("user_id", userID.String()).
		Str("reference", tx.Reference).
		Msg("ad payment completed")
	return nil
}

package sessions

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// RunJanitor removes idle-expired sessions every interval until ctx is done.
func RunJanitor(ctx context.Context, store Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			removed, err := store.DeleteExpired(ctx, now)
			if err != nil {
				log.Err(err).Msg("failed to delete expired sessions")
				continue
			}
			if removed > 0 {
				log.Debug().Int("removed", removed).Msg("expired sessions deleted")
			}
		}
	}
}

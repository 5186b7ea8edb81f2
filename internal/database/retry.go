package database

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const firstRetryDelay = 500 * time.Millisecond

// connectWithRetry runs connect up to attempts times, doubling the delay
// between tries. Containers often start the app before the stores accept
// connections.
func connectWithRetry(ctx context.Context, attempts int, log zerolog.Logger, target string, connect func() error) error {
	if attempts < 1 {
		attempts = 1
	}

	delay := firstRetryDelay
	var err error
	for attempt := 1; ; attempt++ {
		if err = connect(); err == nil {
			return nil
		}
		if attempt == attempts {
			return err
		}

		log.Warn().Err(err).
			Str("target", target).
			Int("attempt", attempt).
			Dur("retry_in", delay).
			Msg("Connection failed, retrying")

		select {
		case <-ctx.Done():
			return err
		case <-time.After(delay):
		}
		delay *= 2
	}
}

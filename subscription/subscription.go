package subscription

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// Notifier is woken whenever the board changes. Each wake-up triggers a
// fresh full-snapshot push to subscribers; there is no incremental state.
type Notifier interface {
	Notify()
}

// Run listens for change notifications on the given channel and forwards
// them to the notifier. It reconnects when the pub/sub channel drops and
// returns when ctx is cancelled.
func Run(ctx context.Context, rc *redis.Client, channel string, notifier Notifier) {
	for {
		sub := rc.Subscribe(ctx, channel)
		ch := sub.Channel()
	recv:
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case _, ok := <-ch:
				if !ok {
					break recv
				}
				log.WithField("channel", channel).Debug("board change notification")
				notifier.Notify()
			}
		}
		_ = sub.Close()
		if ctx.Err() != nil {
			return
		}
		log.Error("pubsub channel closed, reconnecting")
		time.Sleep(time.Second)
	}
}

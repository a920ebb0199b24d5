package bot

import (
	"context"
	"log"
	"time"

	"taskdeck/internal/session"
)

// SendDueDigests messages every signed-in chat a summary of overdue and
// soon-due tasks. Sessions whose token has expired are cleared instead, which
// doubles as the periodic expiry sweep.
func (b *Bot) SendDueDigests(ctx context.Context) error {
	sessions, err := b.sessions.All(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, sess := range sessions {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if session.IsExpired(sess.Token, now) {
			if err := b.sessions.Clear(ctx, sess.ChatID); err != nil {
				log.Printf("sweep session for %d: %v", sess.ChatID, err)
			} else {
				log.Printf("[info] swept expired session chat=%d", sess.ChatID)
			}
			continue
		}

		tasks, _, err := b.api.ViewTasks(ctx, sess.Token)
		if err != nil {
			log.Printf("digest fetch for %d: %v", sess.ChatID, err)
			continue
		}

		digest := b.digestSvc.DueDigest(tasks, now)
		if digest == "" {
			continue
		}
		if err := b.sendText(sess.ChatID, digest); err != nil {
			log.Printf("send digest to %d: %v", sess.ChatID, err)
		}
	}

	return nil
}

package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/QwerTayu/anniversary-calendar/internal/recurrence"

	"github.com/rs/zerolog/log"
)

// Notifier is the daily batch dispatcher. One invocation scans today's
// memories, composes one message per eligible user and delivers it. Per-user
// failures are logged and skipped; the batch never aborts on them.
type Notifier struct {
	memories MemoryStore
	users    UserStore
	pusher   Pusher
	now      func() time.Time
}

// NewNotifier creates a new notifier
func NewNotifier(memories MemoryStore, users UserStore, pusher Pusher) *Notifier {
	return &Notifier{
		memories: memories,
		users:    users,
		pusher:   pusher,
		now:      func() time.Time { return time.Now().In(recurrence.Zone) },
	}
}

type memoryDigest struct {
	title  string
	shared bool
}

// Run executes one dispatch pass and returns the number of notifications
// delivered.
func (n *Notifier) Run(ctx context.Context) (int, error) {
	now := n.now()
	keys := recurrence.TodayKeys(now)
	log.Info().Strs("keys", keys).Msg("Notification dispatch started")

	memories, err := n.memories.ListAllByKeys(ctx, keys)
	if err != nil {
		return 0, fmt.Errorf("failed to load today's memories: %w", err)
	}

	ownerMemories := make(map[string][]memoryDigest)
	for _, m := range memories {
		ownerMemories[m.OwnerID] = append(ownerMemories[m.OwnerID], memoryDigest{
			title:  m.Title,
			shared: m.IsShared,
		})
	}

	users, err := n.users.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load users: %w", err)
	}

	sent := 0
	for _, user := range users {
		if user.PushToken == nil || *user.PushToken == "" {
			continue
		}

		titles := make([]string, 0)
		for _, d := range ownerMemories[user.ID] {
			titles = append(titles, d.title)
		}
		if user.PartnerID != nil {
			for _, d := range ownerMemories[*user.PartnerID] {
				if d.shared {
					titles = append(titles, d.title)
				}
			}
		}
		if len(titles) == 0 {
			continue
		}

		title, body := composeNotification(titles)
		if err := n.pusher.Push(ctx, *user.PushToken, title, body); err != nil {
			log.Error().Err(err).Str("user_id", user.ID).Msg("Failed to send notification")
			continue
		}

		log.Info().Str("user_id", user.ID).Int("memories", len(titles)).Msg("Notification sent")
		sent++
	}

	log.Info().Int("sent", sent).Msg("Notification dispatch finished")
	return sent, nil
}

// composeNotification builds the push title and body. A single event gets a
// personal title; several events share a generic title with the titles
// listed in the body.
func composeNotification(titles []string) (string, string) {
	if len(titles) == 1 {
		return fmt.Sprintf("Today is %q! 🎉", titles[0]),
			"Take a moment to look back on it."
	}
	return "Today is a special day! 🎉",
		strings.Join(titles, "\n") + "\nTake a moment to look back on them."
}

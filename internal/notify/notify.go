// Package notify sends desktop notifications for connection and quota events.
package notify

import (
	"context"
	"fmt"
	"sync"

	"github.com/gen2brain/beeep"

	"github.com/joshuadavidthomas/zerolimit/internal/logging"
	"github.com/joshuadavidthomas/zerolimit/internal/privacy"
	"github.com/joshuadavidthomas/zerolimit/internal/quota"
)

// SendFunc delivers one notification.
type SendFunc func(title, message string) error

// Desktop sends through the platform notification service.
func Desktop(title, message string) error {
	return beeep.Notify(title, message, "")
}

// Notifier sends notifications and remembers which models are already
// reported as low so each crossing alerts once.
type Notifier struct {
	send      SendFunc
	threshold float64
	masker    privacy.Masker

	mu  sync.Mutex
	low map[string]bool
}

// New creates a notifier alerting below threshold percent. A nil send uses
// Desktop.
func New(send SendFunc, threshold float64, masker privacy.Masker) *Notifier {
	if send == nil {
		send = Desktop
	}
	return &Notifier{
		send:      send,
		threshold: threshold,
		masker:    masker,
		low:       make(map[string]bool),
	}
}

func (n *Notifier) Notify(title, message string) error {
	return n.send(title, message)
}

// CheckQuota alerts for every model of f that dropped below the threshold
// since the last check. A model that recovers can alert again. It matches
// quota.Orchestrator.OnResult.
func (n *Notifier) CheckQuota(ctx context.Context, f quota.FileQuota) {
	if f.Error != "" || n.threshold <= 0 {
		return
	}

	var alerts []string
	n.mu.Lock()
	for _, q := range f.Models {
		key := f.FileID + "\x00" + q.Name
		below := q.Percentage < n.threshold
		if below && !n.low[key] {
			alerts = append(alerts, fmt.Sprintf("%s is at %.0f%% remaining (%s)",
				q.Name, q.Percentage, n.masker.Folder(f.Filename)))
		}
		if below {
			n.low[key] = true
		} else {
			delete(n.low, key)
		}
	}
	n.mu.Unlock()

	title := "Low quota: " + f.Type().DisplayName()
	for _, msg := range alerts {
		if err := n.send(title, msg); err != nil {
			logging.FromContext(ctx).Warn("notification failed", "err", err)
		}
	}
}

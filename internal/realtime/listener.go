package realtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// Channel is the Postgres NOTIFY channel written by the invite_changed trigger.
// The payload is the event id.
const Channel = "invite_changes"

const (
	minReconnectInterval = 10 * time.Second
	maxReconnectInterval = time.Minute
	pingInterval         = 90 * time.Second
)

// notifier is the part of the broker the listener feeds.
type notifier interface {
	Notify(eventID, source string)
	NotifyAll(source string)
}

// PGListener relays invite_changes notifications from Postgres into the broker, so that
// changes made through any instance reach the subscribers of this one.
type PGListener struct {
	dsn    string
	broker notifier
	logger *slog.Logger
}

func NewPGListener(dsn string, broker notifier, logger *slog.Logger) *PGListener {
	return &PGListener{dsn: dsn, broker: broker, logger: logger}
}

// Run listens until ctx is cancelled.
func (l *PGListener) Run(ctx context.Context) error {
	listener := pq.NewListener(l.dsn, minReconnectInterval, maxReconnectInterval, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			l.logger.Warn("postgres listener event", "event", int(ev), "error", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(Channel); err != nil {
		return err
	}
	l.logger.Info("listening for invitation changes", "channel", Channel)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			l.dispatch(n)
		case <-ticker.C:
			go func() {
				if err := listener.Ping(); err != nil {
					l.logger.Warn("postgres listener ping failed", "error", err)
				}
			}()
		}
	}
}

// dispatch forwards one notification. pq sends nil after re-establishing a lost connection,
// in which case every subscriber must refetch.
func (l *PGListener) dispatch(n *pq.Notification) {
	if n == nil {
		l.logger.Info("postgres listener reconnected, refreshing all subscribers")
		l.broker.NotifyAll(SourcePostgres)
		return
	}
	if n.Extra == "" {
		return
	}
	l.broker.Notify(n.Extra, SourcePostgres)
}

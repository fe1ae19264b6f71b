package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/chopbox/api/internal/logger"
)

// OrdersChannel is the NOTIFY channel written by the orders_change_feed trigger.
const OrdersChannel = "orders_changes"

// PGFeed listens on a Postgres NOTIFY channel over a dedicated connection.
type PGFeed struct {
	connString     string
	channel        string
	connectTimeout time.Duration
	log            *zap.Logger
}

func NewPGFeed(connString string, log *zap.Logger) *PGFeed {
	return &PGFeed{
		connString:     connString,
		channel:        OrdersChannel,
		connectTimeout: 10 * time.Second,
		log:            logger.OrNop(log),
	}
}

// Run connects, issues LISTEN and delivers decoded payloads until ctx is
// done. It does not reconnect.
func (f *PGFeed) Run(ctx context.Context, handle func(Event), status func(FeedStatus, error)) error {
	status(StatusConnecting, nil)

	connectCtx, cancel := context.WithTimeout(ctx, f.connectTimeout)
	conn, err := pgx.Connect(connectCtx, f.connString)
	cancel()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			status(StatusTimeout, err)
		} else {
			status(StatusError, err)
		}
		return fmt.Errorf("connect change feed: %w", err)
	}
	defer func() {
		conn.Close(context.Background())
		status(StatusClosed, nil)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{f.channel}.Sanitize()); err != nil {
		status(StatusError, err)
		return fmt.Errorf("listen %s: %w", f.channel, err)
	}
	status(StatusConnected, nil)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			status(StatusError, err)
			return fmt.Errorf("wait for notification: %w", err)
		}

		e, err := DecodeEvent([]byte(n.Payload))
		if err != nil {
			f.log.Warn("decode change feed payload", zap.String("channel", n.Channel), zap.Error(err))
			continue
		}
		handle(e)
	}
}

// DecodeEvent parses a trigger payload.
func DecodeEvent(payload []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return Event{}, err
	}
	switch e.Type {
	case EventInsert, EventUpdate, EventDelete:
	default:
		return Event{}, fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.Row() == nil {
		return Event{}, errors.New("event carries no row")
	}
	return e, nil
}

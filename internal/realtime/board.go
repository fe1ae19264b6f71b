package realtime

import (
	"github.com/chopbox/api/internal/service"
)

// SyncBoard returns a listener that keeps the displayed board in step with
// status and payment changes made by other sessions.
func SyncBoard(board *service.Board) Listener {
	return func(e Event) {
		switch e.Type {
		case EventDelete:
			if e.Old != nil {
				board.Remove(e.Old.ID)
			}
		case EventUpdate:
			if e.New != nil {
				board.Sync(e.New.ID, e.New.Status, e.New.PaymentStatus, e.New.UpdatedAt)
			}
		}
	}
}

// Package notify implements the read-model notifier: after every committed
// assignment transition it recomputes the owner's portfolio analytics and
// pushes them to that owner's subscribed WebSocket sessions.
package notify

import (
	"context"

	"github.com/dalemusser/propertyhub/internal/app/store/queries/portfolio"
	"github.com/dalemusser/propertyhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Event is the envelope pushed to analytics subscribers.
type Event struct {
	Type string            `json:"type"`
	Data portfolio.Summary `json:"data"`
}

// ReadModelNotifier recomputes and pushes portfolio analytics. It is
// best-effort by contract: Notify never returns an error and never blocks
// the assignment that triggered it — failures are logged and the next
// committed transition (or an on-demand analytics read) catches up.
type ReadModelNotifier struct {
	db  *mongo.Database
	hub *Hub
	log *zap.Logger
}

func NewReadModelNotifier(db *mongo.Database, hub *Hub, logger *zap.Logger) *ReadModelNotifier {
	return &ReadModelNotifier{db: db, hub: hub, log: logger}
}

// Notify recomputes ownerID's portfolio summary and broadcasts it.
func (n *ReadModelNotifier) Notify(ownerID primitive.ObjectID) {
	ctx, cancel := context.WithTimeout(context.Background(), timeouts.Medium())
	defer cancel()

	summary, err := portfolio.Compute(ctx, n.db, ownerID)
	if err != nil {
		n.log.Warn("read-model recompute failed",
			zap.String("owner_id", ownerID.Hex()),
			zap.Error(err))
		return
	}

	n.hub.Broadcast(ownerID, Event{Type: "portfolio_summary", Data: summary})
}

package receiver

import (
	"context"
	"log/slog"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/coinscope/coinscope/pkg/rpc"
	"github.com/coinscope/coinscope/pkg/types"
	"github.com/coinscope/coinscope/server/internal/alerts"
	"github.com/coinscope/coinscope/server/internal/store"
)

var _ rpc.SnapshotServer = (*Receiver)(nil)

// Receiver implements rpc.SnapshotServer.
// It validates each incoming MarketSnapshot, stores it, and runs the alert
// rules and the user's price alerts against its coins.
type Receiver struct {
	store  *store.Store
	alerts *alerts.Engine
	book   alerts.PriceBook
}

// New creates a Receiver that writes accepted snapshots to st.
// eng and book may be nil to skip rule alerts or price alerts.
func New(st *store.Store, eng *alerts.Engine, book alerts.PriceBook) *Receiver {
	return &Receiver{store: st, alerts: eng, book: book}
}

// SendSnapshot is the unary RPC handler called by coinscope-agent instances.
// Authentication is enforced by the gRPC server interceptor before this is called.
func (r *Receiver) SendSnapshot(ctx context.Context, snap *types.MarketSnapshot) (*types.SendResponse, error) {
	if snap == nil || snap.SourceID == "" {
		return nil, status.Error(codes.InvalidArgument, "source_id is required")
	}

	r.store.Put(snap)

	slog.Debug("receiver: snapshot stored",
		"source_id", snap.SourceID,
		"coins", len(snap.Coins),
		"predictions", len(snap.Predictions),
		"error", snap.ErrorMessage,
	)

	if r.alerts != nil {
		r.alerts.Evaluate(snap)
		if r.book != nil && snap.ErrorMessage == "" {
			fired, err := r.alerts.CheckPriceAlerts(ctx, snap, r.book)
			if err != nil {
				slog.Error("receiver: price alerts", "source_id", snap.SourceID, "err", err)
			} else if len(fired) > 0 {
				slog.Info("receiver: price alerts fired", "source_id", snap.SourceID, "count", len(fired))
			}
		}
	}

	return &types.SendResponse{OK: true}, nil
}

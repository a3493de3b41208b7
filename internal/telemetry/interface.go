package telemetry

import "context"

type ITelemetry interface {
	// IndexWatchedEscrows rescans every configured escrow and refreshes its
	// snapshot.
	IndexWatchedEscrows(ctx context.Context) error
	PruneSnapshots(ctx context.Context) error
}

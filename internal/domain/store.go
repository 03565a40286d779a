package domain

import "context"

// ListOpts carries standard pagination parameters for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}

// TradeStore persists committed trade records.
type TradeStore interface {
	// InsertBatch appends the trade records of a committed round.
	InsertBatch(ctx context.Context, trades []TradeRecord) error
	// List returns trade records, newest first.
	List(ctx context.Context, opts ListOpts) ([]TradeRecord, error)
	// ListByAgent returns trade records for one agent, newest first.
	ListByAgent(ctx context.Context, agent string, opts ListOpts) ([]TradeRecord, error)
	// DeleteAll clears the log on a full simulation reset.
	DeleteAll(ctx context.Context) error
}

// SnapshotCache holds the latest full market snapshot for cheap reads by the
// presentation layer.
type SnapshotCache interface {
	SetLatest(ctx context.Context, snap MarketSnapshot) error
	// GetLatest returns ErrNotFound when no snapshot has been cached yet.
	GetLatest(ctx context.Context) (MarketSnapshot, error)
}

// SignalBus is the pub/sub fan-out used to stream round results and market
// events to websocket clients.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	// Subscribe returns a channel of raw payloads. It is closed when the
	// context is cancelled.
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// SnapshotArchiver writes full state snapshots to long-term storage and
// returns the storage key of the written object.
type SnapshotArchiver interface {
	Archive(ctx context.Context, snap MarketSnapshot) (string, error)
}

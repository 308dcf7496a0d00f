package agreement

import (
	"context"

	"github.com/btcsuite/btcd/wire"
)

// Relay is a read-only view of the BTC header chain trusted by the bridge.
type Relay interface {
	// HeaderAt returns the header stored at height. The second return value
	// is false if the relay does not know the height.
	HeaderAt(ctx context.Context, height uint32) (*wire.BlockHeader, bool, error)

	// BestHeight returns the height of the tip known to the relay.
	BestHeight(ctx context.Context) (uint32, error)
}

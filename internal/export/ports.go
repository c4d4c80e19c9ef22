package export

import (
	"context"
	"encoding/json"

	"github.com/Mohsinsiddi/ronexport/internal/ronin"
)

// Source is the remote API the exporter reads from. *ronin.Client implements it.
type Source interface {
	ListSent(ctx context.Context, address string, page int) (*ronin.Page, error)
	ListReceived(ctx context.Context, address string, page int) (*ronin.Page, error)
	Transaction(ctx context.Context, hash string) (*ronin.Transaction, error)
	DecodeTransaction(ctx context.Context, hash string) (json.RawMessage, error)
	DecodeReceipt(ctx context.Context, hash string) (json.RawMessage, error)
}

// Observer receives progress notifications during a run.
type Observer interface {
	// Discovered is called once both listings are exhausted.
	Discovered(sent, received, unique int)
	// Completed is called after each hash is processed (exported or skipped).
	Completed(hash string, index, total int)
}

type nopObserver struct{}

func (nopObserver) Discovered(int, int, int) {}
func (nopObserver) Completed(string, int, int) {}

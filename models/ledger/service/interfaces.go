package service

import (
	"context"

	"github.com/NomadCrew/nomad-crew-ledger/internal/store"
	"github.com/NomadCrew/nomad-crew-ledger/internal/store/postgres"
	"github.com/NomadCrew/nomad-crew-ledger/services"
	"github.com/NomadCrew/nomad-crew-ledger/types"
)

// BalanceCache is the read-through cache in front of balance computation.
// services.BalanceCache implements it over Redis. Set must refuse balances
// computed under a generation that Invalidate has since moved past.
type BalanceCache interface {
	Get(ctx context.Context, groupID string) (types.Balances, bool, error)
	Generation(ctx context.Context, groupID string) (int64, error)
	Set(ctx context.Context, groupID string, generation int64, balances types.Balances) (bool, error)
	Invalidate(ctx context.Context, groupID string) error
}

var (
	_ BalanceCache      = (*services.BalanceCache)(nil)
	_ store.LedgerStore = (*postgres.LedgerStore)(nil)
)

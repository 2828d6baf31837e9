package controller

import (
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/namespace-registry/chain"
	"github.com/ruteri/namespace-registry/interfaces"
)

type controllerV1 struct{ core }

// Withdraw sweeps the native balance of the controller to the administrator.
func (v *controllerV1) Withdraw(caller common.Address) error {
	return v.c.Atomic(func() error {
		if err := v.b.RequireAdmin(caller); err != nil {
			return err
		}
		native, err := chain.Resolve[interfaces.AssetLedger](v.c, v.s.cfg.Native)
		if err != nil {
			return err
		}
		balance := native.BalanceOf(v.s.address)
		if balance.IsZero() {
			return nil
		}
		if err := native.Transfer(v.s.address, v.b.Admin(), balance); err != nil {
			return err
		}
		v.c.Log().Info("balance withdrawn",
			slog.String("admin", v.b.Admin().Hex()),
			slog.String("amount", balance.Dec()))
		return nil
	})
}

type controllerV2 struct{ core }

// InitializeV2 swaps the base registrar. It runs at most once.
func (v *controllerV2) InitializeV2(caller, newBase common.Address) error {
	return v.b.Reinitialize(caller, 2, func() error {
		if _, err := chain.Resolve[interfaces.Registrar](v.c, newBase); err != nil {
			return fmt.Errorf("new base registrar: %w", err)
		}
		v.s.base.Set(newBase)
		return nil
	})
}

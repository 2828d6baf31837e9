// Package ledger is a minimal fungible asset ledger. The registration
// controller only ever sees it through interfaces.AssetLedger; deployments use
// one instance as the native balance the controller accumulates and withdraws.
package ledger

import (
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/ruteri/namespace-registry/chain"
	"github.com/ruteri/namespace-registry/interfaces"
	"github.com/ruteri/namespace-registry/proxy"
)

// Token tracks balances of a single asset.
type Token struct {
	*proxy.Ownable

	c        *chain.Chain
	address  common.Address
	symbol   string
	balances *chain.Map[common.Address, *uint256.Int]
	supply   *chain.Value[*uint256.Int]
}

var _ interfaces.AssetLedger = (*Token)(nil)

// New creates a token at address and binds it in the chain directory. The
// symbol prefixes its storage slots and must be unique per chain.
func New(c *chain.Chain, address, owner common.Address, symbol string) *Token {
	name := "ledger." + symbol
	t := &Token{
		Ownable:  proxy.NewOwnable(c, name, owner),
		c:        c,
		address:  address,
		symbol:   symbol,
		balances: chain.NewMap[common.Address, *uint256.Int](c, name+".balances"),
		supply:   chain.NewValue[*uint256.Int](c, name+".supply"),
	}
	c.Bind(address, t)
	return t
}

func (t *Token) Address() common.Address { return t.address }
func (t *Token) Symbol() string          { return t.symbol }

func (t *Token) BalanceOf(holder common.Address) *uint256.Int {
	if b, ok := t.balances.Get(holder); ok && b != nil {
		return b.Clone()
	}
	return new(uint256.Int)
}

func (t *Token) TotalSupply() *uint256.Int {
	if s := t.supply.Get(); s != nil {
		return s.Clone()
	}
	return new(uint256.Int)
}

func (t *Token) setBalance(holder common.Address, amount *uint256.Int) {
	if amount.IsZero() {
		t.balances.Delete(holder)
		return
	}
	t.balances.Set(holder, amount)
}

// Mint creates amount for to. Owner only.
func (t *Token) Mint(caller, to common.Address, amount *uint256.Int) error {
	return t.c.Atomic(func() error {
		if err := t.RequireOwner(caller); err != nil {
			return err
		}
		supply, overflow := new(uint256.Int).AddOverflow(t.TotalSupply(), amount)
		if overflow {
			return fmt.Errorf("minting %s %s overflows supply", amount, t.symbol)
		}
		t.supply.Set(supply)
		t.setBalance(to, new(uint256.Int).Add(t.BalanceOf(to), amount))
		return nil
	})
}

// Transfer moves amount from caller to destination.
func (t *Token) Transfer(caller, destination common.Address, amount *uint256.Int) error {
	return t.c.Atomic(func() error {
		balance := t.BalanceOf(caller)
		if balance.Lt(amount) {
			return fmt.Errorf("%w: %s holds %s %s, transfer of %s requested",
				interfaces.ErrInsufficientBalance, caller.Hex(), balance, t.symbol, amount)
		}
		if destination == (common.Address{}) {
			return fmt.Errorf("%w: transfer destination", interfaces.ErrZeroAddress)
		}
		t.setBalance(caller, new(uint256.Int).Sub(balance, amount))
		t.setBalance(destination, new(uint256.Int).Add(t.BalanceOf(destination), amount))
		t.c.Log().Debug("asset transferred",
			slog.String("asset", t.symbol),
			slog.String("from", caller.Hex()),
			slog.String("to", destination.Hex()),
			slog.String("amount", amount.Dec()))
		return nil
	})
}

package proxy

import (
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/namespace-registry/chain"
	"github.com/ruteri/namespace-registry/interfaces"
)

// Ownable is a single administrator principal stored in a chain slot.
type Ownable struct {
	c     *chain.Chain
	name  string
	owner *chain.Value[common.Address]
}

// NewOwnable registers the slot <name>.owner and sets it to owner.
func NewOwnable(c *chain.Chain, name string, owner common.Address) *Ownable {
	o := &Ownable{c: c, name: name, owner: chain.NewValue[common.Address](c, name+".owner")}
	o.owner.Set(owner)
	return o
}

func (o *Ownable) Owner() common.Address {
	return o.owner.Get()
}

// RequireOwner fails with ErrUnauthorized unless caller is the owner.
func (o *Ownable) RequireOwner(caller common.Address) error {
	if owner := o.owner.Get(); owner == (common.Address{}) || caller != owner {
		return fmt.Errorf("%w: caller %s is not the owner of %s", interfaces.ErrUnauthorized, caller.Hex(), o.name)
	}
	return nil
}

// TransferOwnership hands the binding to newOwner. It is checked against the
// caller first, so a non-owner always gets ErrUnauthorized.
func (o *Ownable) TransferOwnership(caller, newOwner common.Address) error {
	return o.c.Atomic(func() error {
		if err := o.RequireOwner(caller); err != nil {
			return err
		}
		if newOwner == (common.Address{}) {
			return fmt.Errorf("%w: new owner of %s", interfaces.ErrZeroAddress, o.name)
		}
		o.owner.Set(newOwner)
		o.c.Log().Info("ownership transferred",
			slog.String("contract", o.name),
			slog.String("from", caller.Hex()),
			slog.String("to", newOwner.Hex()))
		return nil
	})
}

func (o *Ownable) set(owner common.Address) {
	o.owner.Set(owner)
}

package controller

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/ruteri/namespace-registry/chain"
	"github.com/ruteri/namespace-registry/interfaces"
	"github.com/ruteri/namespace-registry/namehash"
	"github.com/ruteri/namespace-registry/proxy"
)

var ErrInvalidLabel = errors.New("invalid label")

// core holds the operations both generations share.
type core struct {
	c *chain.Chain
	s *State
	b proxy.Binding
}

func (k *core) Base() common.Address             { return k.s.base.Get() }
func (k *core) ReverseRegistrar() common.Address { return k.s.reverse.Get() }
func (k *core) NameWrapper() common.Address      { return k.s.nameWrapper.Get() }
func (k *core) ENS() common.Address              { return k.s.ens.Get() }

func (k *core) registrar() (interfaces.Registrar, error) {
	return chain.Resolve[interfaces.Registrar](k.c, k.s.base.Get())
}

func validLabel(label string) error {
	if label == "" || strings.Contains(label, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidLabel, label)
	}
	return nil
}

func (k *core) NameOf(label string) string {
	if k.s.cfg.BaseName == "" {
		return label
	}
	return label + "." + k.s.cfg.BaseName
}

func (k *core) NodeOf(label string) (common.Hash, error) {
	if err := validLabel(label); err != nil {
		return common.Hash{}, err
	}
	reg, err := k.registrar()
	if err != nil {
		return common.Hash{}, err
	}
	return namehash.Subnode(reg.BaseNode(), namehash.LabelHash(label)), nil
}

func (k *core) Available(label string) bool {
	if validLabel(label) != nil {
		return false
	}
	reg, err := k.registrar()
	if err != nil {
		return false
	}
	return reg.Available(namehash.LabelHash(label))
}

func (k *core) NameExpires(label string) uint64 {
	reg, err := k.registrar()
	if err != nil {
		return 0
	}
	return reg.NameExpires(namehash.LabelHash(label))
}

// Register performs a complete registration. Any failing step rolls back
// every step before it.
func (k *core) Register(caller common.Address, req RegisterRequest) (uint64, error) {
	var expires uint64
	err := k.c.Atomic(func() error {
		if err := validLabel(req.Label); err != nil {
			return err
		}
		if len(req.Records) > 0 && req.Resolver == (common.Address{}) {
			return fmt.Errorf("%w: records require a resolver", interfaces.ErrNotFound)
		}
		reg, err := k.registrar()
		if err != nil {
			return err
		}

		id := namehash.LabelHash(req.Label)
		// While live or in grace only the incumbent may re-register,
		// whoever it names as owner.
		if e, ok := reg.Entry(id); ok && !reg.Available(id) && caller != e.Holder {
			return fmt.Errorf("%w: %s held by %s", interfaces.ErrAlreadyActiveOrInGrace, k.NameOf(req.Label), e.Holder.Hex())
		}
		if req.Resolver == (common.Address{}) {
			expires, err = reg.Register(k.s.address, id, req.Owner, req.Duration)
		} else {
			expires, err = reg.RegisterWithResolver(k.s.address, id, req.Owner, req.Duration, req.Resolver)
		}
		if err != nil {
			return err
		}

		node := namehash.Subnode(reg.BaseNode(), id)
		if len(req.Records) > 0 {
			res, err := chain.Resolve[interfaces.RecordResolver](k.c, req.Resolver)
			if err != nil {
				return err
			}
			if err := res.Multicall(k.s.address, node, req.Records); err != nil {
				return fmt.Errorf("writing records: %w", err)
			}
		}

		if req.ReverseRecord {
			rev, err := chain.Resolve[interfaces.ReverseRegistrar](k.c, k.s.reverse.Get())
			if err != nil {
				return err
			}
			if _, err := rev.SetNameForAddr(k.s.address, caller, req.Owner, req.Resolver, k.NameOf(req.Label)); err != nil {
				return fmt.Errorf("setting reverse record: %w", err)
			}
		}

		k.c.Log().Info("name registered",
			slog.String("name", k.NameOf(req.Label)),
			slog.String("owner", req.Owner.Hex()),
			slog.String("node", node.Hex()),
			slog.Uint64("expires", expires))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return expires, nil
}

func (k *core) Renew(caller common.Address, label string, duration time.Duration) (uint64, error) {
	if err := validLabel(label); err != nil {
		return 0, err
	}
	reg, err := k.registrar()
	if err != nil {
		return 0, err
	}
	expires, err := reg.Renew(k.s.address, namehash.LabelHash(label), duration)
	if err != nil {
		return 0, err
	}
	k.c.Log().Info("name renewed",
		slog.String("name", k.NameOf(label)),
		slog.String("caller", caller.Hex()),
		slog.Uint64("expires", expires))
	return expires, nil
}

// RecoverFunds moves amount of asset held by the controller to destination.
func (k *core) RecoverFunds(caller common.Address, asset interfaces.AssetLedger, destination common.Address, amount *uint256.Int) error {
	return k.c.Atomic(func() error {
		if err := k.b.RequireAdmin(caller); err != nil {
			return err
		}
		if err := asset.Transfer(k.s.address, destination, amount); err != nil {
			return err
		}
		k.c.Log().Info("funds recovered",
			slog.String("destination", destination.Hex()),
			slog.String("amount", amount.Dec()))
		return nil
	})
}

package resolver

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/namespace-registry/chain"
	"github.com/ruteri/namespace-registry/interfaces"
)

type publicResolver struct {
	c *chain.Chain
	s *State
}

func (r *publicResolver) ENS() common.Address               { return r.s.ens.Get() }
func (r *publicResolver) NameWrapper() common.Address       { return r.s.nameWrapper.Get() }
func (r *publicResolver) TrustedController() common.Address { return r.s.trustedController.Get() }
func (r *publicResolver) TrustedReverseRegistrar() common.Address {
	return r.s.trustedReverse.Get()
}

func (r *publicResolver) RecordVersion(node common.Hash) uint64 {
	v, _ := r.s.versions.Get(node)
	return v
}

func (r *publicResolver) key(node common.Hash) recordKey {
	return recordKey{Node: node, Version: r.RecordVersion(node)}
}

func (r *publicResolver) authorize(caller common.Address, node common.Hash) error {
	if caller == (common.Address{}) {
		return fmt.Errorf("%w: zero caller", interfaces.ErrUnauthorized)
	}
	if caller == r.s.trustedController.Get() || caller == r.s.trustedReverse.Get() {
		return nil
	}
	reg, err := chain.Resolve[interfaces.NamespaceReader](r.c, r.s.ens.Get())
	if err != nil {
		return fmt.Errorf("%w: resolver has no registry: %v", interfaces.ErrUnauthorized, err)
	}
	if reg.Owner(node) != caller {
		return fmt.Errorf("%w: %s may not write records of %s", interfaces.ErrUnauthorized, caller.Hex(), node.Hex())
	}
	return nil
}

// write runs fn after authorizing caller for node.
func (r *publicResolver) write(caller common.Address, node common.Hash, fn func()) error {
	return r.c.Atomic(func() error {
		if err := r.authorize(caller, node); err != nil {
			return err
		}
		fn()
		return nil
	})
}

func (r *publicResolver) SetAddr(caller common.Address, node common.Hash, addr common.Address) error {
	return r.write(caller, node, func() { r.setAddr(node, addr) })
}

func (r *publicResolver) setAddr(node common.Hash, addr common.Address) {
	if addr == (common.Address{}) {
		r.s.addrs.Delete(r.key(node))
		return
	}
	r.s.addrs.Set(r.key(node), addr)
}

func (r *publicResolver) Addr(node common.Hash) common.Address {
	addr, _ := r.s.addrs.Get(r.key(node))
	return addr
}

func (r *publicResolver) SetText(caller common.Address, node common.Hash, key, value string) error {
	return r.write(caller, node, func() { r.setText(node, key, value) })
}

func (r *publicResolver) setText(node common.Hash, key, value string) {
	k := textKey{Node: node, Version: r.RecordVersion(node), Key: key}
	if value == "" {
		r.s.texts.Delete(k)
		return
	}
	r.s.texts.Set(k, value)
}

func (r *publicResolver) Text(node common.Hash, key string) string {
	value, _ := r.s.texts.Get(textKey{Node: node, Version: r.RecordVersion(node), Key: key})
	return value
}

func (r *publicResolver) SetContenthash(caller common.Address, node common.Hash, hash []byte) error {
	return r.write(caller, node, func() { r.setContenthash(node, hash) })
}

func (r *publicResolver) setContenthash(node common.Hash, hash []byte) {
	if len(hash) == 0 {
		r.s.contenthashes.Delete(r.key(node))
		return
	}
	r.s.contenthashes.Set(r.key(node), bytes.Clone(hash))
}

func (r *publicResolver) Contenthash(node common.Hash) []byte {
	hash, _ := r.s.contenthashes.Get(r.key(node))
	return bytes.Clone(hash)
}

func (r *publicResolver) SetName(caller common.Address, node common.Hash, name string) error {
	return r.write(caller, node, func() { r.setName(node, name) })
}

func (r *publicResolver) setName(node common.Hash, name string) {
	if name == "" {
		r.s.names.Delete(r.key(node))
		return
	}
	r.s.names.Set(r.key(node), name)
}

func (r *publicResolver) Name(node common.Hash) string {
	name, _ := r.s.names.Get(r.key(node))
	return name
}

func (r *publicResolver) Multicall(caller common.Address, node common.Hash, updates []interfaces.RecordUpdate) error {
	return r.c.Atomic(func() error {
		if err := r.authorize(caller, node); err != nil {
			return err
		}
		for i, u := range updates {
			switch u.Kind {
			case interfaces.AddrRecord:
				r.setAddr(node, u.Addr)
			case interfaces.TextRecord:
				if u.Key == "" {
					return fmt.Errorf("update %d: text record without key", i)
				}
				r.setText(node, u.Key, u.Value)
			case interfaces.ContenthashRecord:
				r.setContenthash(node, u.Data)
			case interfaces.NameRecord:
				r.setName(node, u.Value)
			default:
				return fmt.Errorf("update %d: unknown record kind %d", i, u.Kind)
			}
		}
		r.c.Log().Debug("resolver records updated",
			slog.String("node", node.Hex()),
			slog.Int("updates", len(updates)))
		return nil
	})
}

func (r *publicResolver) ClearRecords(caller common.Address, node common.Hash) error {
	return r.write(caller, node, func() {
		next := r.RecordVersion(node) + 1
		r.s.versions.Set(node, next)
		r.c.Log().Debug("resolver records cleared",
			slog.String("node", node.Hex()),
			slog.Uint64("version", next))
	})
}

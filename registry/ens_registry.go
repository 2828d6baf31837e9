package registry

import (
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/namespace-registry/chain"
	"github.com/ruteri/namespace-registry/interfaces"
	"github.com/ruteri/namespace-registry/namehash"
)

type ensRegistry struct {
	c *chain.Chain
	s *State
}

func (r *ensRegistry) Owner(node common.Hash) common.Address {
	rec, _ := r.s.records.Get(node)
	return rec.Owner
}

func (r *ensRegistry) Resolver(node common.Hash) common.Address {
	rec, _ := r.s.records.Get(node)
	return rec.Resolver
}

func (r *ensRegistry) TTL(node common.Hash) uint64 {
	rec, _ := r.s.records.Get(node)
	return rec.TTL
}

func (r *ensRegistry) RecordExists(node common.Hash) bool {
	return r.Owner(node) != (common.Address{})
}

func (r *ensRegistry) authorize(caller common.Address, node common.Hash) error {
	owner := r.Owner(node)
	if owner == (common.Address{}) || owner != caller {
		return fmt.Errorf("%w: %s does not own node %s", interfaces.ErrUnauthorized, caller.Hex(), node.Hex())
	}
	return nil
}

// put stores rec, deleting the node entirely when it has no owner.
func (r *ensRegistry) put(node common.Hash, rec Record) {
	if rec.Owner == (common.Address{}) {
		r.s.records.Delete(node)
		return
	}
	r.s.records.Set(node, rec)
}

func (r *ensRegistry) SetOwner(caller common.Address, node common.Hash, owner common.Address) error {
	return r.c.Atomic(func() error {
		if err := r.authorize(caller, node); err != nil {
			return err
		}
		rec, _ := r.s.records.Get(node)
		rec.Owner = owner
		r.put(node, rec)
		r.c.Log().Debug("node owner set", slog.String("node", node.Hex()), slog.String("owner", owner.Hex()))
		return nil
	})
}

func (r *ensRegistry) SetSubnodeOwner(caller common.Address, parent, label common.Hash, owner common.Address) (common.Hash, error) {
	child := namehash.Subnode(parent, label)
	err := r.c.Atomic(func() error {
		if err := r.authorize(caller, parent); err != nil {
			return err
		}
		rec, _ := r.s.records.Get(child)
		rec.Owner = owner
		r.put(child, rec)
		r.c.Log().Debug("subnode owner set",
			slog.String("parent", parent.Hex()),
			slog.String("label", label.Hex()),
			slog.String("owner", owner.Hex()))
		return nil
	})
	if err != nil {
		return common.Hash{}, err
	}
	return child, nil
}

func (r *ensRegistry) SetSubnodeRecord(caller common.Address, parent, label common.Hash, owner, resolver common.Address, ttl uint64) (common.Hash, error) {
	child := namehash.Subnode(parent, label)
	err := r.c.Atomic(func() error {
		if err := r.authorize(caller, parent); err != nil {
			return err
		}
		r.put(child, Record{Owner: owner, Resolver: resolver, TTL: ttl})
		r.c.Log().Debug("subnode record set",
			slog.String("node", child.Hex()),
			slog.String("owner", owner.Hex()),
			slog.String("resolver", resolver.Hex()))
		return nil
	})
	if err != nil {
		return common.Hash{}, err
	}
	return child, nil
}

func (r *ensRegistry) SetRecord(caller common.Address, node common.Hash, owner, resolver common.Address, ttl uint64) error {
	return r.c.Atomic(func() error {
		if err := r.authorize(caller, node); err != nil {
			return err
		}
		r.put(node, Record{Owner: owner, Resolver: resolver, TTL: ttl})
		return nil
	})
}

func (r *ensRegistry) SetResolver(caller common.Address, node common.Hash, resolver common.Address) error {
	return r.c.Atomic(func() error {
		if err := r.authorize(caller, node); err != nil {
			return err
		}
		rec, _ := r.s.records.Get(node)
		rec.Resolver = resolver
		r.put(node, rec)
		return nil
	})
}

func (r *ensRegistry) SetTTL(caller common.Address, node common.Hash, ttl uint64) error {
	return r.c.Atomic(func() error {
		if err := r.authorize(caller, node); err != nil {
			return err
		}
		rec, _ := r.s.records.Get(node)
		rec.TTL = ttl
		r.put(node, rec)
		return nil
	})
}

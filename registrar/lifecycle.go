package registrar

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/namespace-registry/chain"
	"github.com/ruteri/namespace-registry/interfaces"
)

func (r *Registrar) checkDuration(d time.Duration) error {
	switch {
	case d < time.Second:
		return fmt.Errorf("%w: %s is not a positive number of seconds", interfaces.ErrInvalidDuration, d)
	case d < r.cfg.MinDuration:
		return fmt.Errorf("%w: %s is shorter than %s", interfaces.ErrInvalidDuration, d, r.cfg.MinDuration)
	case r.cfg.MaxDuration > 0 && d > r.cfg.MaxDuration:
		return fmt.Errorf("%w: %s is longer than %s", interfaces.ErrInvalidDuration, d, r.cfg.MaxDuration)
	}
	return nil
}

func extend(from uint64, d time.Duration) (uint64, error) {
	secs := seconds(d)
	if from > math.MaxUint64-secs {
		return 0, fmt.Errorf("%w: expiry overflows", interfaces.ErrInvalidDuration)
	}
	return from + secs, nil
}

func (r *Registrar) registry() (interfaces.NamespaceRegistry, error) {
	return chain.Resolve[interfaces.NamespaceRegistry](r.c, r.cfg.Registry)
}

// Register creates or extends the registration of id for holder. Caller must
// be an allow-listed controller.
func (r *Registrar) Register(caller common.Address, id common.Hash, holder common.Address, duration time.Duration) (uint64, error) {
	return r.register(caller, id, holder, duration, common.Address{})
}

// RegisterWithResolver is Register, also pointing the mirrored node at resolver.
func (r *Registrar) RegisterWithResolver(caller common.Address, id common.Hash, holder common.Address, duration time.Duration, resolver common.Address) (uint64, error) {
	return r.register(caller, id, holder, duration, resolver)
}

func (r *Registrar) register(caller common.Address, id common.Hash, holder common.Address, duration time.Duration, resolver common.Address) (uint64, error) {
	var expires uint64
	err := r.c.Atomic(func() error {
		if err := r.requireController(caller); err != nil {
			return err
		}
		if holder == (common.Address{}) {
			return fmt.Errorf("%w: registration holder", interfaces.ErrZeroAddress)
		}
		if err := r.checkDuration(duration); err != nil {
			return err
		}

		now := r.c.Now()
		from := now
		if e, ok := r.Entry(id); ok && now < r.graceEnd(e) {
			if holder != e.Holder {
				return fmt.Errorf("%w: %s held by %s until %d", interfaces.ErrAlreadyActiveOrInGrace, id.Hex(), e.Holder.Hex(), e.Expires)
			}
			from = max(e.Expires, now)
		}

		var err error
		if expires, err = extend(from, duration); err != nil {
			return err
		}
		r.entries.Set(id, interfaces.RegistrationEntry{Holder: holder, Expires: expires})

		if err := r.mirror(id, holder, resolver, resolver != (common.Address{})); err != nil {
			return err
		}
		r.c.Log().Debug("name registered",
			slog.String("id", id.Hex()),
			slog.String("holder", holder.Hex()),
			slog.Uint64("expires", expires))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return expires, nil
}

// mirror writes the holder of id into the registry. With withRecord set the
// resolver and ttl are replaced in the same write.
func (r *Registrar) mirror(id common.Hash, holder, resolver common.Address, withRecord bool) error {
	reg, err := r.registry()
	if err != nil {
		return err
	}
	if withRecord {
		_, err = reg.SetSubnodeRecord(r.address, r.cfg.BaseNode, id, holder, resolver, 0)
	} else {
		_, err = reg.SetSubnodeOwner(r.address, r.cfg.BaseNode, id, holder)
	}
	if err != nil {
		return fmt.Errorf("mirroring %s into registry: %w", id.Hex(), err)
	}
	return nil
}

// Renew extends a registration that has not become reclaimable. Caller must
// be an allow-listed controller.
func (r *Registrar) Renew(caller common.Address, id common.Hash, duration time.Duration) (uint64, error) {
	var expires uint64
	err := r.c.Atomic(func() error {
		if err := r.requireController(caller); err != nil {
			return err
		}
		e, ok := r.Entry(id)
		if !ok || r.c.Now() >= r.graceEnd(e) {
			return fmt.Errorf("%w: no renewable registration for %s", interfaces.ErrNotFound, id.Hex())
		}
		if duration < time.Second {
			return fmt.Errorf("%w: %s is not a positive number of seconds", interfaces.ErrInvalidDuration, duration)
		}

		var err error
		if e.Expires, err = extend(e.Expires, duration); err != nil {
			return err
		}
		r.entries.Set(id, e)
		expires = e.Expires
		r.c.Log().Debug("name renewed", slog.String("id", id.Hex()), slog.Uint64("expires", expires))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return expires, nil
}

// Reclaim hands a reclaimable registration to newHolder as a fresh
// registration. Any caller may reclaim; the first one wins. The registry
// mirror is overwritten, dropping the previous resolver and ttl.
func (r *Registrar) Reclaim(caller common.Address, id common.Hash, newHolder common.Address, duration time.Duration) (uint64, error) {
	var expires uint64
	err := r.c.Atomic(func() error {
		e, ok := r.Entry(id)
		if !ok {
			return fmt.Errorf("%w: %s was never registered", interfaces.ErrNotFound, id.Hex())
		}
		if now := r.c.Now(); now < r.graceEnd(e) {
			return fmt.Errorf("%w: %s is not reclaimable until %d", interfaces.ErrUnauthorized, id.Hex(), r.graceEnd(e))
		}
		if newHolder == (common.Address{}) {
			return fmt.Errorf("%w: registration holder", interfaces.ErrZeroAddress)
		}
		if err := r.checkDuration(duration); err != nil {
			return err
		}

		var err error
		if expires, err = extend(r.c.Now(), duration); err != nil {
			return err
		}
		r.entries.Set(id, interfaces.RegistrationEntry{Holder: newHolder, Expires: expires})
		if err := r.mirror(id, newHolder, common.Address{}, true); err != nil {
			return err
		}
		r.c.Log().Debug("name reclaimed",
			slog.String("id", id.Hex()),
			slog.String("caller", caller.Hex()),
			slog.String("holder", newHolder.Hex()),
			slog.String("previous", e.Holder.Hex()))
		return nil
	})
	if err != nil {
		return 0, err
	}
	return expires, nil
}

// Transfer hands a live registration to another holder. Caller must be the
// current holder.
func (r *Registrar) Transfer(caller common.Address, id common.Hash, to common.Address) error {
	return r.c.Atomic(func() error {
		holder, err := r.OwnerOf(id)
		if err != nil {
			return err
		}
		if caller != holder {
			return fmt.Errorf("%w: %s does not hold %s", interfaces.ErrUnauthorized, caller.Hex(), id.Hex())
		}
		if to == (common.Address{}) {
			return fmt.Errorf("%w: transfer recipient", interfaces.ErrZeroAddress)
		}
		e, _ := r.Entry(id)
		e.Holder = to
		r.entries.Set(id, e)
		return r.mirror(id, to, common.Address{}, false)
	})
}

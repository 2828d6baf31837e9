package registrar

import (
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/namespace-registry/chain"
	"github.com/ruteri/namespace-registry/interfaces"
	"github.com/ruteri/namespace-registry/proxy"
)

const (
	GracePeriodV1 = 90 * 24 * time.Hour
	GracePeriodV2 = 30 * 24 * time.Hour
)

// Config is fixed when the registrar is created.
type Config struct {
	// Registry is the address of the namespace registry mirrored into.
	Registry common.Address
	// BaseNode is the node labels are registered under.
	BaseNode common.Hash
	// GracePeriod is the window after expiry reserved for the incumbent.
	GracePeriod time.Duration
	// MinDuration and MaxDuration bound registration durations. Zero MaxDuration means unbounded.
	MinDuration time.Duration
	MaxDuration time.Duration
	// Predecessor, if set, is a registrar whose entries are inherited until overwritten.
	Predecessor common.Address
}

// Registrar grants registrations of labels under Config.BaseNode.
type Registrar struct {
	*proxy.Ownable

	c       *chain.Chain
	address common.Address
	cfg     Config

	entries     *chain.Map[common.Hash, interfaces.RegistrationEntry]
	controllers *chain.Map[common.Address, bool]
}

var _ interfaces.Registrar = (*Registrar)(nil)

// New creates a registrar owned by owner at address and binds it in the
// chain directory. name prefixes its storage slots.
func New(c *chain.Chain, address common.Address, name string, owner common.Address, cfg Config) *Registrar {
	r := &Registrar{
		Ownable:     proxy.NewOwnable(c, name, owner),
		c:           c,
		address:     address,
		cfg:         cfg,
		entries:     chain.NewMap[common.Hash, interfaces.RegistrationEntry](c, name+".entries"),
		controllers: chain.NewMap[common.Address, bool](c, name+".controllers"),
	}
	c.Bind(address, r)
	return r
}

// Address is the contract address the registrar is bound at.
func (r *Registrar) Address() common.Address { return r.address }

// Config returns the configuration the registrar was deployed with.
func (r *Registrar) Config() Config { return r.cfg }

// BaseNode is the node whose direct children this registrar issues.
func (r *Registrar) BaseNode() common.Hash { return r.cfg.BaseNode }

// GracePeriod is how long an expired registration stays reserved for its holder.
func (r *Registrar) GracePeriod() time.Duration { return r.cfg.GracePeriod }

// AddController allow-lists a controller. Owner only.
func (r *Registrar) AddController(caller, controller common.Address) error {
	return r.c.Atomic(func() error {
		if err := r.RequireOwner(caller); err != nil {
			return err
		}
		r.controllers.Set(controller, true)
		r.c.Log().Info("registrar controller added",
			slog.String("registrar", r.address.Hex()),
			slog.String("controller", controller.Hex()))
		return nil
	})
}

// RemoveController drops a controller from the allow-list. Owner only.
func (r *Registrar) RemoveController(caller, controller common.Address) error {
	return r.c.Atomic(func() error {
		if err := r.RequireOwner(caller); err != nil {
			return err
		}
		r.controllers.Delete(controller)
		r.c.Log().Info("registrar controller removed",
			slog.String("registrar", r.address.Hex()),
			slog.String("controller", controller.Hex()))
		return nil
	})
}

// IsController reports whether addr is allow-listed to register names.
func (r *Registrar) IsController(addr common.Address) bool {
	ok, _ := r.controllers.Get(addr)
	return ok
}

func (r *Registrar) requireController(caller common.Address) error {
	if !r.IsController(caller) {
		return fmt.Errorf("%w: %s is not a registrar controller", interfaces.ErrUnauthorized, caller.Hex())
	}
	return nil
}

// Entry returns the registration of id, falling back to the predecessor.
func (r *Registrar) Entry(id common.Hash) (interfaces.RegistrationEntry, bool) {
	if e, ok := r.entries.Get(id); ok {
		return e, true
	}
	if r.cfg.Predecessor == (common.Address{}) {
		return interfaces.RegistrationEntry{}, false
	}
	prev, err := chain.Resolve[interfaces.Registrar](r.c, r.cfg.Predecessor)
	if err != nil {
		return interfaces.RegistrationEntry{}, false
	}
	return prev.Entry(id)
}

func seconds(d time.Duration) uint64 {
	return uint64(d / time.Second)
}

func addSat(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

func (r *Registrar) graceEnd(e interfaces.RegistrationEntry) uint64 {
	return addSat(e.Expires, seconds(r.cfg.GracePeriod))
}

// NameExpires returns the expiry in unix seconds, 0 if id was never registered.
func (r *Registrar) NameExpires(id common.Hash) uint64 {
	e, _ := r.Entry(id)
	return e.Expires
}

// IsLive reports whether id is registered and not yet expired.
func (r *Registrar) IsLive(id common.Hash) bool {
	e, ok := r.Entry(id)
	return ok && r.c.Now() < e.Expires
}

// IsInGrace reports whether id has expired but its grace period has not ended.
func (r *Registrar) IsInGrace(id common.Hash) bool {
	e, ok := r.Entry(id)
	now := r.c.Now()
	return ok && e.Expires <= now && now < r.graceEnd(e)
}

// IsReclaimable reports whether a registered token is past its grace period.
// A token that was never registered is available but not reclaimable.
func (r *Registrar) IsReclaimable(id common.Hash) bool {
	e, ok := r.Entry(id)
	return ok && r.c.Now() >= r.graceEnd(e)
}

// Available reports whether id can be registered by anyone.
func (r *Registrar) Available(id common.Hash) bool {
	e, ok := r.Entry(id)
	return !ok || r.c.Now() >= r.graceEnd(e)
}

// OwnerOf returns the holder of a live registration.
func (r *Registrar) OwnerOf(id common.Hash) (common.Address, error) {
	e, ok := r.Entry(id)
	if !ok || r.c.Now() >= e.Expires {
		return common.Address{}, fmt.Errorf("%w: no live registration for %s", interfaces.ErrNotFound, id.Hex())
	}
	return e.Holder, nil
}

package chain

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/namespace-registry/interfaces"
)

var (
	// ErrCallPanicked is returned when a call panics. The panic is converted into a
	// rejected call and all of its writes are undone.
	ErrCallPanicked = errors.New("call panicked")

	ErrUnknownSlot = errors.New("unknown storage slot")
)

// Chain serializes calls and owns all persistent component state.
type Chain struct {
	mu    sync.RWMutex
	clock Clock
	log   *slog.Logger

	journal []func()
	depth   int

	slots     map[string]slot
	contracts map[common.Address]any
	nonces    *Map[common.Address, uint64]
}

// New creates an empty chain evaluated at clock's time.
func New(clock Clock, log *slog.Logger) *Chain {
	if clock == nil {
		clock = SystemClock{}
	}
	if log == nil {
		log = slog.Default()
	}
	c := &Chain{
		clock:     clock,
		log:       log,
		slots:     make(map[string]slot),
		contracts: make(map[common.Address]any),
	}
	c.nonces = NewMap[common.Address, uint64](c, "chain.nonces")
	return c
}

// Log returns the logger components report through.
func (c *Chain) Log() *slog.Logger {
	return c.log
}

// Now returns the current time in unix seconds.
func (c *Chain) Now() uint64 {
	ts := c.clock.Now().Unix()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

// Submit runs fn as one serialized, atomic call.
func (c *Chain) Submit(fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Atomic(fn)
}

// View runs fn under the shared lock. fn must not write.
func (c *Chain) View(fn func() error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fn()
}

// Atomic runs fn inside a savepoint. If fn fails every journaled write made
// since the savepoint is undone in reverse order. Nested savepoints only
// unwind their own writes; the enclosing call decides about the rest.
func (c *Chain) Atomic(fn func() error) error {
	mark := len(c.journal)
	c.depth++
	err := c.call(fn)
	c.depth--

	if err != nil {
		c.revert(mark)
		return err
	}
	if c.depth == 0 {
		c.journal = c.journal[:0]
	}
	return nil
}

func (c *Chain) call(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrCallPanicked, r)
		}
	}()
	return fn()
}

func (c *Chain) revert(mark int) {
	for i := len(c.journal) - 1; i >= mark; i-- {
		c.journal[i]()
	}
	c.journal = c.journal[:mark]
}

// record registers an undo step. Writes outside any savepoint are final.
func (c *Chain) record(undo func()) {
	if c.depth > 0 {
		c.journal = append(c.journal, undo)
	}
}

func (c *Chain) register(name string, s slot) {
	if _, exists := c.slots[name]; exists {
		panic(fmt.Sprintf("chain: duplicate storage slot %q", name))
	}
	c.slots[name] = s
	c.record(func() { delete(c.slots, name) })
}

// Deploy allocates the next contract address of deployer.
func (c *Chain) Deploy(deployer common.Address) common.Address {
	nonce, _ := c.nonces.Get(deployer)
	c.nonces.Set(deployer, nonce+1)
	return crypto.CreateAddress(deployer, nonce)
}

// Bind places contract at addr in the directory.
func (c *Chain) Bind(addr common.Address, contract any) {
	prev, existed := c.contracts[addr]
	c.contracts[addr] = contract
	c.record(func() {
		if existed {
			c.contracts[addr] = prev
		} else {
			delete(c.contracts, addr)
		}
	})
}

// Lookup returns whatever is bound at addr.
func (c *Chain) Lookup(addr common.Address) (any, bool) {
	contract, ok := c.contracts[addr]
	return contract, ok
}

// Addresses lists every bound contract address in ascending order.
func (c *Chain) Addresses() []common.Address {
	addrs := make([]common.Address, 0, len(c.contracts))
	for addr := range c.contracts {
		addrs = append(addrs, addr)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i].Cmp(addrs[j]) < 0 })
	return addrs
}

// Resolve returns the contract at addr if it implements T.
func Resolve[T any](c *Chain, addr common.Address) (T, error) {
	var zero T
	contract, ok := c.contracts[addr]
	if !ok {
		return zero, fmt.Errorf("%w: no contract at %s", interfaces.ErrNotFound, addr.Hex())
	}
	typed, ok := contract.(T)
	if !ok {
		return zero, fmt.Errorf("%w: contract at %s does not implement %T", interfaces.ErrNotFound, addr.Hex(), (*T)(nil))
	}
	return typed, nil
}

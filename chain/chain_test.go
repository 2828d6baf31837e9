package chain

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/namespace-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = errors.New("boom")

func newTestChain() (*Chain, *ManualClock) {
	clock := NewManualClock(time.Unix(1_700_000_000, 0))
	return New(clock, slog.New(slog.NewTextHandler(io.Discard, nil))), clock
}

func TestAtomic_RevertsOnError(t *testing.T) {
	c, _ := newTestChain()
	balances := NewMap[common.Address, uint64](c, "test.balances")
	total := NewValue[uint64](c, "test.total")

	alice := common.HexToAddress("0xa1")
	require.NoError(t, c.Submit(func() error {
		balances.Set(alice, 10)
		total.Set(10)
		return nil
	}))

	err := c.Submit(func() error {
		balances.Set(alice, 0)
		balances.Set(common.HexToAddress("0xb2"), 5)
		total.Set(5)
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	got, ok := balances.Get(alice)
	assert.True(t, ok)
	assert.Equal(t, uint64(10), got)
	assert.False(t, balances.Has(common.HexToAddress("0xb2")))
	assert.Equal(t, uint64(10), total.Get())
}

func TestAtomic_NestedSavepoint(t *testing.T) {
	c, _ := newTestChain()
	names := NewMap[string, string](c, "test.names")

	err := c.Submit(func() error {
		names.Set("outer", "kept")
		innerErr := c.Atomic(func() error {
			names.Set("inner", "dropped")
			names.Delete("outer")
			return errBoom
		})
		assert.ErrorIs(t, innerErr, errBoom)
		return nil
	})
	require.NoError(t, err)

	v, ok := names.Get("outer")
	assert.True(t, ok)
	assert.Equal(t, "kept", v)
	assert.False(t, names.Has("inner"))
	assert.Empty(t, c.journal)
}

func TestAtomic_PanicIsRejectedCall(t *testing.T) {
	c, _ := newTestChain()
	counter := NewValue[uint64](c, "test.counter")

	err := c.Submit(func() error {
		counter.Set(1)
		panic("unexpected")
	})
	require.ErrorIs(t, err, ErrCallPanicked)
	assert.Zero(t, counter.Get())

	require.NoError(t, c.Submit(func() error {
		counter.Set(2)
		return nil
	}))
	assert.Equal(t, uint64(2), counter.Get())
}

func TestRegister_DuplicateSlotPanics(t *testing.T) {
	c, _ := newTestChain()
	NewValue[uint64](c, "dup")
	assert.Panics(t, func() { NewValue[uint64](c, "dup") })
}

func TestDeploy_DeterministicAddresses(t *testing.T) {
	c, _ := newTestChain()
	deployer := common.HexToAddress("0xde")

	first := c.Deploy(deployer)
	second := c.Deploy(deployer)
	assert.Equal(t, crypto.CreateAddress(deployer, 0), first)
	assert.Equal(t, crypto.CreateAddress(deployer, 1), second)

	// A failed deployment releases its nonce.
	err := c.Submit(func() error {
		c.Bind(c.Deploy(deployer), "contract")
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, crypto.CreateAddress(deployer, 2), c.Deploy(deployer))
	assert.Empty(t, c.Addresses())
}

func TestResolve(t *testing.T) {
	c, _ := newTestChain()
	addr := c.Deploy(common.HexToAddress("0xde"))
	c.Bind(addr, &ManualClock{})

	clock, err := Resolve[Clock](c, addr)
	require.NoError(t, err)
	assert.NotNil(t, clock)

	_, err = Resolve[io.Reader](c, addr)
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	_, err = Resolve[Clock](c, common.HexToAddress("0x01"))
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
}

func TestNow_FollowsClock(t *testing.T) {
	c, clock := newTestChain()
	assert.Equal(t, uint64(1_700_000_000), c.Now())
	clock.Advance(24 * time.Hour)
	assert.Equal(t, uint64(1_700_000_000+86400), c.Now())
}

type record struct {
	Owner common.Address
	TTL   uint64
}

func TestSnapshotRestore(t *testing.T) {
	c, _ := newTestChain()
	records := NewMap[common.Hash, record](c, "test.records")
	admin := NewValue[common.Address](c, "test.admin")

	node := common.HexToHash("0x01")
	records.Set(node, record{Owner: common.HexToAddress("0xa1"), TTL: 300})
	records.Set(common.HexToHash("0x02"), record{Owner: common.HexToAddress("0xb2")})
	admin.Set(common.HexToAddress("0xad"))

	slots, err := c.Snapshot()
	require.NoError(t, err)
	again, err := c.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, slots, again, "snapshots must be deterministic")

	records.Delete(node)
	admin.Set(common.Address{})

	require.NoError(t, c.Restore(slots))
	got, ok := records.Get(node)
	require.True(t, ok)
	assert.Equal(t, uint64(300), got.TTL)
	assert.Equal(t, 2, records.Len())
	assert.Equal(t, common.HexToAddress("0xad"), admin.Get())

	admin.Set(common.Address{})
	err = c.Restore(append(slots, Slot{Name: "missing"}))
	assert.ErrorIs(t, err, ErrUnknownSlot)
	assert.Equal(t, common.Address{}, admin.Get(), "a failed restore installs nothing")
}

func TestCheckRestore(t *testing.T) {
	c, _ := newTestChain()
	admin := NewValue[common.Address](c, "v1.admin")
	admin.Set(common.HexToAddress("0xad"))

	slots, err := c.Snapshot()
	require.NoError(t, err)
	require.Len(t, slots, 2) // chain nonces and v1.admin

	next := Slot{Name: "v2.admin", Data: slots[len(slots)-1].Data}
	assert.ErrorIs(t, c.CheckRestore([]Slot{next}, nil), ErrUnknownSlot)

	like := func(name string) string {
		if rest, ok := strings.CutPrefix(name, "v2."); ok {
			return "v1." + rest
		}
		return ""
	}
	require.NoError(t, c.CheckRestore(append(slots, next), like))
	err = c.CheckRestore([]Slot{{Name: "v2.admin", Data: []byte{0xff, 0x00}}}, like)
	assert.Error(t, err)
	assert.ErrorIs(t, c.CheckRestore([]Slot{{Name: "v3.admin"}}, like), ErrUnknownSlot)

	admin.Set(common.Address{})
	require.NoError(t, c.CheckRestore(slots, nil))
	assert.Equal(t, common.Address{}, admin.Get(), "checking installs nothing")
}

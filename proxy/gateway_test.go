package proxy

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/namespace-registry/chain"
	"github.com/ruteri/namespace-registry/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin    = common.HexToAddress("0xad")
	stranger = common.HexToAddress("0x5e")
)

type counterState struct {
	count *chain.Value[uint64]
	step  *chain.Value[uint64]
}

type counter interface {
	Increment() uint64
}

type counterV1 struct{ s *counterState }

func (v counterV1) Increment() uint64 {
	v.s.count.Set(v.s.count.Get() + 1)
	return v.s.count.Get()
}

type counterV2 struct {
	s *counterState
	b Binding
}

func (v counterV2) Increment() uint64 {
	v.s.count.Set(v.s.count.Get() + v.s.step.Get())
	return v.s.count.Get()
}

func (v counterV2) InitializeV2(caller common.Address, step uint64) error {
	return v.b.Reinitialize(caller, 2, func() error {
		v.s.step.Set(step)
		return nil
	})
}

func newCounter(t *testing.T) (*chain.Chain, *Gateway[counterState, counter]) {
	t.Helper()
	c := chain.New(chain.NewManualClock(time.Unix(0, 0)), slog.New(slog.NewTextHandler(io.Discard, nil)))
	state := &counterState{
		count: chain.NewValue[uint64](c, "counter.count"),
		step:  chain.NewValue[uint64](c, "counter.step"),
	}
	gw := New(c, c.Deploy(admin), "counter", state,
		Implementation[counterState, counter]{Tag: "CounterV1", Bind: func(s *counterState, _ Binding) counter { return counterV1{s} }},
		Implementation[counterState, counter]{Tag: "CounterV2", Bind: func(s *counterState, b Binding) counter { return counterV2{s, b} }},
	)
	return c, gw
}

func TestGateway_InitializeExactlyOnce(t *testing.T) {
	_, gw := newCounter(t)

	require.NoError(t, gw.Initialize(admin, nil))
	assert.Equal(t, admin, gw.Admin())
	assert.Equal(t, uint64(1), gw.Version())

	for _, caller := range []common.Address{admin, stranger, {}} {
		err := gw.Initialize(caller, func() error { return nil })
		assert.ErrorIs(t, err, interfaces.ErrAlreadyInitialized)
	}
	assert.Equal(t, admin, gw.Admin())
}

func TestGateway_UpgradePreservesStateAndAdmin(t *testing.T) {
	_, gw := newCounter(t)
	require.NoError(t, gw.Initialize(admin, nil))

	gw.Current().Increment()
	gw.Current().Increment()

	err := gw.Upgrade(stranger, "CounterV2")
	assert.ErrorIs(t, err, interfaces.ErrUnauthorized)
	assert.Equal(t, "CounterV1", gw.Implementation())

	err = gw.Upgrade(admin, "CounterV3")
	assert.ErrorIs(t, err, interfaces.ErrNotFound)

	require.NoError(t, gw.Upgrade(admin, "CounterV2"))
	assert.Equal(t, "CounterV2", gw.Implementation())
	assert.Equal(t, admin, gw.Admin())
	assert.Equal(t, uint64(2), gw.State().count.Get())

	v2, ok := gw.Current().(interface {
		InitializeV2(common.Address, uint64) error
	})
	require.True(t, ok)

	assert.ErrorIs(t, v2.InitializeV2(stranger, 10), interfaces.ErrUnauthorized)
	require.NoError(t, v2.InitializeV2(admin, 10))
	assert.ErrorIs(t, v2.InitializeV2(admin, 20), interfaces.ErrAlreadyInitialized)
	assert.Equal(t, uint64(12), gw.Current().Increment())
}

func TestGateway_ReinitializeFailureRollsBack(t *testing.T) {
	c, gw := newCounter(t)
	require.NoError(t, gw.Initialize(admin, nil))

	err := c.Submit(func() error {
		return gw.Reinitialize(admin, 2, func() error {
			gw.State().step.Set(99)
			return interfaces.ErrNotFound
		})
	})
	assert.ErrorIs(t, err, interfaces.ErrNotFound)
	assert.Equal(t, uint64(1), gw.Version())
	assert.Zero(t, gw.State().step.Get())
}

func TestGateway_TransferOwnership(t *testing.T) {
	_, gw := newCounter(t)
	require.NoError(t, gw.Initialize(admin, nil))

	for _, target := range []common.Address{stranger, admin, {}} {
		assert.ErrorIs(t, gw.TransferOwnership(stranger, target), interfaces.ErrUnauthorized)
	}
	assert.ErrorIs(t, gw.TransferOwnership(admin, common.Address{}), interfaces.ErrZeroAddress)

	require.NoError(t, gw.TransferOwnership(admin, stranger))
	assert.Equal(t, stranger, gw.Admin())
	assert.ErrorIs(t, gw.Upgrade(admin, "CounterV2"), interfaces.ErrUnauthorized)
	assert.NoError(t, gw.Upgrade(stranger, "CounterV2"))
}

func TestGateway_UninitializedHasNoAdmin(t *testing.T) {
	_, gw := newCounter(t)
	assert.ErrorIs(t, gw.Upgrade(common.Address{}, "CounterV2"), interfaces.ErrUnauthorized)
	assert.ErrorIs(t, gw.Upgrade(admin, "CounterV2"), interfaces.ErrUnauthorized)
}

func TestGateway_RestoredTagRedispatches(t *testing.T) {
	c, gw := newCounter(t)
	require.NoError(t, gw.Initialize(admin, nil))

	before, err := c.Snapshot()
	require.NoError(t, err)

	require.NoError(t, gw.Upgrade(admin, "CounterV2"))
	_, isV2 := gw.Current().(counterV2)
	assert.True(t, isV2)

	require.NoError(t, c.Restore(before))
	assert.Equal(t, "CounterV1", gw.Implementation())
	_, isV1 := gw.Current().(counterV1)
	assert.True(t, isV1)
}

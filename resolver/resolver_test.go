package resolver

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/namespace-registry/chain"
	"github.com/ruteri/namespace-registry/interfaces"
	"github.com/ruteri/namespace-registry/namehash"
	"github.com/ruteri/namespace-registry/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	deployer    = common.HexToAddress("0xde")
	controller  = common.HexToAddress("0xc0")
	reverse     = common.HexToAddress("0x4e5")
	nameWrapper = common.HexToAddress("0x3a")
	alice       = common.HexToAddress("0xa11ce")
	bob         = common.HexToAddress("0xb0b")
)

func setup(t *testing.T) (*chain.Chain, *registry.Registry, *Resolver, common.Hash) {
	t.Helper()
	c := chain.New(chain.NewManualClock(time.Unix(1_700_000_000, 0)), slog.New(slog.NewTextHandler(io.Discard, nil)))
	reg := registry.New(c, c.Deploy(deployer))
	require.NoError(t, reg.Initialize(deployer))

	res := New(c, c.Deploy(deployer))
	require.NoError(t, res.Initialize(deployer, reg.Address(), nameWrapper, controller, reverse))

	node, err := reg.SetSubnodeOwner(deployer, namehash.Root, namehash.LabelHash("web3"), alice)
	require.NoError(t, err)
	return c, reg, res, node
}

func TestResolver_Initialize(t *testing.T) {
	_, reg, res, _ := setup(t)

	assert.Equal(t, deployer, res.Owner())
	assert.Equal(t, reg.Address(), res.ENS())
	assert.Equal(t, nameWrapper, res.NameWrapper())
	assert.Equal(t, controller, res.TrustedController())
	assert.Equal(t, reverse, res.TrustedReverseRegistrar())

	err := res.Initialize(bob, bob, bob, bob, bob)
	assert.ErrorIs(t, err, interfaces.ErrAlreadyInitialized)
	assert.Equal(t, controller, res.TrustedController())
}

func TestResolver_OwnerGatedWrites(t *testing.T) {
	_, reg, res, node := setup(t)

	assert.ErrorIs(t, res.SetAddr(bob, node, bob), interfaces.ErrUnauthorized)
	assert.ErrorIs(t, res.SetText(bob, node, "url", "https://bob"), interfaces.ErrUnauthorized)
	assert.ErrorIs(t, res.SetContenthash(bob, node, []byte{0xe3}), interfaces.ErrUnauthorized)
	assert.ErrorIs(t, res.SetName(common.Address{}, node, "web3"), interfaces.ErrUnauthorized)

	require.NoError(t, res.SetAddr(alice, node, alice))
	require.NoError(t, res.SetText(alice, node, "url", "https://alice"))
	require.NoError(t, res.SetContenthash(alice, node, []byte{0xe3, 0x01}))
	assert.Equal(t, alice, res.Addr(node))
	assert.Equal(t, "https://alice", res.Text(node, "url"))
	assert.Equal(t, []byte{0xe3, 0x01}, res.Contenthash(node))

	// Records outlive ownership change; authority follows it.
	require.NoError(t, reg.SetOwner(alice, node, bob))
	assert.Equal(t, alice, res.Addr(node))
	assert.ErrorIs(t, res.SetAddr(alice, node, alice), interfaces.ErrUnauthorized)
	require.NoError(t, res.SetAddr(bob, node, bob))
	assert.Equal(t, bob, res.Addr(node))
}

func TestResolver_TrustedWriters(t *testing.T) {
	_, _, res, _ := setup(t)
	unowned := namehash.NameHash("nobody.web3")

	require.NoError(t, res.SetAddr(controller, unowned, alice))
	require.NoError(t, res.SetName(reverse, unowned, "alice.web3"))
	assert.Equal(t, alice, res.Addr(unowned))
	assert.Equal(t, "alice.web3", res.Name(unowned))
}

func TestResolver_MulticallIsAtomic(t *testing.T) {
	_, _, res, node := setup(t)

	err := res.Multicall(alice, node, []interfaces.RecordUpdate{
		{Kind: interfaces.AddrRecord, Addr: alice},
		{Kind: interfaces.TextRecord, Key: "", Value: "orphan"},
	})
	require.Error(t, err)
	assert.Equal(t, common.Address{}, res.Addr(node))

	require.NoError(t, res.Multicall(alice, node, []interfaces.RecordUpdate{
		{Kind: interfaces.AddrRecord, Addr: alice},
		{Kind: interfaces.TextRecord, Key: "email", Value: "alice@example.com"},
		{Kind: interfaces.ContenthashRecord, Data: []byte{0xe3}},
		{Kind: interfaces.NameRecord, Value: "web3"},
	}))
	assert.Equal(t, alice, res.Addr(node))
	assert.Equal(t, "alice@example.com", res.Text(node, "email"))
	assert.Equal(t, []byte{0xe3}, res.Contenthash(node))
	assert.Equal(t, "web3", res.Name(node))

	assert.ErrorIs(t, res.Multicall(bob, node, nil), interfaces.ErrUnauthorized)
}

func TestResolver_ClearRecords(t *testing.T) {
	_, _, res, node := setup(t)
	require.NoError(t, res.SetAddr(alice, node, alice))
	require.NoError(t, res.SetText(alice, node, "url", "https://alice"))

	assert.ErrorIs(t, res.ClearRecords(bob, node), interfaces.ErrUnauthorized)
	require.NoError(t, res.ClearRecords(alice, node))
	assert.Equal(t, uint64(1), res.RecordVersion(node))
	assert.Equal(t, common.Address{}, res.Addr(node))
	assert.Empty(t, res.Text(node, "url"))

	require.NoError(t, res.SetText(alice, node, "url", "https://new"))
	assert.Equal(t, "https://new", res.Text(node, "url"))
}

func TestResolver_ContenthashIsCopied(t *testing.T) {
	_, _, res, node := setup(t)
	hash := []byte{0x01, 0x02}
	require.NoError(t, res.SetContenthash(alice, node, hash))

	hash[0] = 0xff
	got := res.Contenthash(node)
	assert.Equal(t, []byte{0x01, 0x02}, got)
	got[1] = 0xff
	assert.Equal(t, []byte{0x01, 0x02}, res.Contenthash(node))
}

func TestResolver_AdminAxis(t *testing.T) {
	_, _, res, node := setup(t)
	require.NoError(t, res.SetAddr(alice, node, alice))

	assert.ErrorIs(t, res.TransferOwnership(alice, alice), interfaces.ErrUnauthorized)
	assert.ErrorIs(t, res.Upgrade(alice, ImplementationTag), interfaces.ErrUnauthorized)

	require.NoError(t, res.Upgrade(deployer, ImplementationTag))
	require.NoError(t, res.TransferOwnership(deployer, bob))
	assert.Equal(t, bob, res.Owner())
	assert.Equal(t, alice, res.Addr(node))
}

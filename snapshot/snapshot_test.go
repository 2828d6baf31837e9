package snapshot

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ruteri/namespace-registry/chain"
	"github.com/ruteri/namespace-registry/controller"
	"github.com/ruteri/namespace-registry/deploy"
	"github.com/ruteri/namespace-registry/interfaces"
	"github.com/ruteri/namespace-registry/namehash"
	"github.com/ruteri/namespace-registry/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	deployer = common.HexToAddress("0xde")
	alice    = common.HexToAddress("0xa11ce")
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSnapshot_SaveLoadApply(t *testing.T) {
	clock := chain.NewManualClock(time.Unix(1_700_000_000, 0))
	d, err := deploy.Deploy(chain.New(clock, testLogger()), deployer, deploy.DefaultOptions())
	require.NoError(t, err)
	_, err = d.Controller.Register(alice, controller.RegisterRequest{
		Label: "alice", Owner: alice, Duration: 24 * time.Hour, Resolver: d.Resolver.Address(),
		Records: []interfaces.RecordUpdate{{Kind: interfaces.ContenthashRecord, Data: []byte{0xe3, 0x01}}},
	})
	require.NoError(t, err)

	doc, err := Take(d.Chain)
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, doc.Version)
	assert.Equal(t, uint64(1_700_000_000), doc.Taken)

	backend, err := storage.NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)

	ctx := context.Background()
	id, err := Save(ctx, backend, doc, testLogger())
	require.NoError(t, err)
	want, err := ID(doc)
	require.NoError(t, err)
	assert.Equal(t, want, id)

	loaded, err := Load(ctx, backend, id)
	require.NoError(t, err)
	assert.Equal(t, doc, loaded)

	fresh, err := deploy.Deploy(chain.New(clock, testLogger()), deployer, deploy.DefaultOptions())
	require.NoError(t, err)
	require.NoError(t, Apply(fresh, loaded))

	node := namehash.NameHash("alice.web3")
	assert.Equal(t, alice, fresh.Registry.Owner(node))
	assert.Equal(t, []byte{0xe3, 0x01}, fresh.Resolver.Contenthash(node))
}

func TestSnapshot_DecodeRejectsOtherVersions(t *testing.T) {
	data, err := Encode(&Document{Version: 7})
	require.NoError(t, err)
	_, err = Decode(data)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = Decode([]byte{0x01, 0x02})
	assert.Error(t, err)
}

type tamperingBackend struct {
	interfaces.StorageBackend
}

func (b tamperingBackend) Fetch(ctx context.Context, id interfaces.ContentID, ct interfaces.ContentType) ([]byte, error) {
	data, err := b.StorageBackend.Fetch(ctx, id, ct)
	if err != nil {
		return nil, err
	}
	return append(data, 0x00), nil
}

func TestSnapshot_LoadVerifiesContent(t *testing.T) {
	backend, err := storage.NewFileBackend(t.TempDir(), testLogger())
	require.NoError(t, err)

	ctx := context.Background()
	id, err := Save(ctx, backend, &Document{Version: FormatVersion}, testLogger())
	require.NoError(t, err)

	_, err = Load(ctx, tamperingBackend{backend}, id)
	assert.ErrorIs(t, err, ErrContentMismatch)

	_, err = Load(ctx, backend, interfaces.ComputeID([]byte("missing")))
	assert.ErrorIs(t, err, interfaces.ErrContentNotFound)
}

package api

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/namespace-registry/interfaces"
)

// SignatureHeader carries the caller's signature over the request body.
const SignatureHeader = "X-Flashbots-Signature"

// ErrorResponse is returned with every non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type NodeResponse struct {
	Node     common.Hash    `json:"node"`
	Exists   bool           `json:"exists"`
	Owner    common.Address `json:"owner"`
	Resolver common.Address `json:"resolver"`
	TTL      uint64         `json:"ttl"`
}

// NameResponse is the registry record of a dotted name plus whatever its
// resolver holds. Texts only carries the keys requested with ?text=.
type NameResponse struct {
	NodeResponse
	Name        string            `json:"name"`
	Addr        common.Address    `json:"addr"`
	Contenthash hexutil.Bytes     `json:"contenthash,omitempty"`
	Texts       map[string]string `json:"texts,omitempty"`
	ReverseName string            `json:"reverse_name,omitempty"`
}

type LabelResponse struct {
	Label       string         `json:"label"`
	Name        string         `json:"name"`
	Node        common.Hash    `json:"node"`
	Available   bool           `json:"available"`
	Holder      common.Address `json:"holder"`
	Expires     uint64         `json:"expires"`
	InGrace     bool           `json:"in_grace"`
	GracePeriod uint64         `json:"grace_period_seconds"`
}

type ReverseResponse struct {
	Address common.Address `json:"address"`
	Node    common.Hash    `json:"node"`
	Name    string         `json:"name"`
}

type BalanceResponse struct {
	Address common.Address `json:"address"`
	Symbol  string         `json:"symbol"`
	Balance string         `json:"balance"`
}

type ContractsResponse struct {
	Contracts       map[string]common.Address `json:"contracts"`
	Controller      string                    `json:"controller_implementation"`
	ControllerAdmin common.Address            `json:"controller_admin"`
	ChainTime       uint64                    `json:"chain_time"`
	BaseName        string                    `json:"base_name"`
	GracePeriod     uint64                    `json:"grace_period_seconds"`
}

type SetOwnerRequest struct {
	Node  common.Hash    `json:"node"`
	Owner common.Address `json:"owner"`
}

// SetSubnodeRequest covers both SetSubnodeOwner and SetSubnodeRecord; the
// record form is used whenever Resolver or TTL is set.
type SetSubnodeRequest struct {
	Parent   common.Hash    `json:"parent"`
	Label    string         `json:"label"`
	Owner    common.Address `json:"owner"`
	Resolver common.Address `json:"resolver,omitempty"`
	TTL      uint64         `json:"ttl,omitempty"`
}

type SetRecordRequest struct {
	Node     common.Hash    `json:"node"`
	Owner    common.Address `json:"owner"`
	Resolver common.Address `json:"resolver"`
	TTL      uint64         `json:"ttl"`
}

type SetResolverRequest struct {
	Node     common.Hash    `json:"node"`
	Resolver common.Address `json:"resolver"`
}

type SetTTLRequest struct {
	Node common.Hash `json:"node"`
	TTL  uint64      `json:"ttl"`
}

type NodeResult struct {
	Node common.Hash `json:"node"`
}

// RecordUpdate is the wire form of interfaces.RecordUpdate. Kind is one of
// "addr", "text", "contenthash" or "name".
type RecordUpdate struct {
	Kind  string         `json:"kind"`
	Key   string         `json:"key,omitempty"`
	Value string         `json:"value,omitempty"`
	Addr  common.Address `json:"addr,omitempty"`
	Data  hexutil.Bytes  `json:"data,omitempty"`
}

type RegisterRequest struct {
	Label           string         `json:"label"`
	Owner           common.Address `json:"owner"`
	DurationSeconds uint64         `json:"duration_seconds"`
	Resolver        common.Address `json:"resolver,omitempty"`
	Records         []RecordUpdate `json:"records,omitempty"`
	ReverseRecord   bool           `json:"reverse_record,omitempty"`
}

type RenewRequest struct {
	Label           string `json:"label"`
	DurationSeconds uint64 `json:"duration_seconds"`
}

type ExpiryResult struct {
	Name    string `json:"name"`
	Expires uint64 `json:"expires"`
}

type ReclaimRequest struct {
	Label           string         `json:"label"`
	Holder          common.Address `json:"holder"`
	DurationSeconds uint64         `json:"duration_seconds"`
}

type TransferNameRequest struct {
	Label string         `json:"label"`
	To    common.Address `json:"to"`
}

type RecordsRequest struct {
	Node    common.Hash    `json:"node"`
	Records []RecordUpdate `json:"records"`
}

type ClearRecordsRequest struct {
	Node common.Hash `json:"node"`
}

type ReverseNameRequest struct {
	Name string `json:"name"`
}

type TokenTransferRequest struct {
	To     common.Address `json:"to"`
	Amount string         `json:"amount"`
}

type TransferOwnershipRequest struct {
	NewAdmin common.Address `json:"new_admin"`
}

type InitializeV2Request struct {
	NewBase common.Address `json:"new_base"`
}

type RecoverFundsRequest struct {
	Asset       common.Address `json:"asset"`
	Destination common.Address `json:"destination"`
	Amount      string         `json:"amount"`
}

type SnapshotResult struct {
	ID       string `json:"id"`
	Location string `json:"location"`
	Taken    uint64 `json:"taken"`
}

// StatusResult acknowledges writes that return nothing else.
type StatusResult struct {
	Status string `json:"status"`
}

var recordKinds = map[string]interfaces.RecordKind{
	"addr":        interfaces.AddrRecord,
	"text":        interfaces.TextRecord,
	"contenthash": interfaces.ContenthashRecord,
	"name":        interfaces.NameRecord,
}

// ParseRecordKind maps a wire kind to its RecordKind.
func ParseRecordKind(kind string) (interfaces.RecordKind, bool) {
	k, ok := recordKinds[kind]
	return k, ok
}

// ToUpdates converts wire updates; the second return is the first unknown kind.
func ToUpdates(records []RecordUpdate) ([]interfaces.RecordUpdate, string) {
	updates := make([]interfaces.RecordUpdate, 0, len(records))
	for _, r := range records {
		kind, ok := ParseRecordKind(r.Kind)
		if !ok {
			return nil, r.Kind
		}
		updates = append(updates, interfaces.RecordUpdate{
			Kind:  kind,
			Key:   r.Key,
			Value: r.Value,
			Addr:  r.Addr,
			Data:  r.Data,
		})
	}
	return updates, ""
}

package httpserver

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/ruteri/namespace-registry/api"
	"github.com/ruteri/namespace-registry/controller"
	"github.com/ruteri/namespace-registry/interfaces"
	"github.com/ruteri/namespace-registry/namehash"
)

func durationOf(seconds uint64) (time.Duration, error) {
	if seconds > uint64(1<<63-1)/uint64(time.Second) {
		return 0, fmt.Errorf("%w: %d seconds", interfaces.ErrInvalidDuration, seconds)
	}
	return time.Duration(seconds) * time.Second, nil
}

func parseAmount(raw string) (*uint256.Int, error) {
	amount, err := uint256.FromDecimal(raw)
	if err != nil {
		return nil, badRequest("invalid amount %q: %v", raw, err)
	}
	return amount, nil
}

func updatesOf(records []api.RecordUpdate) ([]interfaces.RecordUpdate, error) {
	updates, unknown := api.ToUpdates(records)
	if updates == nil && len(records) > 0 {
		return nil, badRequest("unknown record kind %q", unknown)
	}
	return updates, nil
}

// resolverFor returns the resolver the registry names for node.
func (h *Handler) resolverFor(node common.Hash) (interfaces.RecordResolver, error) {
	addr := h.d.Registry.Resolver(node)
	if addr == (common.Address{}) {
		return nil, fmt.Errorf("%w: no resolver set for %s", interfaces.ErrNotFound, node.Hex())
	}
	return resolverAt(h.d, addr)
}

func (h *Handler) setOwner(caller common.Address, req api.SetOwnerRequest) (any, error) {
	return h.submit(func() (any, error) {
		return nil, h.d.Registry.SetOwner(caller, req.Node, req.Owner)
	})
}

func (h *Handler) setSubnode(caller common.Address, req api.SetSubnodeRequest) (any, error) {
	return h.submit(func() (any, error) {
		label := namehash.LabelHash(req.Label)
		var (
			node common.Hash
			err  error
		)
		if req.Resolver != (common.Address{}) || req.TTL != 0 {
			node, err = h.d.Registry.SetSubnodeRecord(caller, req.Parent, label, req.Owner, req.Resolver, req.TTL)
		} else {
			node, err = h.d.Registry.SetSubnodeOwner(caller, req.Parent, label, req.Owner)
		}
		if err != nil {
			return nil, err
		}
		return api.NodeResult{Node: node}, nil
	})
}

func (h *Handler) setRecord(caller common.Address, req api.SetRecordRequest) (any, error) {
	return h.submit(func() (any, error) {
		return nil, h.d.Registry.SetRecord(caller, req.Node, req.Owner, req.Resolver, req.TTL)
	})
}

func (h *Handler) setResolver(caller common.Address, req api.SetResolverRequest) (any, error) {
	return h.submit(func() (any, error) {
		return nil, h.d.Registry.SetResolver(caller, req.Node, req.Resolver)
	})
}

func (h *Handler) setTTL(caller common.Address, req api.SetTTLRequest) (any, error) {
	return h.submit(func() (any, error) {
		return nil, h.d.Registry.SetTTL(caller, req.Node, req.TTL)
	})
}

func (h *Handler) register(caller common.Address, req api.RegisterRequest) (any, error) {
	duration, err := durationOf(req.DurationSeconds)
	if err != nil {
		return nil, err
	}
	records, err := updatesOf(req.Records)
	if err != nil {
		return nil, err
	}

	out, err := h.submit(func() (any, error) {
		expires, err := h.d.Controller.Register(caller, controller.RegisterRequest{
			Label:         req.Label,
			Owner:         req.Owner,
			Duration:      duration,
			Resolver:      req.Resolver,
			Records:       records,
			ReverseRecord: req.ReverseRecord,
		})
		if err != nil {
			return nil, err
		}
		return api.ExpiryResult{Name: h.d.Controller.NameOf(req.Label), Expires: expires}, nil
	})
	if err == nil {
		h.metrics.ObserveRegistration()
		h.log.Info("Name registered", "label", req.Label, "owner", req.Owner.Hex())
	}
	return out, err
}

func (h *Handler) renew(caller common.Address, req api.RenewRequest) (any, error) {
	duration, err := durationOf(req.DurationSeconds)
	if err != nil {
		return nil, err
	}
	return h.submit(func() (any, error) {
		expires, err := h.d.Controller.Renew(caller, req.Label, duration)
		if err != nil {
			return nil, err
		}
		return api.ExpiryResult{Name: h.d.Controller.NameOf(req.Label), Expires: expires}, nil
	})
}

func (h *Handler) reclaim(caller common.Address, req api.ReclaimRequest) (any, error) {
	duration, err := durationOf(req.DurationSeconds)
	if err != nil {
		return nil, err
	}
	return h.submit(func() (any, error) {
		if _, err := h.d.Controller.NodeOf(req.Label); err != nil {
			return nil, err
		}
		expires, err := h.d.BaseRegistrar().Reclaim(caller, namehash.LabelHash(req.Label), req.Holder, duration)
		if err != nil {
			return nil, err
		}
		return api.ExpiryResult{Name: h.d.Controller.NameOf(req.Label), Expires: expires}, nil
	})
}

func (h *Handler) transferName(caller common.Address, req api.TransferNameRequest) (any, error) {
	return h.submit(func() (any, error) {
		if _, err := h.d.Controller.NodeOf(req.Label); err != nil {
			return nil, err
		}
		return nil, h.d.BaseRegistrar().Transfer(caller, namehash.LabelHash(req.Label), req.To)
	})
}

func (h *Handler) setRecords(caller common.Address, req api.RecordsRequest) (any, error) {
	records, err := updatesOf(req.Records)
	if err != nil {
		return nil, err
	}
	return h.submit(func() (any, error) {
		res, err := h.resolverFor(req.Node)
		if err != nil {
			return nil, err
		}
		return nil, res.Multicall(caller, req.Node, records)
	})
}

func (h *Handler) clearRecords(caller common.Address, req api.ClearRecordsRequest) (any, error) {
	return h.submit(func() (any, error) {
		res, err := h.resolverFor(req.Node)
		if err != nil {
			return nil, err
		}
		return nil, res.ClearRecords(caller, req.Node)
	})
}

func (h *Handler) setReverseName(caller common.Address, req api.ReverseNameRequest) (any, error) {
	return h.submit(func() (any, error) {
		node, err := h.d.Reverse.SetName(caller, caller, req.Name)
		if err != nil {
			return nil, err
		}
		return api.NodeResult{Node: node}, nil
	})
}

func (h *Handler) transferTokens(caller common.Address, req api.TokenTransferRequest) (any, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	return h.submit(func() (any, error) {
		return nil, h.d.Native.Transfer(caller, req.To, amount)
	})
}

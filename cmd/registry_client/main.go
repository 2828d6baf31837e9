package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ruteri/namespace-registry/api"
	"github.com/ruteri/namespace-registry/api/clients"
	"github.com/ruteri/namespace-registry/cmd/flags"
	"github.com/ruteri/namespace-registry/namehash"
	"github.com/urfave/cli/v2"
)

var flagOwner = &cli.StringFlag{
	Name:  "owner",
	Usage: "owner address, defaults to the signing key",
}
var flagResolver = &cli.StringFlag{
	Name:  "resolver",
	Usage: "resolver address",
}
var flagTTL = &cli.Uint64Flag{
	Name:  "ttl",
	Usage: "record ttl in seconds",
}
var flagDuration = &cli.DurationFlag{
	Name:  "duration",
	Value: 365 * 24 * time.Hour,
	Usage: "registration or renewal duration",
}
var flagAddr = &cli.StringFlag{
	Name:  "addr",
	Usage: "address record to set on registration, 'self' for the signing key",
}
var flagReverse = &cli.BoolFlag{
	Name:  "reverse",
	Usage: "set the caller's reverse record to the registered name",
}
var flagText = &cli.StringSliceFlag{
	Name:  "text",
	Usage: "text record keys to include",
}

func main() {
	app := &cli.App{
		Name:  "registry_client",
		Usage: "Query and update the namespace registry",
		Flags: []cli.Flag{
			flags.ServerAddrFlag,
			flags.KeyFlag,
		},
		Commands: []*cli.Command{
			{
				Name:      "contracts",
				Usage:     "List deployed contract addresses",
				ArgsUsage: " ",
				Action: withClient(func(c *clients.RegistryClient, cCtx *cli.Context) (any, error) {
					return c.Contracts(cCtx.Context)
				}),
			},
			{
				Name:      "node",
				Usage:     "Show the registry record of a node",
				ArgsUsage: "<node|name>",
				Action: withClient(func(c *clients.RegistryClient, cCtx *cli.Context) (any, error) {
					node, err := nodeArg(cCtx, 0)
					if err != nil {
						return nil, err
					}
					return c.Node(cCtx.Context, node)
				}),
			},
			{
				Name:      "name",
				Usage:     "Resolve a dotted name",
				ArgsUsage: "<name>",
				Flags:     []cli.Flag{flagText},
				Action: withClient(func(c *clients.RegistryClient, cCtx *cli.Context) (any, error) {
					name, err := arg(cCtx, 0)
					if err != nil {
						return nil, err
					}
					return c.Name(cCtx.Context, name, cCtx.StringSlice(flagText.Name)...)
				}),
			},
			{
				Name:      "label",
				Usage:     "Show the registrar entry of a label",
				ArgsUsage: "<label>",
				Action: withClient(func(c *clients.RegistryClient, cCtx *cli.Context) (any, error) {
					label, err := arg(cCtx, 0)
					if err != nil {
						return nil, err
					}
					return c.Label(cCtx.Context, label)
				}),
			},
			{
				Name:      "reverse",
				Usage:     "Show the reverse record of an address",
				ArgsUsage: "<address>",
				Action: withClient(func(c *clients.RegistryClient, cCtx *cli.Context) (any, error) {
					addr, err := addressArg(cCtx, 0)
					if err != nil {
						return nil, err
					}
					return c.Reverse(cCtx.Context, addr)
				}),
			},
			{
				Name:      "balance",
				Usage:     "Show the native balance of an address",
				ArgsUsage: "<address>",
				Action: withClient(func(c *clients.RegistryClient, cCtx *cli.Context) (any, error) {
					addr, err := addressArg(cCtx, 0)
					if err != nil {
						return nil, err
					}
					return c.Balance(cCtx.Context, addr)
				}),
			},
			{
				Name:      "register",
				Usage:     "Register a label under the base name",
				ArgsUsage: "<label>",
				Flags:     []cli.Flag{flagOwner, flagDuration, flagResolver, flagAddr, flagReverse},
				Action: withClient(func(c *clients.RegistryClient, cCtx *cli.Context) (any, error) {
					label, err := arg(cCtx, 0)
					if err != nil {
						return nil, err
					}
					owner, err := optionalAddress(cCtx, flagOwner.Name, c.Address())
					if err != nil {
						return nil, err
					}
					resolver, err := optionalAddress(cCtx, flagResolver.Name, common.Address{})
					if err != nil {
						return nil, err
					}
					req := api.RegisterRequest{
						Label:           label,
						Owner:           owner,
						DurationSeconds: uint64(cCtx.Duration(flagDuration.Name).Seconds()),
						Resolver:        resolver,
						ReverseRecord:   cCtx.Bool(flagReverse.Name),
					}
					if cCtx.IsSet(flagAddr.Name) {
						addr, err := optionalAddress(cCtx, flagAddr.Name, c.Address())
						if err != nil {
							return nil, err
						}
						req.Records = append(req.Records, api.RecordUpdate{Kind: "addr", Addr: addr})
					}
					return c.Register(cCtx.Context, req)
				}),
			},
			{
				Name:      "renew",
				Usage:     "Extend a registration",
				ArgsUsage: "<label>",
				Flags:     []cli.Flag{flagDuration},
				Action: withClient(func(c *clients.RegistryClient, cCtx *cli.Context) (any, error) {
					label, err := arg(cCtx, 0)
					if err != nil {
						return nil, err
					}
					return c.Renew(cCtx.Context, api.RenewRequest{
						Label:           label,
						DurationSeconds: uint64(cCtx.Duration(flagDuration.Name).Seconds()),
					})
				}),
			},
			{
				Name:      "reclaim",
				Usage:     "Re-assert registry ownership of a held label",
				ArgsUsage: "<label>",
				Flags:     []cli.Flag{flagOwner, flagDuration},
				Action: withClient(func(c *clients.RegistryClient, cCtx *cli.Context) (any, error) {
					label, err := arg(cCtx, 0)
					if err != nil {
						return nil, err
					}
					holder, err := optionalAddress(cCtx, flagOwner.Name, c.Address())
					if err != nil {
						return nil, err
					}
					return c.Reclaim(cCtx.Context, api.ReclaimRequest{
						Label:           label,
						Holder:          holder,
						DurationSeconds: uint64(cCtx.Duration(flagDuration.Name).Seconds()),
					})
				}),
			},
			{
				Name:      "transfer-name",
				Usage:     "Transfer a held label to another address",
				ArgsUsage: "<label> <to>",
				Action: withClient(func(c *clients.RegistryClient, cCtx *cli.Context) (any, error) {
					label, err := arg(cCtx, 0)
					if err != nil {
						return nil, err
					}
					to, err := addressArg(cCtx, 1)
					if err != nil {
						return nil, err
					}
					return nil, c.TransferName(cCtx.Context, api.TransferNameRequest{Label: label, To: to})
				}),
			},
			{
				Name:      "set-owner",
				Usage:     "Set the owner of a node",
				ArgsUsage: "<node|name> <owner>",
				Action: withClient(func(c *clients.RegistryClient, cCtx *cli.Context) (any, error) {
					node, err := nodeArg(cCtx, 0)
					if err != nil {
						return nil, err
					}
					owner, err := addressArg(cCtx, 1)
					if err != nil {
						return nil, err
					}
					return nil, c.SetOwner(cCtx.Context, api.SetOwnerRequest{Node: node, Owner: owner})
				}),
			},
			{
				Name:      "set-subnode",
				Usage:     "Create or update a child node",
				ArgsUsage: "<parent node|name> <label>",
				Flags:     []cli.Flag{flagOwner, flagResolver, flagTTL},
				Action: withClient(func(c *clients.RegistryClient, cCtx *cli.Context) (any, error) {
					parent, err := nodeArg(cCtx, 0)
					if err != nil {
						return nil, err
					}
					label, err := arg(cCtx, 1)
					if err != nil {
						return nil, err
					}
					owner, err := optionalAddress(cCtx, flagOwner.Name, c.Address())
					if err != nil {
						return nil, err
					}
					resolver, err := optionalAddress(cCtx, flagResolver.Name, common.Address{})
					if err != nil {
						return nil, err
					}
					node, err := c.SetSubnode(cCtx.Context, api.SetSubnodeRequest{
						Parent:   parent,
						Label:    label,
						Owner:    owner,
						Resolver: resolver,
						TTL:      cCtx.Uint64(flagTTL.Name),
					})
					return api.NodeResult{Node: node}, err
				}),
			},
			{
				Name:      "set-resolver",
				Usage:     "Set the resolver of a node",
				ArgsUsage: "<node|name> <resolver>",
				Action: withClient(func(c *clients.RegistryClient, cCtx *cli.Context) (any, error) {
					node, err := nodeArg(cCtx, 0)
					if err != nil {
						return nil, err
					}
					resolver, err := addressArg(cCtx, 1)
					if err != nil {
						return nil, err
					}
					return nil, c.SetResolver(cCtx.Context, api.SetResolverRequest{Node: node, Resolver: resolver})
				}),
			},
			{
				Name:      "set-ttl",
				Usage:     "Set the ttl of a node",
				ArgsUsage: "<node|name>",
				Flags:     []cli.Flag{flagTTL},
				Action: withClient(func(c *clients.RegistryClient, cCtx *cli.Context) (any, error) {
					node, err := nodeArg(cCtx, 0)
					if err != nil {
						return nil, err
					}
					return nil, c.SetTTL(cCtx.Context, api.SetTTLRequest{Node: node, TTL: cCtx.Uint64(flagTTL.Name)})
				}),
			},
			{
				Name:      "set-addr",
				Usage:     "Set the address record of a node",
				ArgsUsage: "<node|name> <address>",
				Action: withClient(func(c *clients.RegistryClient, cCtx *cli.Context) (any, error) {
					node, err := nodeArg(cCtx, 0)
					if err != nil {
						return nil, err
					}
					addr, err := addressArg(cCtx, 1)
					if err != nil {
						return nil, err
					}
					return nil, c.SetRecords(cCtx.Context, api.RecordsRequest{
						Node:    node,
						Records: []api.RecordUpdate{{Kind: "addr", Addr: addr}},
					})
				}),
			},
			{
				Name:      "set-text",
				Usage:     "Set a text record of a node",
				ArgsUsage: "<node|name> <key> <value>",
				Action: withClient(func(c *clients.RegistryClient, cCtx *cli.Context) (any, error) {
					node, err := nodeArg(cCtx, 0)
					if err != nil {
						return nil, err
					}
					if cCtx.NArg() != 3 {
						return nil, errors.New("expected <node|name> <key> <value>")
					}
					return nil, c.SetRecords(cCtx.Context, api.RecordsRequest{
						Node:    node,
						Records: []api.RecordUpdate{{Kind: "text", Key: cCtx.Args().Get(1), Value: cCtx.Args().Get(2)}},
					})
				}),
			},
			{
				Name:      "set-contenthash",
				Usage:     "Set the content hash of a node",
				ArgsUsage: "<node|name> <0x-hex>",
				Action: withClient(func(c *clients.RegistryClient, cCtx *cli.Context) (any, error) {
					node, err := nodeArg(cCtx, 0)
					if err != nil {
						return nil, err
					}
					raw, err := arg(cCtx, 1)
					if err != nil {
						return nil, err
					}
					data, err := hexutil.Decode(raw)
					if err != nil {
						return nil, fmt.Errorf("invalid content hash: %w", err)
					}
					return nil, c.SetRecords(cCtx.Context, api.RecordsRequest{
						Node:    node,
						Records: []api.RecordUpdate{{Kind: "contenthash", Data: data}},
					})
				}),
			},
			{
				Name:      "clear-records",
				Usage:     "Drop every resolver record of a node",
				ArgsUsage: "<node|name>",
				Action: withClient(func(c *clients.RegistryClient, cCtx *cli.Context) (any, error) {
					node, err := nodeArg(cCtx, 0)
					if err != nil {
						return nil, err
					}
					return nil, c.ClearRecords(cCtx.Context, node)
				}),
			},
			{
				Name:      "set-reverse",
				Usage:     "Set the caller's reverse record",
				ArgsUsage: "<name>",
				Action: withClient(func(c *clients.RegistryClient, cCtx *cli.Context) (any, error) {
					name, err := arg(cCtx, 0)
					if err != nil {
						return nil, err
					}
					node, err := c.SetReverseName(cCtx.Context, name)
					return api.NodeResult{Node: node}, err
				}),
			},
			{
				Name:      "transfer-tokens",
				Usage:     "Transfer native balance",
				ArgsUsage: "<to> <amount>",
				Action: withClient(func(c *clients.RegistryClient, cCtx *cli.Context) (any, error) {
					to, err := addressArg(cCtx, 0)
					if err != nil {
						return nil, err
					}
					amount, err := arg(cCtx, 1)
					if err != nil {
						return nil, err
					}
					return nil, c.TransferTokens(cCtx.Context, api.TokenTransferRequest{To: to, Amount: amount})
				}),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// withClient builds a client from the global flags and prints fn's result.
func withClient(fn func(c *clients.RegistryClient, cCtx *cli.Context) (any, error)) cli.ActionFunc {
	return func(cCtx *cli.Context) error {
		key, err := flags.PrivateKey(cCtx, flags.KeyFlag.Name)
		if err != nil {
			return err
		}
		c := clients.NewRegistryClient(cCtx.String(flags.ServerAddrFlag.Name), key)

		out, err := fn(c, cCtx)
		if err != nil {
			return err
		}
		if out == nil {
			out = api.StatusResult{Status: "ok"}
		}
		encoded, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(encoded))
		return nil
	}
}

func arg(cCtx *cli.Context, i int) (string, error) {
	if cCtx.NArg() <= i {
		return "", fmt.Errorf("missing argument %d, usage: %s %s", i+1, cCtx.Command.Name, cCtx.Command.ArgsUsage)
	}
	return cCtx.Args().Get(i), nil
}

// nodeArg accepts a node hash or a dotted name.
func nodeArg(cCtx *cli.Context, i int) (common.Hash, error) {
	raw, err := arg(cCtx, i)
	if err != nil {
		return common.Hash{}, err
	}
	if node, err := namehash.ParseNode(raw); err == nil {
		return node, nil
	}
	return namehash.NameHash(raw), nil
}

func addressArg(cCtx *cli.Context, i int) (common.Address, error) {
	raw, err := arg(cCtx, i)
	if err != nil {
		return common.Address{}, err
	}
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid address %q", raw)
	}
	return common.HexToAddress(raw), nil
}

func optionalAddress(cCtx *cli.Context, name string, fallback common.Address) (common.Address, error) {
	raw := cCtx.String(name)
	switch {
	case raw == "" || raw == "self":
		return fallback, nil
	case common.IsHexAddress(raw):
		return common.HexToAddress(raw), nil
	default:
		return common.Address{}, fmt.Errorf("invalid --%s %q", name, raw)
	}
}

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/namespace-registry/api"
	"github.com/ruteri/namespace-registry/api/clients"
	"github.com/ruteri/namespace-registry/cmd/flags"
	"github.com/ruteri/namespace-registry/cryptoutils"
	"github.com/urfave/cli/v2"
)

var flagKeyFile = &cli.StringFlag{
	Name:  "key-file",
	Value: "admin.key",
	Usage: "Path to write the generated key to",
}

var flagAddress = &cli.StringFlag{
	Name:     "address",
	Required: true,
	Usage:    "Target address",
}

var flagAsset = &cli.StringFlag{
	Name:     "asset",
	Required: true,
	Usage:    "Address of the asset ledger",
}

var flagAmount = &cli.StringFlag{
	Name:     "amount",
	Required: true,
	Usage:    "Decimal amount",
}

func main() {
	app := &cli.App{
		Name:  "admin",
		Usage: "Administer a namespace registry deployment",
		Flags: []cli.Flag{
			flags.ServerAddrFlag,
			flags.KeyFlag,
		},
		Commands: []*cli.Command{
			{
				Name:  "generate-key",
				Usage: "Generate an administrator key",
				Flags: []cli.Flag{flagKeyFile},
				Action: func(cCtx *cli.Context) error {
					key, err := crypto.GenerateKey()
					if err != nil {
						return fmt.Errorf("failed to generate key: %w", err)
					}
					path := cCtx.String(flagKeyFile.Name)
					if err := cryptoutils.SaveKey(path, key); err != nil {
						return fmt.Errorf("failed to write key to %s: %w", path, err)
					}
					fmt.Printf("Key written to %s\n", path)
					fmt.Printf("Address: %s\n", crypto.PubkeyToAddress(key.PublicKey).Hex())
					return nil
				},
			},
			{
				Name:  "upgrade",
				Usage: "Upgrade the controller to V2",
				Action: withAdmin(func(c *clients.RegistryClient, cCtx *cli.Context) (any, error) {
					return nil, c.UpgradeController(cCtx.Context)
				}),
			},
			{
				Name:  "initialize-v2",
				Usage: "Initialize the V2 controller with a registrar",
				Flags: []cli.Flag{flagAddress},
				Action: withAdmin(func(c *clients.RegistryClient, cCtx *cli.Context) (any, error) {
					base, err := addressFlag(cCtx, flagAddress.Name)
					if err != nil {
						return nil, err
					}
					return nil, c.InitializeV2(cCtx.Context, base)
				}),
			},
			{
				Name:  "transfer-ownership",
				Usage: "Transfer controller administration",
				Flags: []cli.Flag{flagAddress},
				Action: withAdmin(func(c *clients.RegistryClient, cCtx *cli.Context) (any, error) {
					next, err := addressFlag(cCtx, flagAddress.Name)
					if err != nil {
						return nil, err
					}
					return nil, c.TransferOwnership(cCtx.Context, next)
				}),
			},
			{
				Name:  "withdraw",
				Usage: "Withdraw the controller's native balance",
				Action: withAdmin(func(c *clients.RegistryClient, cCtx *cli.Context) (any, error) {
					return nil, c.Withdraw(cCtx.Context)
				}),
			},
			{
				Name:  "recover-funds",
				Usage: "Move an asset held by the controller",
				Flags: []cli.Flag{flagAsset, flagAddress, flagAmount},
				Action: withAdmin(func(c *clients.RegistryClient, cCtx *cli.Context) (any, error) {
					asset, err := addressFlag(cCtx, flagAsset.Name)
					if err != nil {
						return nil, err
					}
					dest, err := addressFlag(cCtx, flagAddress.Name)
					if err != nil {
						return nil, err
					}
					return nil, c.RecoverFunds(cCtx.Context, api.RecoverFundsRequest{
						Asset:       asset,
						Destination: dest,
						Amount:      cCtx.String(flagAmount.Name),
					})
				}),
			},
			{
				Name:  "mint",
				Usage: "Mint native balance",
				Flags: []cli.Flag{flagAddress, flagAmount},
				Action: withAdmin(func(c *clients.RegistryClient, cCtx *cli.Context) (any, error) {
					to, err := addressFlag(cCtx, flagAddress.Name)
					if err != nil {
						return nil, err
					}
					return nil, c.Mint(cCtx.Context, api.TokenTransferRequest{To: to, Amount: cCtx.String(flagAmount.Name)})
				}),
			},
			{
				Name:  "snapshot",
				Usage: "Store a snapshot of the chain state",
				Action: withAdmin(func(c *clients.RegistryClient, cCtx *cli.Context) (any, error) {
					return c.Snapshot(cCtx.Context)
				}),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func withAdmin(fn func(c *clients.RegistryClient, cCtx *cli.Context) (any, error)) cli.ActionFunc {
	return func(cCtx *cli.Context) error {
		key, err := flags.PrivateKey(cCtx, flags.KeyFlag.Name)
		if err != nil {
			return err
		}
		if key == nil {
			return errors.New("--key is required")
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

func addressFlag(cCtx *cli.Context, name string) (common.Address, error) {
	raw := cCtx.String(name)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("invalid --%s %q", name, raw)
	}
	return common.HexToAddress(raw), nil
}

package main

import (
	"fmt"
	"io"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
	"github.com/ethereum/go-ethereum/log"
	"github.com/olekukonko/tablewriter"
	"github.com/stellar-cctp/forwarder/address"
	"github.com/stellar-cctp/forwarder/core"
	"github.com/stellar-cctp/forwarder/core/vm"
	"github.com/stellar-cctp/forwarder/message"
	"github.com/stellar-cctp/forwarder/recipient"
	"github.com/urfave/cli/v2"
)

var simulateCommand = &cli.Command{
	Name:  "simulate",
	Usage: "Deploy an in-memory stack and forward to a contract, an account and a muxed account",
	Flags: []cli.Flag{configFileFlag, variantFlag, assetNameFlag, rejectReplaysFlag, amountFlag},
	Action: func(ctx *cli.Context) error {
		cfg, err := makeConfig(ctx)
		if err != nil {
			return err
		}
		amt, err := parseAmount(ctx.String(amountFlag.Name))
		if err != nil {
			return err
		}
		results, err := simulate(cfg.Forwarder, amt)
		if err != nil {
			return err
		}
		renderResults(os.Stdout, cfg.Forwarder.Variant, results)
		return nil
	},
}

// scenario is one forward of the simulation.
type scenario struct {
	Name     string
	Holder   address.Address
	HookData []byte
	Opts     core.ForwardOpts
}

type scenarioResult struct {
	scenario
	Recipient string
	Balance   string
	Left      string
	Err       error
}

func simAccount(label string) address.Address {
	return address.AccountAddress(crypto.Keccak256Hash([]byte(label)))
}

// scenarios returns the contract, account and muxed account forwards for v.
// Muxed recipients travel as XDR whenever the variant can read it.
func scenarios(v core.Variant) ([]scenario, error) {
	var (
		contract = address.ContractAddress(crypto.Keccak256Hash([]byte("recipient")))
		account  = simAccount("alice")
	)
	mux, err := address.NewMuxed(account, 42)
	if err != nil {
		return nil, err
	}
	muxed := scenario{Name: "muxed", Holder: account, HookData: recipient.StringHookData(recipient.Extended(mux))}
	switch v.Selection {
	case core.SelectFlag:
		muxed.HookData, muxed.Opts.XDR = recipient.SerializedHookData(recipient.Extended(mux)), true
	case core.SelectInfer:
		muxed.HookData = recipient.SerializedHookData(recipient.Extended(mux))
	}
	return []scenario{
		{Name: "contract", Holder: contract, HookData: recipient.StringHookData(recipient.Plain(contract))},
		{Name: "account", Holder: account, HookData: recipient.StringHookData(recipient.Plain(account))},
		muxed,
	}, nil
}

func simulate(cfg core.Config, amt *big.Int) ([]scenarioResult, error) {
	admin := simAccount("admin")
	d, err := core.Deploy(vm.NewHost(memorydb.New()), admin, cfg)
	if err != nil {
		return nil, err
	}
	log.Info("Deployed forwarding stack", "variant", cfg.Variant, "asset", d.Asset.Address(), "transmitter", d.Transmitter.Address(), "forwarder", d.Forwarder.Address())

	list, err := scenarios(cfg.Variant)
	if err != nil {
		return nil, err
	}
	var results []scenarioResult
	for _, sc := range list {
		if sc.Holder.IsAccount() {
			trusted, err := d.Asset.Trusted(sc.Holder)
			if err != nil {
				return nil, err
			}
			if !trusted {
				if err := d.Asset.AddTrustline(sc.Holder); err != nil {
					return nil, err
				}
			}
		}
		msg, err := message.Build(d.Forwarder.Address(), amt, sc.HookData)
		if err != nil {
			return nil, err
		}
		res := scenarioResult{scenario: sc}
		fwd, err := d.Forwarder.Forward(nil, msg, sc.Opts)
		if err != nil {
			log.Warn("Forward failed", "scenario", sc.Name, "err", err)
			res.Err = err
		} else {
			res.Recipient = fwd.Recipient.String()
		}
		bal, err := d.Asset.Balance(sc.Holder)
		if err != nil {
			return nil, err
		}
		left, err := d.Asset.Balance(d.Forwarder.Address())
		if err != nil {
			return nil, err
		}
		res.Balance, res.Left = bal.String(), left.String()
		results = append(results, res)
	}
	return results, nil
}

func renderResults(w io.Writer, v core.Variant, results []scenarioResult) {
	table := tablewriter.NewWriter(w)
	table.SetCaption(true, fmt.Sprintf("variant %s", v))
	table.SetHeader([]string{"Scenario", "Recipient", "Holder balance", "Forwarder balance", "Error"})
	for _, r := range results {
		errText := ""
		if r.Err != nil {
			errText = r.Err.Error()
		}
		table.Append([]string{r.Name, r.Recipient, r.Balance, r.Left, errText})
	}
	table.Render()
}

package main

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/olekukonko/tablewriter"
	"github.com/stellar-cctp/forwarder/address"
	"github.com/stellar-cctp/forwarder/amount"
	"github.com/stellar-cctp/forwarder/message"
	"github.com/stellar-cctp/forwarder/recipient"
	"github.com/urfave/cli/v2"
)

var (
	modeFlag = &cli.StringFlag{
		Name:  "mode",
		Usage: `Hook data encoding: "string", "serialized" or "infer"`,
		Value: "infer",
	}
	hexInputFlag = &cli.BoolFlag{
		Name:  "hex",
		Usage: "Treat the hook data argument as hex",
	}
	forwarderFlag = &cli.StringFlag{
		Name:     "forwarder",
		Usage:    "Forwarder contract address (C…)",
		Required: true,
	}
	amountFlag = &cli.StringFlag{
		Name:  "amount",
		Usage: "Amount in base units",
		Value: "1000",
	}
	recipientFlag = &cli.StringFlag{
		Name:     "recipient",
		Usage:    "Final recipient (G…, C… or M…)",
		Required: true,
	}
	xdrFlag = &cli.BoolFlag{
		Name:  "xdr",
		Usage: "Encode the recipient as an XDR ScVal address instead of strkey text",
	}
)

var decodeCommand = &cli.Command{
	Name:      "decode",
	Usage:     "Decode a hex encoded message",
	ArgsUsage: "<hex>",
	Flags:     []cli.Flag{modeFlag},
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return errors.New("expected one hex argument")
		}
		raw, err := parseHex(ctx.Args().First())
		if err != nil {
			return err
		}
		return runDecode(os.Stdout, raw, ctx.String(modeFlag.Name))
	},
}

var resolveCommand = &cli.Command{
	Name:      "resolve",
	Usage:     "Resolve hook data to a recipient",
	ArgsUsage: "<hook data>",
	Flags:     []cli.Flag{modeFlag, hexInputFlag},
	Action: func(ctx *cli.Context) error {
		if ctx.NArg() != 1 {
			return errors.New("expected one hook data argument")
		}
		hook := []byte(ctx.Args().First())
		if ctx.Bool(hexInputFlag.Name) {
			var err error
			if hook, err = parseHex(ctx.Args().First()); err != nil {
				return err
			}
		}
		r, mode, err := resolveHookData(hook, ctx.String(modeFlag.Name))
		if err != nil {
			return err
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Field", "Value"})
		table.AppendBulk(recipientRows(r, mode))
		table.Render()
		return nil
	},
}

var buildCommand = &cli.Command{
	Name:  "build",
	Usage: "Build a message that pays the forwarder and names a final recipient",
	Flags: []cli.Flag{forwarderFlag, amountFlag, recipientFlag, xdrFlag},
	Action: func(ctx *cli.Context) error {
		out, err := buildMessage(ctx.String(forwarderFlag.Name), ctx.String(amountFlag.Name), ctx.String(recipientFlag.Name), ctx.Bool(xdrFlag.Name))
		if err != nil {
			return err
		}
		fmt.Println(hexutil.Encode(out))
		return nil
	},
}

func parseHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		s = "0x" + s
	}
	return hexutil.Decode(s)
}

func parseAmount(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(s), 0)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	if !amount.Valid(v) {
		return nil, fmt.Errorf("amount %v: %w", v, amount.ErrOutOfRange)
	}
	return v, nil
}

func resolveHookData(hook []byte, mode string) (recipient.Recipient, recipient.Mode, error) {
	switch strings.ToLower(mode) {
	case "infer", "":
		return recipient.Infer(hook)
	case "string":
		r, err := recipient.Resolve(hook, recipient.ModeString)
		return r, recipient.ModeString, err
	case "serialized", "xdr":
		r, err := recipient.Resolve(hook, recipient.ModeSerialized)
		return r, recipient.ModeSerialized, err
	}
	return recipient.Recipient{}, 0, fmt.Errorf("unknown mode %q", mode)
}

func recipientRows(r recipient.Recipient, mode recipient.Mode) [][]string {
	rows := [][]string{
		{"mode", mode.String()},
		{"final recipient", r.String()},
		{"holder", r.Address().String()},
	}
	if m, ok := r.Muxed(); ok {
		rows = append(rows, []string{"muxed id", strconv.FormatUint(m.ID, 10)})
	}
	return rows
}

// hookDataFor renders a recipient strkey as hook data.
func hookDataFor(rcpt string, xdr bool) ([]byte, error) {
	r, _, err := resolveHookData([]byte(rcpt), "string")
	if err != nil {
		return nil, err
	}
	if !xdr {
		return recipient.StringHookData(r), nil
	}
	return recipient.SerializedHookData(r), nil
}

func buildMessage(forwarder, amt, rcpt string, xdr bool) ([]byte, error) {
	fwd, err := address.Parse(forwarder)
	if err != nil {
		return nil, err
	}
	if !fwd.IsContract() {
		return nil, fmt.Errorf("forwarder must be a contract address, have %s", forwarder)
	}
	v, err := parseAmount(amt)
	if err != nil {
		return nil, err
	}
	hook, err := hookDataFor(rcpt, xdr)
	if err != nil {
		return nil, err
	}
	return message.Build(fwd, v, hook)
}

func runDecode(w io.Writer, raw []byte, mode string) error {
	msg, err := message.Decode(raw)
	if err != nil {
		return err
	}
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Field", "Value"})
	table.AppendBulk([][]string{
		{"hash", message.Hash(raw).Hex()},
		{"recipient", msg.Recipient.String()},
		{"destination_caller", msg.DestinationCaller.String()},
		{"mint_recipient", msg.Body.MintRecipient.String()},
		{"amount", msg.Body.Amount.String()},
		{"amount (raw)", msg.Body.RawAmount.Hex()},
		{"truncated", strconv.FormatBool(msg.Body.Truncated())},
		{"hook_data", hexutil.Encode(msg.Body.HookData)},
	})
	if len(msg.Body.HookData) > 0 {
		r, m, err := resolveHookData(msg.Body.HookData, mode)
		if err != nil {
			table.Append([]string{"recipient error", err.Error()})
		} else {
			table.AppendBulk(recipientRows(r, m))
		}
	}
	table.Render()
	return nil
}

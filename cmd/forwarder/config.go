package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"unicode"

	"github.com/naoina/toml"
	"github.com/stellar-cctp/forwarder/core"
	"github.com/urfave/cli/v2"
)

var (
	configFileFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "TOML configuration file",
	}
	variantFlag = &cli.StringFlag{
		Name:  "variant",
		Usage: `Forwarder variant: "attested", "flagged", "inferred" or "[attested+]string|flag|infer"`,
	}
	assetNameFlag = &cli.StringFlag{
		Name:  "asset.name",
		Usage: "Name of the bridged asset",
	}
	rejectReplaysFlag = &cli.BoolFlag{
		Name:  "transmitter.rejectreplays",
		Usage: "Make the transmitter reject messages it has already received",
	}
)

// These settings ensure that TOML keys use the same names as Go struct fields.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string {
		return key
	},
	FieldToKey: func(rt reflect.Type, field string) string {
		return field
	},
	MissingField: func(rt reflect.Type, field string) error {
		var link string
		if unicode.IsUpper(rune(rt.Name()[0])) && rt.PkgPath() != "main" {
			link = fmt.Sprintf(", see https://pkg.go.dev/%s#%s for available fields", rt.PkgPath(), rt.Name())
		}
		return fmt.Errorf("field '%s' is not defined in %s%s", field, rt.String(), link)
	},
}

type forwarderConfig struct {
	Forwarder core.Config
}

func loadConfig(file string, cfg *forwarderConfig) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(cfg)
	// Add file name to errors that have a line number.
	var lineErr *toml.LineError
	if errors.As(err, &lineErr) {
		err = errors.New(file + ", " + err.Error())
	}
	return err
}

// makeConfig loads the configuration file, if any, and applies flags on top.
func makeConfig(ctx *cli.Context) (*forwarderConfig, error) {
	cfg := &forwarderConfig{Forwarder: core.DefaultConfig}
	if file := ctx.String(configFileFlag.Name); file != "" {
		if err := loadConfig(file, cfg); err != nil {
			return nil, fmt.Errorf("invalid config: %w", err)
		}
	}
	if ctx.IsSet(variantFlag.Name) {
		v, err := core.ParseVariant(ctx.String(variantFlag.Name))
		if err != nil {
			return nil, err
		}
		cfg.Forwarder.Variant = v
	}
	if ctx.IsSet(assetNameFlag.Name) {
		cfg.Forwarder.AssetName = ctx.String(assetNameFlag.Name)
	}
	if ctx.IsSet(rejectReplaysFlag.Name) {
		cfg.Forwarder.RejectReplays = ctx.Bool(rejectReplaysFlag.Name)
	}
	return cfg, nil
}

var dumpConfigCommand = &cli.Command{
	Action:      dumpConfig,
	Name:        "dumpconfig",
	Usage:       "Export configuration values in a TOML format",
	ArgsUsage:   "<dumpfile (optional)>",
	Flags:       []cli.Flag{configFileFlag, variantFlag, assetNameFlag, rejectReplaysFlag},
	Description: `Export configuration values in TOML format (to stdout by default).`,
}

func dumpConfig(ctx *cli.Context) error {
	cfg, err := makeConfig(ctx)
	if err != nil {
		return err
	}
	out, err := tomlSettings.Marshal(cfg)
	if err != nil {
		return err
	}

	dump := os.Stdout
	if ctx.NArg() > 0 {
		dump, err = os.OpenFile(ctx.Args().Get(0), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
		if err != nil {
			return err
		}
		defer dump.Close()
	}
	_, err = dump.Write(out)
	return err
}

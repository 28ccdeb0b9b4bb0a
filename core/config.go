package core

import (
	"fmt"
	"strings"

	"github.com/stellar-cctp/forwarder/recipient"
)

// Selection decides how a forwarder picks the recipient encoding.
type Selection uint8

const (
	// SelectStringOnly always reads hook data as strkey text.
	SelectStringOnly Selection = iota
	// SelectFlag lets the caller choose per call with a boolean argument.
	SelectFlag
	// SelectInfer picks the encoding from the shape of the hook data.
	SelectInfer
)

var selectionNames = map[Selection]string{
	SelectStringOnly: "string",
	SelectFlag:       "flag",
	SelectInfer:      "infer",
}

func (s Selection) String() string {
	if n, ok := selectionNames[s]; ok {
		return n
	}
	return fmt.Sprintf("selection(%d)", uint8(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s Selection) MarshalText() ([]byte, error) {
	if _, ok := selectionNames[s]; !ok {
		return nil, fmt.Errorf("invalid selection %d", uint8(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Selection) UnmarshalText(text []byte) error {
	for sel, name := range selectionNames {
		if strings.EqualFold(name, string(text)) {
			*s = sel
			return nil
		}
	}
	return fmt.Errorf("invalid selection %q, want string, flag or infer", text)
}

// Variant is the compile-time shape of a forwarder: whether forward takes an
// attestation and how the recipient encoding is selected. Every combination
// is valid.
type Variant struct {
	Attestation bool
	Selection   Selection
}

// The three deployed flavours.
var (
	VariantAttested = Variant{Attestation: true, Selection: SelectStringOnly}
	VariantFlagged  = Variant{Attestation: false, Selection: SelectFlag}
	VariantInferred = Variant{Attestation: false, Selection: SelectInfer}
)

var variantNames = map[string]Variant{
	"attested": VariantAttested,
	"flagged":  VariantFlagged,
	"inferred": VariantInferred,
}

// ParseVariant accepts a flavour name ("attested", "flagged", "inferred") or
// a selection name optionally prefixed by "attested+", e.g. "attested+infer".
func ParseVariant(s string) (Variant, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if v, ok := variantNames[s]; ok {
		return v, nil
	}
	var v Variant
	if rest, ok := strings.CutPrefix(s, "attested+"); ok {
		v.Attestation = true
		s = rest
	}
	if err := v.Selection.UnmarshalText([]byte(s)); err != nil {
		return Variant{}, fmt.Errorf("%w: %v", ErrUnknownVariant, err)
	}
	return v, nil
}

func (v Variant) String() string {
	for name, known := range variantNames {
		if known == v {
			return name
		}
	}
	if v.Attestation {
		return "attested+" + v.Selection.String()
	}
	return v.Selection.String()
}

// arity is the number of arguments forward takes under v.
func (v Variant) arity() int {
	n := 1
	if v.Attestation {
		n++
	}
	if v.Selection == SelectFlag {
		n++
	}
	return n
}

// resolve decodes hook data under the encoding v selects for one call.
func (v Variant) resolve(hookData []byte, xdr bool) (recipient.Recipient, recipient.Mode, error) {
	switch v.Selection {
	case SelectStringOnly:
		r, err := recipient.Resolve(hookData, recipient.ModeString)
		return r, recipient.ModeString, err
	case SelectFlag:
		mode := recipient.ModeString
		if xdr {
			mode = recipient.ModeSerialized
		}
		r, err := recipient.Resolve(hookData, mode)
		return r, mode, err
	case SelectInfer:
		return recipient.Infer(hookData)
	}
	return recipient.Recipient{}, 0, fmt.Errorf("invalid selection %s", v.Selection)
}

// Config is the deployment configuration.
type Config struct {
	Variant Variant
	// AssetName labels the asset contract.
	AssetName string
	// RejectReplays turns on the transmitter's replay guard.
	RejectReplays bool
}

// DefaultConfig is the configuration used when none is given.
var DefaultConfig = Config{
	Variant:   VariantAttested,
	AssetName: "USDC",
}

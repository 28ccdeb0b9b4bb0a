package address

import (
	"errors"
	"fmt"

	"github.com/stellar/go/strkey"
)

const (
	// StrkeyLength is the rendered length of G and C strkeys.
	StrkeyLength = 56
	// MuxedStrkeyLength is the rendered length of M strkeys.
	MuxedStrkeyLength = 69

	keyPayloadLen   = 32
	muxedPayloadLen = 40
)

// ErrInvalidStrkey is returned for any malformed strkey string.
var ErrInvalidStrkey = errors.New("invalid strkey")

// decodeStrkey parses any supported strkey and returns its version byte and
// payload. Checksum and canonical form are checked by the strkey package, the
// payload length here.
func decodeStrkey(s string) (strkey.VersionByte, []byte, error) {
	version, payload, err := strkey.DecodeAny(s)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrInvalidStrkey, err)
	}
	want := keyPayloadLen
	if version == strkey.VersionByteMuxedAccount {
		want = muxedPayloadLen
	}
	if len(payload) != want {
		return 0, nil, fmt.Errorf("%w: payload is %d bytes, want %d", ErrInvalidStrkey, len(payload), want)
	}
	return version, payload, nil
}

// IsMuxed reports whether s is a well-formed M… strkey.
func IsMuxed(s string) bool {
	version, _, err := decodeStrkey(s)
	return err == nil && version == strkey.VersionByteMuxedAccount
}

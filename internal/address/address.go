package address

import (
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jellydator/validation"
	"golang.org/x/crypto/sha3"
)

// RoninPrefix is the display prefix Ronin wallets use in place of "0x".
const RoninPrefix = "ronin:"

// ErrInvalidAddress is returned for any input that is not a Ronin address.
var ErrInvalidAddress = errors.New("invalid address")

var hexAddress = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Normalize trims whitespace and rewrites a "ronin:" prefix to "0x".
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= len(RoninPrefix) && strings.EqualFold(s[:len(RoninPrefix)], RoninPrefix) {
		return "0x" + s[len(RoninPrefix):]
	}
	return s
}

// Validate reports whether s (already normalized) is a well-formed address.
// Mixed-case input must carry a correct EIP-55 checksum.
func Validate(s string) error {
	err := validation.Validate(s,
		validation.Required,
		validation.Match(hexAddress).Error("must be 0x followed by 40 hex characters"),
		validation.By(checkMixedCase),
	)
	if err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidAddress, s, err)
	}
	return nil
}

// ValidateInput normalizes user input, so a "ronin:" address is accepted,
// then validates it.
func ValidateInput(s string) error {
	_, err := Parse(s)
	return err
}

// Parse normalizes and validates s and returns the parsed address.
func Parse(s string) (common.Address, error) {
	n := Normalize(s)
	if err := Validate(n); err != nil {
		return common.Address{}, err
	}
	if !common.IsHexAddress(n) {
		return common.Address{}, fmt.Errorf("%w %q", ErrInvalidAddress, s)
	}
	return common.HexToAddress(n), nil
}

// Checksum returns the EIP-55 mixed-case form of a 40-char hex address.
// The "0x" prefix is optional on input and always present on output.
// Input that is not 40 hex characters is returned unchanged.
func Checksum(addr string) string {
	lower := strings.ToLower(strings.TrimPrefix(strings.TrimPrefix(addr, "0x"), "0X"))
	if len(lower) != 2*common.AddressLength {
		return addr
	}
	if _, err := hex.DecodeString(lower); err != nil {
		return addr
	}

	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lower))
	hash := hex.EncodeToString(h.Sum(nil))

	var b strings.Builder
	b.WriteString("0x")
	for i, c := range lower {
		if c >= 'a' && c <= 'f' && hash[i] >= '8' {
			b.WriteByte(byte(c - 32))
			continue
		}
		b.WriteByte(byte(c))
	}
	return b.String()
}

// ToRonin renders an address in the "ronin:" form shown by Ronin wallets.
func ToRonin(addr common.Address) string {
	return RoninPrefix + strings.ToLower(strings.TrimPrefix(addr.Hex(), "0x"))
}

func checkMixedCase(value interface{}) error {
	s, _ := value.(string)
	body := strings.TrimPrefix(s, "0x")
	if body == strings.ToLower(body) || body == strings.ToUpper(body) {
		return nil
	}
	if Checksum(body) != s {
		return errors.New("checksum mismatch")
	}
	return nil
}

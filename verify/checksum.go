package verify

import (
	"strconv"
	"unicode/utf16"
)

// checksumPrefix is prepended to the checksum input; the deployed terminals
// use the same literal.
const checksumPrefix = "PIP"

// checksumMod is the Adler-32 modulus. The legacy formula applies it on
// every step instead of windowed, so this is not interchangeable with
// hash/adler32.
const checksumMod = 65521

// Checksum computes the legacy response digest over s. The input is walked
// as UTF-16 code units, the character unit of the deployed terminals, so a
// supplementary character contributes its two surrogates separately. For
// each unit c, in order: s1 = (s1 + c) mod 65521, s2 = (s2 + s1) mod 65521,
// with s1 starting at 1 and s2 at 0. The result is s2*65536 + s1 rendered in
// base 10 with a trailing underscore. Deployed client binaries hardcode this
// exact formula; it must stay bit-compatible.
func Checksum(s string) string {
	var s1, s2 uint64 = 1, 0
	for _, c := range utf16.Encode([]rune(s)) {
		s1 = (s1 + uint64(c)) % checksumMod
		s2 = (s2 + s1) % checksumMod
	}
	return strconv.FormatUint(s2*65536+s1, 10) + "_"
}

// ResponseChecksum builds the checksum for a verification response from its
// parts: the literal prefix, the product code, the device id, and the
// dot-formatted expiration date.
func ResponseChecksum(productCode, deviceID, formattedExpiration string) string {
	return Checksum(checksumPrefix + productCode + deviceID + formattedExpiration)
}

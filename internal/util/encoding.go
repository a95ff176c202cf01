package util

import (
	"encoding/hex"

	"golang.org/x/text/unicode/norm"
)

// Normalize returns s in Unicode normalization form C, so that visually
// identical distinguished-name values encode to the same bytes.
func Normalize(s string) string {
	return norm.NFC.String(s)
}

func HexEncode(b []byte) string {
	return hex.EncodeToString(b)
}

package fetch

import (
	"bytes"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// DecodeText converts downloaded playlist bytes to a string. UTF-8 (with or
// without BOM) is taken as-is; anything else is reinterpreted as Latin-1,
// which covers the ISO-8859-1 and Windows-1252 lists Spanish providers still
// serve. As a last resort invalid sequences become replacement runes so an
// import never fails on encoding alone.
func DecodeText(raw []byte) string {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return string(raw)
	}
	if out, err := charmap.ISO8859_1.NewDecoder().Bytes(raw); err == nil {
		return string(out)
	}
	return strings.ToValidUTF8(string(raw), "�")
}

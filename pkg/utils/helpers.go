package utils

import (
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"

	crypto "github.com/bsv-blockchain/go-sdk/primitives/hash"
)

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	htmlEntityRegex = regexp.MustCompile(`&[a-zA-Z]+;|&#[0-9]+;`)
)

// WordCount counts whitespace separated words in document content. HTML tags
// are treated as separators and entities such as &nbsp; as whitespace, so the
// same text yields the same count whether it is stored as plain text or HTML.
func WordCount(content string) int {
	if strings.TrimSpace(content) == "" {
		return 0
	}
	text := htmlTagRegex.ReplaceAllString(content, " ")
	text = htmlEntityRegex.ReplaceAllString(text, " ")
	return len(strings.Fields(text))
}

// ContentHash returns the hex encoded SHA-256 of the content.
func ContentHash(content string) string {
	return hex.EncodeToString(ContentHashBytes(content))
}

// ContentHashBytes returns the SHA-256 of the content.
func ContentHashBytes(content string) []byte {
	return crypto.Sha256([]byte(content))
}

// UTFBytesToString converts UTF-8 bytes to string
func UTFBytesToString(data []byte) string {
	return string(data)
}

// BytesToHex converts bytes to hex string
func BytesToHex(data []byte) string {
	return hex.EncodeToString(data)
}

// HexToBytes converts hex string to bytes
func HexToBytes(hexStr string) ([]byte, error) {
	return hex.DecodeString(hexStr)
}

// FormatOutpoint renders a transaction output reference as "<txid>.<index>".
func FormatOutpoint(txid string, index uint32) string {
	return txid + "." + strconv.FormatUint(uint64(index), 10)
}

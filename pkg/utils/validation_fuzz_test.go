package utils

import (
	"strings"
	"testing"
)

// FuzzIsValidDocumentID checks that accepted identifiers are always safe to use
// as storage keys.
func FuzzIsValidDocumentID(f *testing.F) {
	f.Add("doc1")
	f.Add("3f1c2a4e-77aa-4b0e-9c1d-0c7c3a9b8e21")
	f.Add("")
	f.Add("../etc/passwd")
	f.Add("a b")
	f.Add("-x")
	f.Add(strings.Repeat("z", 200))

	f.Fuzz(func(t *testing.T, id string) {
		if !IsValidDocumentID(id) {
			return
		}
		if len(id) == 0 || len(id) > MaxDocumentIDLength {
			t.Errorf("accepted id with invalid length %d", len(id))
		}
		if strings.ContainsAny(id, "/\\ \t\n") || strings.Contains(id, "..") {
			t.Errorf("accepted unsafe id %q", id)
		}
	})
}

// FuzzIsValidTopicOrServiceName tests the IsValidTopicOrServiceName function
// with random inputs to ensure it handles all edge cases without panicking.
func FuzzIsValidTopicOrServiceName(f *testing.F) {
	f.Add("tm_bitcoin_writer")
	f.Add("ls_bitcoin_writer")
	f.Add("tm_")
	f.Add("TM_x")
	f.Add("tm__x")

	f.Fuzz(func(t *testing.T, name string) {
		if !IsValidTopicOrServiceName(name) {
			return
		}
		if !strings.HasPrefix(name, "tm_") && !strings.HasPrefix(name, "ls_") {
			t.Errorf("accepted name without prefix: %q", name)
		}
		if strings.Contains(name, "__") || strings.HasSuffix(name, "_") {
			t.Errorf("accepted malformed name: %q", name)
		}
	})
}

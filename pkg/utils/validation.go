// Package utils provides utility functions for the document chain packages.
// It contains validation of document identifiers, overlay topic/service names
// and helpers for hashing and counting document content.
package utils

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Compiled regex patterns for validation
var (
	// topicServiceNameRegex validates topic or service names based on BRC-87 guidelines.
	topicServiceNameRegex = regexp.MustCompile(`^(?:tm_|ls_)[a-z]+(?:_[a-z]+)*$`)

	// documentIDRegex allows slugs, uuids and path-free identifiers.
	documentIDRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:-]*$`)
)

// MaxDocumentIDLength bounds document identifiers so they fit in a PushDrop field
// and a storage key.
const MaxDocumentIDLength = 128

// IsValidDocumentID checks that a document identifier is non-empty, at most
// MaxDocumentIDLength bytes, starts with an alphanumeric character and contains
// only letters, digits, '.', '_', ':' and '-'.
//
// Examples:
//   - Valid: "doc1", "my-novel_v2", "3f1c2a4e-77aa-4b0e-9c1d-0c7c3a9b8e21"
//   - Invalid: "", "-leading", "has space", "../escape", "slash/inside"
func IsValidDocumentID(id string) bool {
	if len(id) == 0 || len(id) > MaxDocumentIDLength {
		return false
	}
	if strings.Contains(id, "..") {
		return false
	}
	return documentIDRegex.MatchString(id)
}

// IsValidInscriptionID reports whether id is a canonical UUID string.
func IsValidInscriptionID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// IsValidTopicOrServiceName checks if the provided service name is valid based on BRC-87 guidelines.
//
// Rules:
//   - Must be between 1-50 characters total
//   - Must start with "tm_" (topic) or "ls_" (lookup service) prefix
//   - After prefix, must contain only lowercase letters and underscores
//   - Underscores can only separate groups of lowercase letters (no consecutive underscores)
func IsValidTopicOrServiceName(name string) bool {
	if len(name) < 1 || len(name) > 50 {
		return false
	}
	return topicServiceNameRegex.MatchString(name)
}

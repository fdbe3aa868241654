package domain

import "strings"

// Identity is the verified caller claim produced by the authentication step.
// The core trusts it as given.
type Identity struct {
	OwnerAddress string
	DisplayName  string
	SubjectID    string
}

// NormalizeAddress trims and lowercases an owner address
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

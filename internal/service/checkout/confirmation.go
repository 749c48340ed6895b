package checkout

import (
	"crypto/rand"
	"encoding/base32"
)

const confirmationPrefix = "ORD-"

var confirmationEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// newConfirmationNumber produces a unique, non-guessable confirmation
// identifier. 20 random bytes leave collision probability negligible and no
// sequential structure for other users to probe.
func newConfirmationNumber() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return confirmationPrefix + confirmationEncoding.EncodeToString(b), nil
}

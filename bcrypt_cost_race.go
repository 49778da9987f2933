//go:build race

package sessions

import "golang.org/x/crypto/bcrypt"

func init() {
	// Reduce cost for race-enabled builds so test suites can run with
	// strict timeouts.
	BcryptCost = bcrypt.DefaultCost
}

// Package randutil provides small randomness helpers for tests and
// fixtures. It is not used by any production code path.
package randutil

import (
	"fmt"
	"math/rand"
)

// IP returns a random, syntactically valid IPv4 address.
func IP() string {
	return fmt.Sprintf("%d.%d.%d.%d", rand.Intn(256), rand.Intn(256), rand.Intn(256), rand.Intn(256))
}

// Port returns a random port number in the dynamic/private range.
func Port() int {
	return 49152 + rand.Intn(16383)
}

const _alphanum = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Text returns n random alphanumeric bytes.
func Text(n uint64) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = _alphanum[rand.Intn(len(_alphanum))]
	}
	return b
}

package storage

import "golang.org/x/crypto/blake2b"

// checksumSize is the number of leading bytes of a BLAKE2b-256 digest we
// store per page. Full cryptographic strength is unnecessary for
// corruption detection; truncating keeps the 24-byte page header cheap.
const checksumSize = 8

type checksumT [checksumSize]byte

// checksum returns a truncated BLAKE2b-256 digest of a page's data
// segment, used to detect torn writes and disk corruption on read.
// Recovery/WAL is out of scope, so this is the cheapest available
// correctness net for FetchPage against a damaged data file.
func checksum(data []byte) checksumT {
	sum := blake2b.Sum256(data)
	var out checksumT
	copy(out[:], sum[:checksumSize])
	return out
}

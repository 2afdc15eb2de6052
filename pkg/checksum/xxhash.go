package checksum

import (
	"encoding/hex"

	"github.com/cespare/xxhash/v2"
)

// Sum returns the hex encoded xxhash64 digest of data.
func Sum(data []byte) string {
	digest := xxhash.New()
	digest.Write(data)
	return hex.EncodeToString(digest.Sum(nil))
}

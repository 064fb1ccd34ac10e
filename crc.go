package maptools

import (
	"fmt"
	"hash/crc32"
)

// crcBytes returns the CRC-32 of a resource as fixed-width uppercase hex,
// the form the catalogue keys resources by.
func crcBytes(b []byte) string {
	return fmt.Sprintf("%.*X", crc32.Size<<1, crc32.ChecksumIEEE(b))
}

package maptools

import (
	"bytes"
	"os"

	"github.com/quakeman22/Rayman-3-Map-Tools/tilemap"
)

func matrixEqual(a, b [][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !bytes.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Verify re-reads every catalogued resource and decodes it again,
// comparing the outcome against the stored entry. It returns how many
// resources no longer match; progress, when non-nil, is called with each
// path as it is checked.
func (m *MapTools) Verify(progress func(string)) (int, error) {
	mismatches := 0

	err := m.db.EachMap(func(sm *StoredMap) error {
		if progress != nil {
			progress(sm.Path)
		}

		data, err := os.ReadFile(sm.Path)
		if err != nil {
			m.logger.Printf("\"%s\": %v\n", sm.Path, err)
			mismatches++
			return nil
		}

		offset, size := int(sm.Offset), int(sm.Size)
		if offset < 0 || size < 0 || offset > len(data) {
			m.logger.Printf("\"%s\": resource window gone\n", sm.Path)
			mismatches++
			return nil
		}
		end := len(data)
		if size < len(data)-offset {
			end = offset + size
		}

		decoded, err := tilemap.Decode(data, offset, size)
		if err != nil {
			m.logger.Printf("\"%s\": %v\n", sm.Path, err)
			mismatches++
			return nil
		}

		if crcBytes(data[offset:end]) != sm.CRC ||
			decoded.Width != sm.Width ||
			decoded.Height != sm.Height ||
			decoded.Stats.Defaulted() != sm.Defaulted ||
			decoded.Stats.StrideMismatch != sm.StrideMismatch ||
			!matrixEqual(decoded.Visual, sm.Visual) ||
			!matrixEqual(decoded.Collision, sm.Collision) {
			m.logger.Printf("\"%s\": does not match catalogue\n", sm.Path)
			mismatches++
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return mismatches, nil
}

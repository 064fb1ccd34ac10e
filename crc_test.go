package maptools

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCRCBytes(t *testing.T) {
	require.Equal(t, "CBF43926", crcBytes([]byte("123456789")))
	require.Equal(t, "00000000", crcBytes(nil))
	require.NotEqual(t, crcBytes(testResource(10)), crcBytes(testResource(50)))
}

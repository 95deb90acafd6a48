package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCHexScenarioS5(t *testing.T) {
	got := CHex([]byte{0x40, 0x01, 0x01, 0x01})
	require.Equal(t, "{ 0x40, 0x01, 0x01, 0x01 }", got)
}

func TestNewUnknownTag(t *testing.T) {
	_, err := New(Tag("bogus"))
	require.Error(t, err)
}

func TestNewNoDumpIsSilent(t *testing.T) {
	f, err := New(TagNoDump)
	require.NoError(t, err)
	out, err := f.Format(nil, Sideband{})
	require.NoError(t, err)
	require.Empty(t, out)
}

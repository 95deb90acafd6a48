package filtervm

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadImageTrivialPass(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "trivial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("code:\n  - op: LOAD\n    imm: 1\n"), 0o644))

	img, err := LoadImage(path)
	require.NoError(t, err)
	require.True(t, img.IsTrivialPass())
}

func TestLoadImageWithConsts(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "image.yaml")
	doc := `
code:
  - op: LOADK
    imm: 0
  - op: PFXCMP
    imm: 0
consts:
  - kind: prefix
    prefix: "192.0.2.0/24"
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	img, err := LoadImage(path)
	require.NoError(t, err)
	require.Len(t, img.Code, 2)
	require.Equal(t, MakeOp(OpLOADK, 0), img.Code[0])
	c, ok := img.Consts.At(0)
	require.True(t, ok)
	require.Equal(t, ConstPrefix, c.Kind)
	require.Equal(t, "192.0.2.0/24", c.Prefix.String())
}

func TestLoadImageUnknownOpcode(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("code:\n  - op: NOPE\n"), 0o644))

	_, err := LoadImage(path)
	require.Error(t, err)
}

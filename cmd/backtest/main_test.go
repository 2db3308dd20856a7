package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`name: demo
initCash: 1000000
numLongs: 10
data:
  prices: prices.csv
  factors: factors.csv
`), 0o644))

	out := &bytes.Buffer{}
	root := newRootCommand()
	root.SetOut(out)
	root.SetArgs([]string{"validate", "--config", path})
	require.NoError(t, root.Execute())
	require.Equal(t, "demo: long_short mode, 252 periods per year\n", out.String())

	root = newRootCommand()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"validate"})
	require.Error(t, root.Execute())
}

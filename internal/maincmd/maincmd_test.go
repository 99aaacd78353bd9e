package maincmd_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/mna/loxvm/internal/maincmd"
	"github.com/mna/mainer"
	"github.com/stretchr/testify/require"
)

func newStdio(stdin string) (mainer.Stdio, *bytes.Buffer, *bytes.Buffer) {
	var out, errOut bytes.Buffer
	return mainer.Stdio{
		Stdin:  bytes.NewBufferString(stdin),
		Stdout: &out,
		Stderr: &errOut,
	}, &out, &errOut
}

func TestHelpAndVersion(t *testing.T) {
	stdio, out, _ := newStdio("")
	c := maincmd.Cmd{BuildVersion: "1.0", BuildDate: "2026-01-01"}
	code := c.Main([]string{"lox", "-h"}, stdio)
	require.EqualValues(t, mainer.Success, code)
	require.Contains(t, out.String(), "usage: lox")

	stdio, out, _ = newStdio("")
	c = maincmd.Cmd{BuildVersion: "1.0", BuildDate: "2026-01-01"}
	code = c.Main([]string{"lox", "-v"}, stdio)
	require.EqualValues(t, mainer.Success, code)
	require.Contains(t, out.String(), "1.0")
}

func TestRunFileSuccess(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.lox")
	require.NoError(t, os.WriteFile(path, []byte(`print 1 + 2;`), 0o644))

	stdio, out, errOut := newStdio("")
	c := maincmd.Cmd{}
	code := c.Main([]string{"lox", path}, stdio)
	require.EqualValues(t, mainer.Success, code)
	require.Empty(t, errOut.String())
	require.Equal(t, "3\n", out.String())
}

func TestRunFileCompileError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.lox")
	require.NoError(t, os.WriteFile(path, []byte(`var ;`), 0o644))

	stdio, _, errOut := newStdio("")
	c := maincmd.Cmd{}
	code := c.Main([]string{"lox", path}, stdio)
	require.EqualValues(t, 65, code)
	require.NotEmpty(t, errOut.String())
}

func TestRunFileRuntimeError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.lox")
	require.NoError(t, os.WriteFile(path, []byte(`"a" + 1;`), 0o644))

	stdio, _, errOut := newStdio("")
	c := maincmd.Cmd{}
	code := c.Main([]string{"lox", path}, stdio)
	require.EqualValues(t, 70, code)
	require.Contains(t, errOut.String(), "Operands must be two numbers or two strings")
}

func TestRunFileMissing(t *testing.T) {
	stdio, _, errOut := newStdio("")
	c := maincmd.Cmd{}
	code := c.Main([]string{"lox", filepath.Join(t.TempDir(), "nope.lox")}, stdio)
	require.EqualValues(t, 64, code)
	require.NotEmpty(t, errOut.String())
}

func TestTooManyArgsIsUsageError(t *testing.T) {
	stdio, _, _ := newStdio("")
	c := maincmd.Cmd{}
	code := c.Main([]string{"lox", "a.lox", "b.lox"}, stdio)
	require.EqualValues(t, 64, code)
}

func TestREPLEchoesProgramOutputAndExitsOnEOF(t *testing.T) {
	stdio, out, errOut := newStdio("print 1 + 1;\nprint \"hi\";\n")
	c := maincmd.Cmd{}
	code := c.Main([]string{"lox"}, stdio)
	require.EqualValues(t, mainer.Success, code)
	require.Empty(t, errOut.String())
	require.Contains(t, out.String(), "2\n")
	require.Contains(t, out.String(), "hi\n")
}

func TestREPLReportsErrorsButKeepsGoing(t *testing.T) {
	stdio, out, errOut := newStdio("var ;\nprint 1;\n")
	c := maincmd.Cmd{}
	code := c.Main([]string{"lox"}, stdio)
	require.EqualValues(t, mainer.Success, code)
	require.NotEmpty(t, errOut.String())
	require.Contains(t, out.String(), "1\n")
}

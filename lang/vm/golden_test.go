package vm_test

import (
	"bytes"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/mna/loxvm/internal/filetest"
	"github.com/mna/loxvm/lang/vm"
	"github.com/stretchr/testify/require"
)

var testUpdateVMTests = flag.Bool("test.update-vm-tests", false, "If set, replace expected VM golden test results with actual results.")

// TestRunScripts executes every testdata/in/*.lox script and diffs its
// stdout/stderr against the matching golden file in testdata/out, the same
// SourceFiles/DiffOutput/DiffErrors harness the teacher's scanner and parser
// tests use (lang/scanner/scanner_test.go, lang/parser/parser_test.go).
func TestRunScripts(t *testing.T) {
	srcDir, resultDir := filepath.Join("testdata", "in"), filepath.Join("testdata", "out")

	for _, fi := range filetest.SourceFiles(t, srcDir, ".lox") {
		t.Run(fi.Name(), func(t *testing.T) {
			src, err := os.ReadFile(filepath.Join(srcDir, fi.Name()))
			require.NoError(t, err)

			var out, errOut bytes.Buffer
			m := vm.New(&out, &errOut)
			m.Interpret(string(src))

			filetest.DiffOutput(t, fi, out.String(), resultDir, testUpdateVMTests)
			filetest.DiffErrors(t, fi, errOut.String(), resultDir, testUpdateVMTests)
		})
	}
}

package maincmd

import (
	"context"
	"fmt"
	"os"

	"github.com/mna/loxvm/lang/vm"
	"github.com/mna/mainer"
)

// runFile compiles and runs a single script file to completion (spec
// section 6, "Command-line interface").
func runFile(ctx context.Context, stdio mainer.Stdio, path string) mainer.ExitCode {
	src, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(stdio.Stderr, "lox: %s\n", err)
		return usageError
	}

	m := vm.New(stdio.Stdout, stdio.Stderr)
	switch m.Interpret(string(src)) {
	case vm.CompileError:
		return compileErrorExit
	case vm.RuntimeError:
		return runtimeErrorExit
	default:
		return mainer.Success
	}
}

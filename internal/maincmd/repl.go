package maincmd

import (
	"bufio"
	"context"
	"fmt"

	"github.com/mna/loxvm/lang/vm"
	"github.com/mna/mainer"
)

// runREPL reads one line at a time from stdio.Stdin, feeding each to the
// same VM instance so that global variables and functions persist across
// lines (spec section 6, "Command-line interface"). Compile and runtime
// errors are reported but do not end the session; only EOF or cancellation
// of ctx (an interrupt signal) does, with a clean exit, unlike the jlox
// driver's literal blank-line quirk (see DESIGN.md).
func runREPL(ctx context.Context, stdio mainer.Stdio) mainer.ExitCode {
	m := vm.New(stdio.Stdout, stdio.Stderr)
	scanner := bufio.NewScanner(stdio.Stdin)

	for {
		fmt.Fprint(stdio.Stdout, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(stdio.Stdout)
			return mainer.Success
		}

		select {
		case <-ctx.Done():
			return mainer.Success
		default:
		}

		m.Interpret(scanner.Text())
	}
}

package maincmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mna/mainer"
)

const binName = "lox"

var (
	shortUsage = fmt.Sprintf(`
usage: %s [<option>...] [<script>]
Run '%[1]s --help' for details.
`, binName)

	longUsage = fmt.Sprintf(`usage: %s [<option>...] [<script>]
       %[1]s -h|--help
       %[1]s -v|--version

Bytecode compiler and virtual machine for the Lox programming language.

With no <script>, starts an interactive REPL that reads and executes one
line at a time. With a <script> argument, compiles and runs that file.

Valid flag options are:
       -h --help                 Show this help and exit.
       -v --version              Print version and exit.
`, binName)
)

// Cmd is the lox command-line tool: REPL when invoked with no positional
// argument, file execution when invoked with exactly one (spec section 6,
// "Command-line interface").
type Cmd struct {
	BuildVersion string
	BuildDate    string

	Help    bool `flag:"h,help"`
	Version bool `flag:"v,version"`

	args []string
}

func (c *Cmd) SetArgs(args []string) {
	c.args = args
}

func (c *Cmd) SetFlags(flags map[string]bool) {}

func (c *Cmd) Validate() error {
	if c.Help || c.Version {
		return nil
	}
	if len(c.args) > 1 {
		return errors.New("usage error: at most one script path may be given")
	}
	return nil
}

func (c *Cmd) Main(args []string, stdio mainer.Stdio) mainer.ExitCode {
	p := mainer.Parser{
		EnvVars:   false,
		EnvPrefix: binName + "_",
	}
	if err := p.Parse(args, c); err != nil {
		fmt.Fprintf(stdio.Stderr, "invalid arguments: %s\n%s", err, shortUsage)
		return usageError
	}

	switch {
	case c.Help:
		fmt.Fprint(stdio.Stdout, longUsage)
		return mainer.Success

	case c.Version:
		fmt.Fprintf(stdio.Stdout, "%s %s %s\n", binName, c.BuildVersion, c.BuildDate)
		return mainer.Success
	}

	ctx := mainer.CancelOnSignal(context.Background(), os.Interrupt)

	switch len(c.args) {
	case 0:
		return runREPL(ctx, stdio)
	case 1:
		return runFile(ctx, stdio, c.args[0])
	default:
		fmt.Fprintf(stdio.Stderr, "usage error: at most one script path may be given\n%s", shortUsage)
		return usageError
	}
}

// Exit codes follow the jlox driver this VM's spec was distilled from
// (original_source/Lox/Main.cpp): 0 success, 65 compile error, 70 runtime
// error, 64 usage error. mainer only names Success/Failure/InvalidArgs, so
// all three codes are literal conversions (see DESIGN.md).
const (
	compileErrorExit = mainer.ExitCode(65)
	runtimeErrorExit = mainer.ExitCode(70)
	usageError       = mainer.ExitCode(64)
)

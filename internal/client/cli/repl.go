package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for REPL output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface is the command surface the REPL needs. App satisfies it; tests
// provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	// execute runs a named command. found is false for unknown names.
	execute(ctx context.Context, name string, args []string) (found bool, err error)
}

// runREPL reads commands from scanner until EOF, "exit" or "quit".
//
// The first token of each line is the command name, the rest are its
// arguments. "help" lists the commands available in the current login
// state. Handler errors are printed and the loop continues.
func runREPL(ctx context.Context, a execIface, statusFn func() string, scanner *bufio.Scanner) {
	for {
		if ctx.Err() != nil {
			return
		}
		printlnFn(fmt.Sprintf("kumo%s> ", statusFn()))
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help", "?":
			printlnFn(helpText(a.isLoggedIn()))

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			found, err := a.execute(ctx, cmd, args)
			if !found {
				printlnFn("Unknown command:", cmd)
				continue
			}
			if err != nil {
				printlnFn("Error:", err)
			}
		}
	}
}

func helpText(loggedIn bool) string {
	var b strings.Builder
	b.WriteString("Available commands:\n")
	for _, c := range commandTable {
		if c.auth && !loggedIn || c.guestOnly && loggedIn {
			continue
		}
		fmt.Fprintf(&b, "  %-24s %s\n", c.usage(), c.help)
	}
	b.WriteString("  exit | quit")
	return b.String()
}

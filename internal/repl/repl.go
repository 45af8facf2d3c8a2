// Package repl implements the interactive read-eval-print loop.
package repl

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/stupiduntilnot/omnichat/internal/orchestrator"
)

// REPL reads user lines, hands them to the orchestrator, and prints replies.
// Runtime errors are reported to the user and the loop continues; only the
// exit commands or end of input stop it.
type REPL struct {
	in   io.Reader
	out  io.Writer
	orch *orchestrator.Orchestrator
}

// New creates a REPL bound to an input and output stream.
func New(in io.Reader, out io.Writer, orch *orchestrator.Orchestrator) *REPL {
	return &REPL{in: in, out: out, orch: orch}
}

// Run drives the loop until exit/quit or EOF. It returns a non-nil error only
// when reading input itself fails.
func (r *REPL) Run() error {
	fmt.Fprintln(r.out, "omnichat - type 'exit' or 'quit' to leave")

	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Fprint(r.out, "\nYou: ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			fmt.Fprintln(r.out, "\nGoodbye!")
			return nil
		}

		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		if isExitCommand(input) {
			fmt.Fprintln(r.out, "Goodbye!")
			return nil
		}

		reply, err := r.orch.HandleMessage(input)
		if err != nil {
			fmt.Fprintf(r.out, "Error: %v\n", err)
			continue
		}
		fmt.Fprintf(r.out, "\nAssistant: %s\n", reply)
	}
}

func isExitCommand(input string) bool {
	lowered := strings.ToLower(input)
	return lowered == "exit" || lowered == "quit"
}

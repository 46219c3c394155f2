// Command ledgerctl inspects and edits project ledgers from the shell.
package main

import (
	"fmt"
	"os"

	"github.com/obras/backend/internal/domain/shared"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		if code := shared.ErrorCode(err); code != "" {
			fmt.Fprintf(os.Stderr, "Error [%s]: %v\n", code, err)
		} else {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

// Command ledgerbook keeps an offline invoice book: customers, invoices and
// bill images in a local SQLite database, with whole-store backups and one
// remote backup slot.
package main

import (
	"fmt"
	"os"

	"github.com/roach88/ledgerbook/internal/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(cli.GetExitCode(err))
	}
}

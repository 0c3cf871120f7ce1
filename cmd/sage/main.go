// Command sage resolves college football player mentions to canonical identities.
//
// Usage:
//
//	sage serve                       run the HTTP API and the Kafka link consumer
//	sage migrate                     apply database migrations
//	sage link --file reports.json    link a file of reports
//	sage backfill                    embed players missing a current embedding
//	sage review list|approve|reject  work the review queue
package main

import (
	"fmt"
	"os"

	"github.com/Ramsey-B/sage/cmd/sage/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

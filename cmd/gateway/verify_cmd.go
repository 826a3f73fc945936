package main

import (
	"context"
	"flag"
	"fmt"
	"io"

	"github.com/quietcore/gateway/pkg/audit"
	"github.com/quietcore/gateway/pkg/config"
)

// runVerifyCmd recomputes the audit chain from genesis and reports
// whether every entry's chainHash still matches what was stored.
//
// Exit codes:
//
//	0 = chain intact
//	1 = chain broken
//	2 = runtime error
func runVerifyCmd(args []string, stdout, stderr io.Writer) int {
	cmd := flag.NewFlagSet("verify", flag.ContinueOnError)
	cmd.SetOutput(stderr)

	var dbPath string
	cmd.StringVar(&dbPath, "db", "", "Path to the audit SQLite database (default: configured HELM_GATEWAY_AUDIT_DB)")

	if err := cmd.Parse(args); err != nil {
		return 2
	}

	if dbPath == "" {
		dbPath = config.Load().AuditDBPath
	}

	store, err := audit.NewSQLiteStore(dbPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: cannot open audit database: %v\n", err)
		return 2
	}

	result, err := store.VerifyChain(context.Background())
	if err != nil {
		fmt.Fprintf(stderr, "Error: chain verification failed to run: %v\n", err)
		return 2
	}
	if !result.Valid {
		fmt.Fprintf(stdout, "chain verification FAILED: first break at entry %s\n", result.FirstBreakID)
		fmt.Fprintf(stdout, "database: %s\n", dbPath)
		return 1
	}

	fmt.Fprintf(stdout, "chain verification PASSED\n")
	fmt.Fprintf(stdout, "database: %s\n", dbPath)
	return 0
}

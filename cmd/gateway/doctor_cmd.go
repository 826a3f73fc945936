package main

import (
	"fmt"
	"io"
	"os"

	"github.com/quietcore/gateway/pkg/audit"
	"github.com/quietcore/gateway/pkg/config"
	"github.com/quietcore/gateway/pkg/signing"
)

// runDoctorCmd checks that the gateway's configuration, signing key, and
// audit database are reachable and well-formed, without starting the
// transport.
func runDoctorCmd(stdout, stderr io.Writer) int {
	ok := true
	cfg := config.Load()

	fmt.Fprintln(stdout, "quietcore-gateway doctor")
	fmt.Fprintf(stdout, "  socket path:    %s\n", cfg.SocketPath)
	fmt.Fprintf(stdout, "  signing key:    %s\n", cfg.SigningKeyPath)
	fmt.Fprintf(stdout, "  audit db:       %s\n", cfg.AuditDBPath)

	if _, err := signing.LoadKeyFile(cfg.SigningKeyPath); err != nil {
		fmt.Fprintf(stdout, "  [FAIL] signing key: %v\n", err)
		ok = false
	} else {
		fmt.Fprintln(stdout, "  [OK] signing key loads")
	}

	if store, err := audit.NewSQLiteStore(cfg.AuditDBPath); err != nil {
		fmt.Fprintf(stdout, "  [FAIL] audit database: %v\n", err)
		ok = false
	} else {
		fmt.Fprintln(stdout, "  [OK] audit database opens")
		_ = store
	}

	if cfg.ProfilePath != "" {
		if _, err := os.Stat(cfg.ProfilePath); err != nil {
			fmt.Fprintf(stdout, "  [FAIL] profile overlay %s: %v\n", cfg.ProfilePath, err)
			ok = false
		} else {
			fmt.Fprintf(stdout, "  [OK] profile overlay %s present\n", cfg.ProfilePath)
		}
	} else {
		fmt.Fprintln(stdout, "  [--] no profile overlay configured")
	}

	if !ok {
		fmt.Fprintln(stderr, "doctor: one or more checks failed")
		return 1
	}
	return 0
}

// Command pki2fa runs the TOTP service and the operator tasks around it:
// key generation, seed enrollment, cron code logging and commit proofs.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrymomot/pki2fa/pkg/config"
	"github.com/dmitrymomot/pki2fa/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type command func(ctx context.Context, a *app, args []string) error

var commands = map[string]command{
	"serve":        cmdServe,
	"keygen":       cmdKeygen,
	"request-seed": cmdRequestSeed,
	"decrypt-seed": cmdDecryptSeed,
	"log-code":     cmdLogCode,
	"proof":        cmdProof,
	"proof-verify": cmdProofVerify,
	"uri":          cmdURI,
}

func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	}

	cmd, ok := commands[args[0]]
	if !ok {
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}

	cfg, err := config.Load[Config]()
	if err != nil {
		fmt.Fprintf(errOut, "load config: %v\n", err)
		return 1
	}
	log, err := newLogger(cfg, errOut)
	if err != nil {
		fmt.Fprintf(errOut, "configure logger: %v\n", err)
		return 1
	}

	a := &app{cfg: cfg, log: log, out: out, errOut: errOut}
	if err := cmd(ctx, a, args[1:]); err != nil {
		if isUsageError(err) {
			return 2
		}
		log.ErrorContext(ctx, args[0]+" failed", logger.Error(err))
		return 1
	}
	return 0
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "pki2fa: TOTP service with RSA-encrypted seed and signed commit proofs")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  pki2fa serve")
	fmt.Fprintln(w, "  pki2fa keygen [-bits N]")
	fmt.Fprintln(w, "  pki2fa request-seed")
	fmt.Fprintln(w, "  pki2fa decrypt-seed [-in <file> | -value <base64>]")
	fmt.Fprintln(w, "  pki2fa log-code [-every <duration>]")
	fmt.Fprintln(w, "  pki2fa proof [-commit <id>]")
	fmt.Fprintln(w, "  pki2fa proof-verify")
	fmt.Fprintln(w, "  pki2fa uri [-qr]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Notes:")
	fmt.Fprintln(w, "  - configuration comes from the environment and an optional .env file")
	fmt.Fprintln(w, "  - log-code without -every appends one line and exits (cron entry)")
	fmt.Fprintln(w, "  - proof needs an instructor key larger than the signing key")
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrymomot/pki2fa/pkg/audit"
	"github.com/dmitrymomot/pki2fa/pkg/gitrev"
	"github.com/dmitrymomot/pki2fa/pkg/httpserver"
	"github.com/dmitrymomot/pki2fa/pkg/keys"
	"github.com/dmitrymomot/pki2fa/pkg/logger"
	"github.com/dmitrymomot/pki2fa/pkg/proof"
	"github.com/dmitrymomot/pki2fa/pkg/qrcode"
	"github.com/dmitrymomot/pki2fa/pkg/ratelimiter"
	"github.com/dmitrymomot/pki2fa/pkg/seed"
	"github.com/dmitrymomot/pki2fa/pkg/seedclient"
	"github.com/dmitrymomot/pki2fa/svc/twofa"
)

var errUsage = errors.New("usage error")

func isUsageError(err error) bool {
	return errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp)
}

// app carries what every command needs.
type app struct {
	cfg    Config
	log    *slog.Logger
	out    io.Writer
	errOut io.Writer
}

func (a *app) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(a.errOut)
	return fs
}

func (a *app) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return errors.Join(errUsage, err)
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(a.errOut, "%s: unexpected arguments: %s\n", fs.Name(), strings.Join(fs.Args(), " "))
		return errUsage
	}
	return nil
}

func (a *app) service(opts ...twofa.Option) *twofa.Service {
	var mirrors []string
	if a.cfg.CronMirrorPath != "" {
		mirrors = append(mirrors, a.cfg.CronMirrorPath)
	}
	auditLog := audit.NewLogger(audit.NewFileLog(a.cfg.CronLogPath, mirrors...))

	return twofa.New(twofa.Config{
		PrivateKeyPath:    a.cfg.PrivateKeyPath(),
		EncryptedSeedPath: a.cfg.EncryptedSeedPath,
		Issuer:            a.cfg.TOTPIssuer,
		AccountName:       a.cfg.AccountName(),
	}, seed.NewFileStore(a.cfg.SeedPath), auditLog, append([]twofa.Option{twofa.WithLogger(a.log)}, opts...)...)
}

func cmdServe(ctx context.Context, a *app, args []string) error {
	if err := a.parse(a.flags("serve"), args); err != nil {
		return err
	}

	var opts []twofa.Option
	if a.cfg.Verify.RatePerSecond > 0 {
		limiter, err := ratelimiter.New(a.cfg.Verify)
		if err != nil {
			return err
		}
		opts = append(opts, twofa.WithVerifyLimiter(limiter))
	}
	svc := a.service(opts...)

	server := httpserver.NewFromConfig(a.cfg.HTTP, httpserver.WithLogger(a.log))
	return server.Run(ctx, svc.Handle())
}

func cmdKeygen(ctx context.Context, a *app, args []string) error {
	fs := a.flags("keygen")
	bits := fs.Int("bits", a.cfg.KeyBits, "RSA modulus size")
	if err := a.parse(fs, args); err != nil {
		return err
	}

	key, err := keys.Generate(a.cfg.PrivateKeyPath(), a.cfg.PublicKeyPath(), *bits)
	if err != nil {
		return err
	}
	fp, err := keys.Fingerprint(&key.PublicKey)
	if err != nil {
		return err
	}

	a.log.InfoContext(ctx, "key pair generated",
		logger.Path(a.cfg.PublicKeyPath()),
		logger.Fingerprint(fp),
		slog.Int("bits", key.N.BitLen()),
	)
	fmt.Fprintln(a.out, fp)
	return nil
}

func cmdRequestSeed(ctx context.Context, a *app, args []string) error {
	if err := a.parse(a.flags("request-seed"), args); err != nil {
		return err
	}

	pub, err := keys.LoadPublicKey(a.cfg.PublicKeyPath())
	if err != nil {
		return err
	}
	pubPEM, err := keys.EncodePublicKeyPEM(pub)
	if err != nil {
		return err
	}

	client, err := seedclient.New(a.cfg.SeedEndpoint,
		seedclient.WithTimeout(a.cfg.SeedTimeout),
		seedclient.WithMaxAttempts(a.cfg.SeedAttempts),
		seedclient.WithBackoff(a.cfg.SeedBackoff),
		seedclient.WithLogger(a.log),
	)
	if err != nil {
		return err
	}

	encrypted, err := client.Request(ctx, seedclient.Request{
		StudentID:    a.cfg.StudentID,
		RepoURL:      a.cfg.RepoURL,
		PublicKeyPEM: string(pubPEM),
	})
	if err != nil {
		return err
	}

	if err := writeFileAtomic(a.cfg.EncryptedSeedPath, []byte(encrypted), 0o600); err != nil {
		return fmt.Errorf("write encrypted seed: %w", err)
	}
	a.log.InfoContext(ctx, "encrypted seed stored", logger.Path(a.cfg.EncryptedSeedPath))
	return nil
}

func cmdDecryptSeed(ctx context.Context, a *app, args []string) error {
	fs := a.flags("decrypt-seed")
	in := fs.String("in", "", "file holding the Base64 ciphertext (defaults to ENCRYPTED_SEED_PATH)")
	value := fs.String("value", "", "Base64 ciphertext")
	if err := a.parse(fs, args); err != nil {
		return err
	}
	if *in != "" && *value != "" {
		fmt.Fprintln(a.errOut, "decrypt-seed: -in and -value are mutually exclusive")
		return errUsage
	}

	ciphertext := *value
	if *in != "" {
		data, err := os.ReadFile(*in)
		if err != nil {
			return err
		}
		ciphertext = string(data)
	}

	return a.service().DecryptSeed(ctx, ciphertext)
}

func cmdLogCode(ctx context.Context, a *app, args []string) error {
	fs := a.flags("log-code")
	every := fs.Duration("every", 0, "repeat at this interval until interrupted")
	if err := a.parse(fs, args); err != nil {
		return err
	}

	svc := a.service()
	logOnce := func() error {
		_, line, err := svc.RunTOTP(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, line)
		return nil
	}

	if *every <= 0 {
		return logOnce()
	}

	ticker := time.NewTicker(*every)
	defer ticker.Stop()
	for {
		if err := logOnce(); err != nil {
			a.log.ErrorContext(ctx, "failed to log code", logger.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func cmdProof(ctx context.Context, a *app, args []string) error {
	fs := a.flags("proof")
	commit := fs.String("commit", "", "commit id to sign (defaults to HEAD of REPO_DIR)")
	if err := a.parse(fs, args); err != nil {
		return err
	}

	counterparty, err := keys.LoadCounterpartyPublicKey(a.cfg.InstructorPubPath)
	if err != nil {
		return err
	}
	signer, err := keys.LoadPrivateKey(a.cfg.PrivateKeyPath())
	if err != nil {
		return err
	}

	commitID := strings.TrimSpace(*commit)
	if commitID == "" {
		commitID, err = gitrev.Head(ctx, a.cfg.RepoDir)
		if err != nil {
			return err
		}
	}
	a.log.InfoContext(ctx, "captured commit", logger.Commit(commitID))

	meta := proof.Metadata{
		SignaturePath:       a.cfg.ProofSigPath,
		EncryptedSigPath:    a.cfg.ProofSigEncPath,
		CounterpartyKeyPath: a.cfg.InstructorPubPath,
	}
	if meta.LocalKeyFingerprint, err = keys.Fingerprint(&signer.PublicKey); err != nil {
		return err
	}
	if meta.CounterpartyFingerprint, err = keys.Fingerprint(counterparty); err != nil {
		return err
	}

	bundle, err := proof.Generate(signer, counterparty, commitID, meta)
	if err != nil {
		return err
	}
	if err := proof.NewWriter(proof.WithLogger(a.log)).Write(bundle, a.cfg.ProofPaths()); err != nil {
		return err
	}

	fmt.Fprintln(a.out, a.cfg.ProofTarPath)
	return nil
}

func cmdProofVerify(ctx context.Context, a *app, args []string) error {
	if err := a.parse(a.flags("proof-verify"), args); err != nil {
		return err
	}

	pub, err := keys.LoadPublicKey(a.cfg.PublicKeyPath())
	if err != nil {
		return err
	}
	bundle, err := proof.LoadBundle(a.cfg.ProofPaths())
	if err != nil {
		return err
	}
	if err := proof.VerifySignature(pub, bundle.CommitID, bundle.Signature); err != nil {
		return err
	}

	a.log.InfoContext(ctx, "proof signature verified", logger.Commit(bundle.CommitID))
	fmt.Fprintf(a.out, "signature valid for commit %s\n", bundle.CommitID)
	return nil
}

func cmdURI(ctx context.Context, a *app, args []string) error {
	fs := a.flags("uri")
	qr := fs.Bool("qr", false, "also print a terminal QR code")
	if err := a.parse(fs, args); err != nil {
		return err
	}

	uri, err := a.service().EnrollmentURI(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, uri)

	if *qr {
		art, err := qrcode.Terminal(uri)
		if err != nil {
			return err
		}
		fmt.Fprint(a.out, art)
	}
	return nil
}

// writeFileAtomic replaces path with data so readers never see a partial file.
func writeFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Chmod(perm); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

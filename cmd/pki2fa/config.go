package main

import (
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dmitrymomot/pki2fa/pkg/httpserver"
	"github.com/dmitrymomot/pki2fa/pkg/logger"
	"github.com/dmitrymomot/pki2fa/pkg/proof"
	"github.com/dmitrymomot/pki2fa/pkg/ratelimiter"
	"github.com/dmitrymomot/pki2fa/pkg/requestid"
)

const serviceName = "pki2fa"

// Config is resolved once at startup; packages receive plain values from it.
type Config struct {
	AppEnv    string `env:"APP_ENV" envDefault:"development"`
	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT"`

	StudentID      string        `env:"STUDENT_ID"`
	RepoURL        string        `env:"REPO_URL"`
	SeedEndpoint   string        `env:"SEED_ENDPOINT"`
	SeedTimeout    time.Duration `env:"SEED_TIMEOUT" envDefault:"10s"`
	SeedAttempts   int           `env:"SEED_MAX_ATTEMPTS" envDefault:"2"`
	SeedBackoff    time.Duration `env:"SEED_BACKOFF" envDefault:"2s"`
	TOTPIssuer     string        `env:"TOTP_ISSUER" envDefault:"PKI2FA"`
	RepoDir        string        `env:"REPO_DIR" envDefault:"."`
	KeyBits        int           `env:"KEY_BITS" envDefault:"4096"`
	CronMirrorPath string        `env:"CRON_MIRROR_PATH"`

	EncryptedSeedPath string `env:"ENCRYPTED_SEED_PATH" envDefault:"/data/encrypted_seed.txt"`
	SeedPath          string `env:"SEED_PATH" envDefault:"/data/seed.txt"`
	CronLogPath       string `env:"CRON_LOG" envDefault:"/data/cron.log"`
	KeyDir            string `env:"KEY_DIR" envDefault:"/data/keys"`
	PrivateKeyName    string `env:"STUDENT_PRIVATE_KEY" envDefault:"student_private.pem"`
	PublicKeyName     string `env:"STUDENT_PUBLIC_KEY" envDefault:"student_public.pem"`
	InstructorPubPath string `env:"INSTRUCTOR_PUB_PATH" envDefault:"/data/instructor_public.pem"`

	ProofSigPath    string `env:"PROOF_SIG_PATH" envDefault:"/data/proof.sig"`
	ProofSigEncPath string `env:"PROOF_SIG_ENC_PATH" envDefault:"/data/proof.sig.enc"`
	ProofTarPath    string `env:"PROOF_TAR_PATH" envDefault:"/data/proof.tar.gz"`
	CommitHashPath  string `env:"COMMIT_HASH_PATH" envDefault:"/data/commit_hash.txt"`
	ProofReadmePath string `env:"PROOF_README_PATH" envDefault:"/data/README_proof.txt"`

	HTTP   httpserver.Config
	Verify ratelimiter.Config `envPrefix:"VERIFY_"`
}

func (c Config) PrivateKeyPath() string {
	return filepath.Join(c.KeyDir, c.PrivateKeyName)
}

func (c Config) PublicKeyPath() string {
	return filepath.Join(c.KeyDir, c.PublicKeyName)
}

func (c Config) ProofPaths() proof.Paths {
	return proof.Paths{
		CommitHash:         c.CommitHashPath,
		Signature:          c.ProofSigPath,
		EncryptedSignature: c.ProofSigEncPath,
		Summary:            c.ProofReadmePath,
		Archive:            c.ProofTarPath,
	}
}

// AccountName labels the enrollment entry in authenticator apps.
func (c Config) AccountName() string {
	if c.StudentID != "" {
		return c.StudentID
	}
	return serviceName
}

// newLogger builds the process logger. APP_ENV picks the defaults and
// LOG_LEVEL / LOG_FORMAT override them when set.
func newLogger(cfg Config, out io.Writer) (*slog.Logger, error) {
	opts := []logger.Option{
		logger.WithEnvironment(cfg.AppEnv, serviceName),
		logger.WithOutput(out),
		logger.WithContextExtractors(requestid.LoggerExtractor()),
	}
	if cfg.LogLevel != "" {
		level, err := logger.ParseLevel(cfg.LogLevel)
		if err != nil {
			return nil, err
		}
		opts = append(opts, logger.WithLevel(level))
	}
	if cfg.LogFormat != "" {
		format, err := logger.ParseFormat(cfg.LogFormat)
		if err != nil {
			return nil, err
		}
		opts = append(opts, logger.WithFormat(format))
	}
	return logger.New(opts...), nil
}

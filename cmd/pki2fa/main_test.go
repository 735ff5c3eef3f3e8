package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pki2fa/pkg/audit"
	"github.com/dmitrymomot/pki2fa/pkg/keys"
	"github.com/dmitrymomot/pki2fa/pkg/proof"
	"github.com/dmitrymomot/pki2fa/pkg/seed"
)

const testSeed = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

// setupEnv points every artifact at a temp dir. Tests using it cannot run in
// parallel because the configuration is read from the process environment.
func setupEnv(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	vars := map[string]string{
		"APP_ENV":             "development",
		"LOG_LEVEL":           "error",
		"STUDENT_ID":          "23A91A0542",
		"KEY_DIR":             filepath.Join(dir, "keys"),
		"ENCRYPTED_SEED_PATH": filepath.Join(dir, "encrypted_seed.txt"),
		"SEED_PATH":           filepath.Join(dir, "seed.txt"),
		"CRON_LOG":            filepath.Join(dir, "cron.log"),
		"CRON_MIRROR_PATH":    filepath.Join(dir, "cron", "last_code.txt"),
		"INSTRUCTOR_PUB_PATH": filepath.Join(dir, "instructor_public.pem"),
		"PROOF_SIG_PATH":      filepath.Join(dir, "proof.sig"),
		"PROOF_SIG_ENC_PATH":  filepath.Join(dir, "proof.sig.enc"),
		"PROOF_TAR_PATH":      filepath.Join(dir, "proof.tar.gz"),
		"COMMIT_HASH_PATH":    filepath.Join(dir, "commit_hash.txt"),
		"PROOF_README_PATH":   filepath.Join(dir, "README_proof.txt"),
	}
	for k, v := range vars {
		t.Setenv(k, v)
	}
	return dir
}

func runCmd(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code := run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_Usage(t *testing.T) {
	code, _, errOut := runCmd(t)
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "Usage:")

	code, out, _ := runCmd(t, "help")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "pki2fa proof-verify")

	code, _, errOut = runCmd(t, "bogus")
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "unknown command: bogus")
}

func TestRun_FlagErrors(t *testing.T) {
	setupEnv(t)

	code, _, _ := runCmd(t, "keygen", "-bits", "lots")
	assert.Equal(t, 2, code)

	code, _, _ = runCmd(t, "proof-verify", "extra")
	assert.Equal(t, 2, code)

	code, _, _ = runCmd(t, "decrypt-seed", "-in", "a", "-value", "b")
	assert.Equal(t, 2, code)
}

func TestRun_SeedAndProofLifecycle(t *testing.T) {
	dir := setupEnv(t)

	code, fp, errOut := runCmd(t, "keygen", "-bits", "2048")
	require.Equal(t, 0, code, errOut)
	assert.True(t, strings.HasPrefix(fp, "SHA256:"), fp)

	code, _, _ = runCmd(t, "keygen", "-bits", "2048")
	assert.Equal(t, 1, code, "existing keys are never overwritten")

	pub, err := keys.LoadPublicKey(filepath.Join(dir, "keys", "student_public.pem"))
	require.NoError(t, err)
	enc, err := seed.Encrypt(pub, []byte(testSeed))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "encrypted_seed.txt"), []byte(enc), 0o600))

	code, _, errOut = runCmd(t, "decrypt-seed")
	require.Equal(t, 0, code, errOut)
	stored, err := os.ReadFile(filepath.Join(dir, "seed.txt"))
	require.NoError(t, err)
	assert.Equal(t, testSeed, string(stored))

	code, out, errOut := runCmd(t, "log-code")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, " - 2FA Code: ")

	for _, path := range []string{filepath.Join(dir, "cron.log"), filepath.Join(dir, "cron", "last_code.txt")} {
		lines, err := audit.NewFileLog(path).Lines()
		require.NoError(t, err)
		assert.Equal(t, []string{strings.TrimSpace(out)}, lines, path)
	}

	code, out, errOut = runCmd(t, "uri")
	require.Equal(t, 0, code, errOut)
	assert.True(t, strings.HasPrefix(out, "otpauth://totp/PKI2FA:23A91A0542?"), out)

	instructor, err := rsa.GenerateKey(rand.Reader, 3072)
	require.NoError(t, err)
	instructorPEM, err := keys.EncodePublicKeyPEM(&instructor.PublicKey)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "instructor_public.pem"), instructorPEM, 0o644))

	code, out, errOut = runCmd(t, "proof", "-commit", "deadbeef")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, filepath.Join(dir, "proof.tar.gz")+"\n", out)

	archive, err := proof.ReadArchive(filepath.Join(dir, "proof.tar.gz"))
	require.NoError(t, err)
	commit, ok := archive.File("commit_hash.txt")
	require.True(t, ok)
	assert.Equal(t, "deadbeef", string(commit))

	code, out, errOut = runCmd(t, "proof-verify")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "signature valid for commit deadbeef\n", out)
}

func TestRun_ProofWithoutInstructorKeyWritesNothing(t *testing.T) {
	dir := setupEnv(t)

	code, _, errOut := runCmd(t, "keygen", "-bits", "2048")
	require.Equal(t, 0, code, errOut)

	code, _, _ = runCmd(t, "proof", "-commit", "deadbeef")
	assert.Equal(t, 1, code)

	for _, name := range []string{"proof.tar.gz", "proof.sig", "proof.sig.enc", "commit_hash.txt", "README_proof.txt"} {
		assert.NoFileExists(t, filepath.Join(dir, name))
	}
}

func TestRun_DecryptSeedWithoutCiphertext(t *testing.T) {
	dir := setupEnv(t)

	code, _, errOut := runCmd(t, "decrypt-seed")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "encrypted seed not provided")
	assert.NoFileExists(t, filepath.Join(dir, "seed.txt"))
}

func TestConfig_Defaults(t *testing.T) {
	t.Parallel()

	cfg := Config{KeyDir: "/data/keys", PrivateKeyName: "student_private.pem", PublicKeyName: "student_public.pem"}
	assert.Equal(t, "/data/keys/student_private.pem", cfg.PrivateKeyPath())
	assert.Equal(t, "/data/keys/student_public.pem", cfg.PublicKeyPath())
	assert.Equal(t, "pki2fa", cfg.AccountName())
}

func TestWriteFileAtomic(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "encrypted_seed.txt")
	require.NoError(t, writeFileAtomic(path, []byte("first"), 0o600))
	require.NoError(t, writeFileAtomic(path, []byte("second"), 0o600))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

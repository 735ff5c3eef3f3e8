package twofa_test

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pki2fa/pkg/audit"
	"github.com/dmitrymomot/pki2fa/pkg/keys"
	"github.com/dmitrymomot/pki2fa/pkg/ratelimiter"
	"github.com/dmitrymomot/pki2fa/pkg/seed"
	"github.com/dmitrymomot/pki2fa/svc/twofa"
)

const (
	testSeed = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"
	testCode = "406395" // testSeed at testTime
)

var (
	testTime = time.Unix(1700000000, 0)

	loadKey = sync.OnceValues(func() (*rsa.PrivateKey, error) {
		return rsa.GenerateKey(rand.Reader, 2048)
	})
)

type fixture struct {
	svc       *twofa.Service
	server    *httptest.Server
	store     *seed.FileStore
	auditLog  *audit.FileLog
	key       *rsa.PrivateKey
	encSeed   string
	clientCfg twofa.Config
}

func newFixture(t *testing.T, opts ...twofa.Option) *fixture {
	t.Helper()

	key, err := loadKey()
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "keys", "student_private.pem")
	require.NoError(t, os.MkdirAll(filepath.Dir(privPath), 0o700))
	require.NoError(t, os.WriteFile(privPath, keys.EncodePrivateKeyPEM(key), 0o600))

	cfg := twofa.Config{
		PrivateKeyPath:    privPath,
		EncryptedSeedPath: filepath.Join(dir, "encrypted_seed.txt"),
		Issuer:            "PKI2FA",
		AccountName:       "23A91A0542",
	}
	store := seed.NewFileStore(filepath.Join(dir, "seed.txt"))
	auditLog := audit.NewFileLog(filepath.Join(dir, "cron.log"))
	clock := func() time.Time { return testTime }

	opts = append([]twofa.Option{twofa.WithClock(clock)}, opts...)
	svc := twofa.New(cfg, store, audit.NewLogger(auditLog, audit.WithClock(clock)), opts...)

	srv := httptest.NewServer(svc.Handle())
	t.Cleanup(srv.Close)

	enc, err := seed.Encrypt(&key.PublicKey, []byte(testSeed))
	require.NoError(t, err)

	return &fixture{
		svc:       svc,
		server:    srv,
		store:     store,
		auditLog:  auditLog,
		key:       key,
		encSeed:   enc,
		clientCfg: cfg,
	}
}

func (f *fixture) storeSeed(t *testing.T) {
	t.Helper()
	s, err := seed.Validate(testSeed)
	require.NoError(t, err)
	require.NoError(t, f.store.Save(s))
}

type result struct {
	status int
	header http.Header
	body   []byte
}

func (r result) json(t *testing.T) map[string]any {
	t.Helper()
	var got map[string]any
	require.NoError(t, json.Unmarshal(r.body, &got), string(r.body))
	return got
}

func (f *fixture) do(t *testing.T, method, path, body string) result {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(context.Background(), method, f.server.URL+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := f.server.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return result{status: resp.StatusCode, header: resp.Header, body: data}
}

func TestHealth(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	res := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, map[string]any{"status": "ok"}, res.json(t))
	assert.NotEmpty(t, res.header.Get("X-Request-ID"))
}

func TestReady(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	res := f.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, res.status)

	f.storeSeed(t)
	res = f.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, map[string]any{"status": "ready"}, res.json(t))
}

func TestDecryptSeed_FromBody(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	res := f.do(t, http.MethodPost, "/decrypt-seed", `{"encrypted_seed":"`+f.encSeed+`"}`)
	require.Equal(t, http.StatusOK, res.status, string(res.body))
	assert.Equal(t, map[string]any{"status": "ok"}, res.json(t))

	stored, err := f.store.Load()
	require.NoError(t, err)
	assert.Equal(t, testSeed, stored.String())
}

func TestDecryptSeed_FallsBackToFile(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	require.NoError(t, os.WriteFile(f.clientCfg.EncryptedSeedPath, []byte(f.encSeed+"\n"), 0o600))

	for _, body := range []string{"", `{}`, `{"encrypted_seed":"  "}`} {
		res := f.do(t, http.MethodPost, "/decrypt-seed", body)
		require.Equal(t, http.StatusOK, res.status, "body %q: %s", body, res.body)
	}
	assert.True(t, f.store.Exists())
}

func TestDecryptSeed_Errors(t *testing.T) {
	t.Parallel()

	key, err := loadKey()
	require.NoError(t, err)
	notASeed, err := seed.Encrypt(&key.PublicKey, []byte("definitely not a hex seed"))
	require.NoError(t, err)
	garbage := base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{0x42}, key.Size()))

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantDetail string
	}{
		{
			name:       "no body and no file",
			wantStatus: http.StatusBadRequest,
			wantDetail: "Missing encrypted seed (provide in body or store in encrypted_seed.txt)",
		},
		{
			name:       "invalid base64",
			body:       `{"encrypted_seed":"***"}`,
			wantStatus: http.StatusBadRequest,
			wantDetail: "Encrypted seed is not valid Base64",
		},
		{
			name:       "undecryptable ciphertext",
			body:       `{"encrypted_seed":"` + garbage + `"}`,
			wantStatus: http.StatusInternalServerError,
			wantDetail: "Decryption failed",
		},
		{
			name:       "plaintext is not a seed",
			body:       `{"encrypted_seed":"` + notASeed + `"}`,
			wantStatus: http.StatusInternalServerError,
			wantDetail: "Decryption failed",
		},
		{
			name:       "malformed json",
			body:       `{"encrypted_seed":`,
			wantStatus: http.StatusBadRequest,
			wantDetail: "Invalid request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f := newFixture(t)

			res := f.do(t, http.MethodPost, "/decrypt-seed", tt.body)
			assert.Equal(t, tt.wantStatus, res.status)
			assert.Equal(t, map[string]any{"detail": tt.wantDetail}, res.json(t))
			assert.False(t, f.store.Exists(), "no seed is stored on failure")
		})
	}
}

func TestDecryptSeed_MissingPrivateKey(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	require.NoError(t, os.Remove(f.clientCfg.PrivateKeyPath))

	err := f.svc.DecryptSeed(context.Background(), f.encSeed)
	require.ErrorIs(t, err, twofa.ErrSeedDecryption)
	assert.ErrorIs(t, err, keys.ErrKeyNotFound)
}

func TestGenerate(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.storeSeed(t)

	want := map[string]any{
		"code":       testCode,
		"totp":       testCode,
		"valid_for":  float64(10),
		"expires_in": float64(10),
	}
	for _, path := range []string{"/generate-2fa", "/generate-totp"} {
		res := f.do(t, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, res.status, path)
		assert.Equal(t, want, res.json(t), path)
	}

	lines, err := f.auditLog.Lines()
	require.NoError(t, err)
	assert.Empty(t, lines, "plain generation is not audited")
}

func TestGenerate_SeedStateErrors(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	res := f.do(t, http.MethodGet, "/generate-2fa", "")
	assert.Equal(t, http.StatusInternalServerError, res.status)
	assert.Equal(t, map[string]any{"detail": "Seed not decrypted yet"}, res.json(t))

	require.NoError(t, os.WriteFile(f.store.Path(), []byte(strings.Repeat("g", 64)), 0o600))
	res = f.do(t, http.MethodGet, "/generate-totp", "")
	assert.Equal(t, http.StatusInternalServerError, res.status)
	assert.Equal(t, map[string]any{"detail": "Stored seed is invalid"}, res.json(t))
}

func TestRunTOTP_AppendsAuditLine(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.storeSeed(t)

	res := f.do(t, http.MethodPost, "/run-totp", "")
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, testCode, res.json(t)["code"])

	lines, err := f.auditLog.Lines()
	require.NoError(t, err)
	assert.Equal(t, []string{"2023-11-14 22:13:20 - 2FA Code: " + testCode}, lines)
}

func TestVerify2FA(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.storeSeed(t)

	res := f.do(t, http.MethodPost, "/verify-2fa", `{"code":" `+testCode+` "}`)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, map[string]any{"valid": true, "verified": true}, res.json(t))

	res = f.do(t, http.MethodPost, "/verify-2fa", `{"totp":"`+testCode+`"}`)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, map[string]any{"valid": true, "verified": true}, res.json(t))

	res = f.do(t, http.MethodPost, "/verify-2fa", `{"code":"abcdef"}`)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, map[string]any{"valid": false, "verified": false}, res.json(t))

	lines, err := f.auditLog.Lines()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"verify " + testCode + " => True",
		"verify " + testCode + " => True",
		"verify abcdef => False",
	}, lines)
}

func TestVerify2FA_MissingCode(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.storeSeed(t)

	for _, body := range []string{"", `{}`, `{"code":"   "}`} {
		res := f.do(t, http.MethodPost, "/verify-2fa", body)
		assert.Equal(t, http.StatusBadRequest, res.status, "body %q", body)
		assert.Equal(t, map[string]any{"detail": "Missing code"}, res.json(t))
	}

	lines, err := f.auditLog.Lines()
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestVerifyAlias(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.storeSeed(t)

	res := f.do(t, http.MethodPost, "/verify", `{"totp":"`+testCode+`"}`)
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, map[string]any{"verified": true}, res.json(t))

	res = f.do(t, http.MethodPost, "/verify", `{"code":"`+testCode+`"}`)
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Equal(t, map[string]any{"detail": "Missing totp"}, res.json(t))
}

func TestVerify_WindowTolerance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		at   int64
		want bool
	}{
		{at: 1700000000, want: true},
		{at: 1700000029, want: true},
		{at: 1700000061, want: false},
	}

	for _, tt := range tests {
		f := newFixture(t, twofa.WithClock(func() time.Time { return time.Unix(tt.at, 0) }))
		f.storeSeed(t)

		ok, err := f.svc.Verify(context.Background(), testCode)
		require.NoError(t, err)
		assert.Equal(t, tt.want, ok, "t=%d", tt.at)
	}
}

func TestVerify_RateLimited(t *testing.T) {
	t.Parallel()

	limiter, err := ratelimiter.New(ratelimiter.Config{RatePerSecond: 0.001, Burst: 1})
	require.NoError(t, err)
	f := newFixture(t, twofa.WithVerifyLimiter(limiter))
	f.storeSeed(t)

	res := f.do(t, http.MethodPost, "/verify-2fa", `{"code":"`+testCode+`"}`)
	require.Equal(t, http.StatusOK, res.status)

	res = f.do(t, http.MethodPost, "/verify", `{"totp":"`+testCode+`"}`)
	assert.Equal(t, http.StatusTooManyRequests, res.status)
	assert.Equal(t, map[string]any{"detail": "Too many requests"}, res.json(t))
	assert.NotEmpty(t, res.header.Get("Retry-After"))

	res = f.do(t, http.MethodGet, "/generate-2fa", "")
	assert.Equal(t, http.StatusOK, res.status, "generation is not limited")
}

func TestEnrollPNG(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	res := f.do(t, http.MethodGet, "/enroll.png", "")
	assert.Equal(t, http.StatusInternalServerError, res.status)

	f.storeSeed(t)
	res = f.do(t, http.MethodGet, "/enroll.png?size=128", "")
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, "image/png", res.header.Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(res.body, []byte("\x89PNG")))

	res = f.do(t, http.MethodGet, "/enroll.png?size=big", "")
	assert.Equal(t, http.StatusBadRequest, res.status)
}

func TestEnrollmentURI(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.storeSeed(t)

	uri, err := f.svc.EnrollmentURI(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "otpauth://totp/PKI2FA:23A91A0542?"), uri)
	assert.Contains(t, uri, "secret=AERUKZ4JVPG66AJDIVTYTK6N54ASGRLHRGV433YBENCWPCNLZXXQ")
}

func TestMetrics(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.storeSeed(t)

	f.do(t, http.MethodGet, "/generate-2fa", "")
	f.do(t, http.MethodPost, "/verify-2fa", `{"code":"`+testCode+`"}`)
	f.do(t, http.MethodPost, "/verify-2fa", `{"code":"abcdef"}`)

	res := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, res.status)
	body := string(res.body)
	assert.Contains(t, body, "pki2fa_codes_generated_total 1")
	assert.Contains(t, body, `pki2fa_verifications_total{result="valid"} 1`)
	assert.Contains(t, body, `pki2fa_verifications_total{result="invalid"} 1`)
}

func TestNew_PanicsOnNilDependencies(t *testing.T) {
	t.Parallel()

	store := seed.NewFileStore(filepath.Join(t.TempDir(), "seed.txt"))
	assert.Panics(t, func() { twofa.New(twofa.Config{}, nil, audit.NewLogger(audit.NewFileLog("x"))) })
	assert.Panics(t, func() { twofa.New(twofa.Config{}, store, nil) })
}

package audit_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pki2fa/pkg/audit"
)

func TestCodeLine(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 1, 2, 3, 4, 5, 999, time.FixedZone("UTC+2", 2*60*60))
	assert.Equal(t, "2025-01-02 01:04:05 - 2FA Code: 406395", audit.CodeLine(at, "406395"))
}

func TestVerifyLine(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "verify 406395 => True", audit.VerifyLine("406395", true))
	assert.Equal(t, "verify 000000 => False", audit.VerifyLine("000000", false))
}

func TestEvent_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		event   audit.Event
		wantErr bool
	}{
		{name: "code", event: audit.Event{Kind: audit.KindCode, Code: "123456"}},
		{name: "verify", event: audit.Event{Kind: audit.KindVerify, Code: "abc"}},
		{name: "verify empty code", event: audit.Event{Kind: audit.KindVerify}},
		{name: "unknown kind", event: audit.Event{Kind: "other", Code: "1"}, wantErr: true},
		{name: "code missing", event: audit.Event{Kind: audit.KindCode}, wantErr: true},
		{name: "multi line", event: audit.Event{Kind: audit.KindVerify, Code: "1\n2"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.event.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, audit.ErrEventValidation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLogger_WritesLines(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "logs", "cron.log")
	mirror := filepath.Join(dir, "cron", "last_code.txt")
	fileLog := audit.NewFileLog(path, mirror, "")

	clock := func() time.Time { return time.Unix(1700000000, 0) }
	l := audit.NewLogger(fileLog, audit.WithClock(clock))

	line, err := l.LogCode(context.Background(), "406395")
	require.NoError(t, err)
	assert.Equal(t, "2023-11-14 22:13:20 - 2FA Code: 406395", line)

	require.NoError(t, l.LogVerify(context.Background(), "406395", true))
	require.NoError(t, l.LogVerify(context.Background(), "111111", false))

	lines, err := fileLog.Lines()
	require.NoError(t, err)
	assert.Equal(t, []string{
		"2023-11-14 22:13:20 - 2FA Code: 406395",
		"verify 406395 => True",
		"verify 111111 => False",
	}, lines)

	mirrored, err := os.ReadFile(mirror)
	require.NoError(t, err)
	assert.Equal(t,
		"2023-11-14 22:13:20 - 2FA Code: 406395\nverify 406395 => True\nverify 111111 => False\n",
		string(mirrored))
}

func TestLogger_RejectsInvalidEvent(t *testing.T) {
	t.Parallel()

	fileLog := audit.NewFileLog(filepath.Join(t.TempDir(), "cron.log"))
	l := audit.NewLogger(fileLog)

	err := l.LogVerify(context.Background(), "12\n34", false)
	require.ErrorIs(t, err, audit.ErrEventValidation)

	lines, err := fileLog.Lines()
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestFileLog_AppendsAcrossInstances(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cron.log")
	require.NoError(t, os.WriteFile(path, []byte("existing\n"), 0o644))

	require.NoError(t, audit.NewFileLog(path).Append(context.Background(), "first"))
	require.NoError(t, audit.NewFileLog(path).Append(context.Background(), "second"))

	lines, err := audit.NewFileLog(path).Lines()
	require.NoError(t, err)
	assert.Equal(t, []string{"existing", "first", "second"}, lines)
}

func TestFileLog_ConcurrentAppends(t *testing.T) {
	t.Parallel()

	fileLog := audit.NewFileLog(filepath.Join(t.TempDir(), "cron.log"))

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, fileLog.Append(context.Background(), audit.VerifyLine("123456", i%2 == 0)))
		}()
	}
	wg.Wait()

	lines, err := fileLog.Lines()
	require.NoError(t, err)
	require.Len(t, lines, 50)
	for _, line := range lines {
		assert.Contains(t, []string{"verify 123456 => True", "verify 123456 => False"}, line)
	}
}

func TestFileLog_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, nil, 0o600))

	primary := audit.NewFileLog(filepath.Join(blocker, "cron.log"))
	err := primary.Append(context.Background(), "line")
	assert.ErrorIs(t, err, audit.ErrStorageFailed)

	path := filepath.Join(dir, "cron.log")
	mirrored := audit.NewFileLog(path, filepath.Join(blocker, "mirror.txt"))
	err = mirrored.Append(context.Background(), "line")
	assert.ErrorIs(t, err, audit.ErrStorageFailed)

	lines, err := mirrored.Lines()
	require.NoError(t, err)
	assert.Equal(t, []string{"line"}, lines, "primary write survives a mirror failure")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = mirrored.Append(ctx, "late")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestFileLog_LinesMissingFile(t *testing.T) {
	t.Parallel()

	lines, err := audit.NewFileLog(filepath.Join(t.TempDir(), "none.log")).Lines()
	require.NoError(t, err)
	assert.Empty(t, lines)
}

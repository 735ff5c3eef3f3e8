package binder_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pki2fa/binder"
)

type seedRequest struct {
	EncryptedSeed string `json:"encrypted_seed"`
}

func jsonRequest(body, contentType string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	return r
}

func TestBindJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		req     *http.Request
		want    string
		wantErr error
	}{
		{
			name: "valid body",
			req:  jsonRequest(`{"encrypted_seed":"abc"}`, "application/json"),
			want: "abc",
		},
		{
			name: "content type with charset",
			req:  jsonRequest(`{"encrypted_seed":"abc"}`, "application/json; charset=utf-8"),
			want: "abc",
		},
		{
			name: "unknown fields are ignored",
			req:  jsonRequest(`{"encrypted_seed":"abc","extra":1}`, "application/json"),
			want: "abc",
		},
		{
			name:    "no body",
			req:     httptest.NewRequest(http.MethodPost, "/", nil),
			wantErr: binder.ErrBinderNotApplicable,
		},
		{
			name:    "whitespace body",
			req:     jsonRequest(" \n ", ""),
			wantErr: binder.ErrBinderNotApplicable,
		},
		{
			name:    "missing content type",
			req:     jsonRequest(`{"encrypted_seed":"abc"}`, ""),
			wantErr: binder.ErrMissingContentType,
		},
		{
			name:    "wrong content type",
			req:     jsonRequest(`{"encrypted_seed":"abc"}`, "text/plain"),
			wantErr: binder.ErrUnsupportedMediaType,
		},
		{
			name:    "malformed json",
			req:     jsonRequest(`{"encrypted_seed":`, "application/json"),
			wantErr: binder.ErrInvalidJSON,
		},
		{
			name:    "wrong field type",
			req:     jsonRequest(`{"encrypted_seed":42}`, "application/json"),
			wantErr: binder.ErrInvalidJSON,
		},
		{
			name:    "trailing data",
			req:     jsonRequest(`{"encrypted_seed":"a"}{"encrypted_seed":"b"}`, "application/json"),
			wantErr: binder.ErrInvalidJSON,
		},
		{
			name:    "too large",
			req:     jsonRequest(`{"encrypted_seed":"`+strings.Repeat("a", binder.MaxBodySize)+`"}`, "application/json"),
			wantErr: binder.ErrInvalidJSON,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var got seedRequest
			err := binder.BindJSON()(tt.req, &got)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.EncryptedSeed)
		})
	}
}

func TestBindQuery(t *testing.T) {
	t.Parallel()

	type request struct {
		Size     int    `query:"size"`
		Label    string `query:"label,omitempty"`
		Terminal bool   `query:"terminal"`
		Scale    uint8  `query:"scale"`
		Skipped  string `query:"-"`
		Untagged string
	}

	t.Run("binds tagged fields", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/enroll.png?size=300&label=alice&terminal=true&scale=2&Skipped=x&Untagged=y", nil)

		var got request
		require.NoError(t, binder.BindQuery()(r, &got))
		assert.Equal(t, request{Size: 300, Label: "alice", Terminal: true, Scale: 2}, got)
	})

	t.Run("absent parameters keep defaults", func(t *testing.T) {
		t.Parallel()
		r := httptest.NewRequest(http.MethodGet, "/enroll.png?size=", nil)

		got := request{Size: 256}
		require.NoError(t, binder.BindQuery()(r, &got))
		assert.Equal(t, 256, got.Size)
	})

	t.Run("invalid values", func(t *testing.T) {
		t.Parallel()
		for _, q := range []string{"size=big", "terminal=maybe", "scale=300", "scale=-1"} {
			var got request
			err := binder.BindQuery()(httptest.NewRequest(http.MethodGet, "/?"+q, nil), &got)
			assert.ErrorIs(t, err, binder.ErrInvalidQuery, q)
		}
	})

	t.Run("non-struct target", func(t *testing.T) {
		t.Parallel()
		var n int
		err := binder.BindQuery()(httptest.NewRequest(http.MethodGet, "/", nil), &n)
		assert.ErrorIs(t, err, binder.ErrInvalidQuery)
	})
}

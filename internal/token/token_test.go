// Copyright (c) 2025 Casedesk
// Licensed under the MIT License. See LICENSE file in the project root for details.

package token

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// signed builds a structurally valid token with the given claims.
func signed(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func TestValidate(t *testing.T) {
	valid := signed(t, jwt.RegisteredClaims{
		Subject:   "user-1",
		IssuedAt:  jwt.NewNumericDate(testNow.Add(-time.Hour)),
		ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
	})

	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{
			name: "valid token",
			raw:  valid,
			want: true,
		},
		{
			name: "empty string",
			raw:  "",
			want: false,
		},
		{
			name: "two segments",
			raw:  "abc.def",
			want: false,
		},
		{
			name: "four segments",
			raw:  "a.b.c.d",
			want: false,
		},
		{
			name: "payload not base64",
			raw:  "aGVhZGVy.!!!not-base64!!!.c2ln",
			want: false,
		},
		{
			name: "payload not json",
			raw:  "aGVhZGVy.bm90LWpzb24.c2ln",
			want: false,
		},
		{
			name: "missing subject",
			raw: signed(t, jwt.RegisteredClaims{
				IssuedAt:  jwt.NewNumericDate(testNow.Add(-time.Hour)),
				ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
			}),
			want: false,
		},
		{
			name: "missing issued-at",
			raw: signed(t, jwt.RegisteredClaims{
				Subject:   "user-1",
				ExpiresAt: jwt.NewNumericDate(testNow.Add(time.Hour)),
			}),
			want: false,
		},
		{
			name: "missing expiry",
			raw: signed(t, jwt.RegisteredClaims{
				Subject:  "user-1",
				IssuedAt: jwt.NewNumericDate(testNow.Add(-time.Hour)),
			}),
			want: false,
		},
		{
			name: "expired",
			raw: signed(t, jwt.RegisteredClaims{
				Subject:   "user-1",
				IssuedAt:  jwt.NewNumericDate(testNow.Add(-2 * time.Hour)),
				ExpiresAt: jwt.NewNumericDate(testNow.Add(-time.Minute)),
			}),
			want: false,
		},
		{
			name: "expiry exactly now",
			raw: signed(t, jwt.RegisteredClaims{
				Subject:   "user-1",
				IssuedAt:  jwt.NewNumericDate(testNow.Add(-time.Hour)),
				ExpiresAt: jwt.NewNumericDate(testNow),
			}),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims, ok := Validate(tt.raw, testNow)
			assert.Equal(t, tt.want, ok)
			if tt.want {
				assert.Equal(t, "user-1", claims.Subject)
				assert.True(t, claims.ExpiresAt.After(testNow))
			}
		})
	}
}

func TestValidateDecodesClaims(t *testing.T) {
	issued := testNow.Add(-30 * time.Minute)
	expires := testNow.Add(30 * time.Minute)
	raw := signed(t, jwt.RegisteredClaims{
		Subject:   "user-42",
		IssuedAt:  jwt.NewNumericDate(issued),
		ExpiresAt: jwt.NewNumericDate(expires),
	})

	claims, ok := Validate(raw, testNow)
	require.True(t, ok)
	assert.Equal(t, "user-42", claims.Subject)
	assert.Equal(t, issued.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, expires.Unix(), claims.ExpiresAt.Unix())
}

func TestStale(t *testing.T) {
	tests := []struct {
		name   string
		issued time.Time
		maxAge time.Duration
		want   bool
	}{
		{
			name:   "fresh token",
			issued: testNow.Add(-time.Hour),
			maxAge: 12 * time.Hour,
			want:   false,
		},
		{
			name:   "older than max age",
			issued: testNow.Add(-13 * time.Hour),
			maxAge: 12 * time.Hour,
			want:   true,
		},
		{
			name:   "zero max age disables the check",
			issued: testNow.Add(-100 * time.Hour),
			maxAge: 0,
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Claims{Subject: "user-1", IssuedAt: tt.issued, ExpiresAt: testNow.Add(time.Hour)}
			assert.Equal(t, tt.want, Stale(c, testNow, tt.maxAge))
		})
	}
}

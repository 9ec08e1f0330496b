package auth

import (
	"context"
	"errors"
	"testing"
)

func stubAuth(name, header string, result *AuthResult, err error) *AuthenticatorFunc {
	return NewAuthenticatorFunc(name,
		func(_ context.Context, req *AuthRequest) bool { return req.GetHeader(header) != "" },
		func(context.Context, *AuthRequest) (*AuthResult, error) { return result, err },
	)
}

func TestCompositeAuthenticator(t *testing.T) {
	ok := AuthSuccess(&Identity{Principal: "p", Method: AuthMethodAPIKey})
	rejected := AuthFailure(ErrInvalidCredentials, "jwt")
	missing := AuthFailure(ErrMissingCredentials, "api_key")
	boom := errors.New("backend down")

	tests := []struct {
		name       string
		auths      []Authenticator
		req        *AuthRequest
		wantOK     bool
		wantErr    error
		wantResErr error
	}{
		{
			name:       "empty chain",
			req:        &AuthRequest{},
			wantResErr: ErrMissingCredentials,
		},
		{
			name:       "no supporting authenticator",
			auths:      []Authenticator{stubAuth("a", "X-A", ok, nil)},
			req:        &AuthRequest{Headers: headers("X-B", "1")},
			wantResErr: ErrMissingCredentials,
		},
		{
			name:   "first success wins",
			auths:  []Authenticator{stubAuth("a", "X-A", rejected, nil), stubAuth("b", "X-B", ok, nil)},
			req:    &AuthRequest{Headers: headers("X-A", "1", "X-B", "1")},
			wantOK: true,
		},
		{
			name:       "rejection beats missing",
			auths:      []Authenticator{stubAuth("a", "X-A", rejected, nil), stubAuth("b", "X-B", missing, nil)},
			req:        &AuthRequest{Headers: headers("X-A", "1", "X-B", "1")},
			wantResErr: ErrInvalidCredentials,
		},
		{
			name:       "missing then rejection",
			auths:      []Authenticator{stubAuth("a", "X-A", missing, nil), stubAuth("b", "X-B", rejected, nil)},
			req:        &AuthRequest{Headers: headers("X-A", "1", "X-B", "1")},
			wantResErr: ErrInvalidCredentials,
		},
		{
			name:    "internal error stops chain",
			auths:   []Authenticator{stubAuth("a", "X-A", nil, boom), stubAuth("b", "X-B", ok, nil)},
			req:     &AuthRequest{Headers: headers("X-A", "1", "X-B", "1")},
			wantErr: boom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCompositeAuthenticator(tt.auths...)
			result, err := c.Authenticate(context.Background(), tt.req)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if result.Authenticated != tt.wantOK {
				t.Fatalf("Authenticated = %v, want %v", result.Authenticated, tt.wantOK)
			}
			if tt.wantResErr != nil && !errors.Is(result.Error, tt.wantResErr) {
				t.Errorf("result.Error = %v, want %v", result.Error, tt.wantResErr)
			}
		})
	}
}

func TestCompositeAuthenticator_DropsNil(t *testing.T) {
	c := NewCompositeAuthenticator(nil, stubAuth("a", "X-A", nil, nil), nil)
	if len(c.Authenticators) != 1 {
		t.Errorf("len = %d, want 1", len(c.Authenticators))
	}
	if c.Name() != "composite" {
		t.Errorf("Name() = %q", c.Name())
	}
	if !c.Supports(context.Background(), &AuthRequest{Headers: headers("X-A", "1")}) {
		t.Error("Supports() should delegate")
	}
}

package auth

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
)

func TestClaims_IsAdmin(t *testing.T) {
	tests := []struct {
		name   string
		groups []string
		want   bool
	}{
		{"no groups", nil, false},
		{"other groups", []string{"users", "beta"}, false},
		{"admin group", []string{"admin"}, true},
		{"admin among others", []string{"users", "admin"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Claims{Groups: tt.groups}
			if got := c.IsAdmin(); got != tt.want {
				t.Errorf("IsAdmin() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestUserIDFromContext(t *testing.T) {
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "sub-1"}}
	ctx := context.WithValue(context.Background(), ClaimsKey, claims)

	id, ok := UserIDFromContext(ctx)
	if !ok || id != "sub-1" {
		t.Errorf("expected sub-1, got %q (ok=%v)", id, ok)
	}

	if _, ok := UserIDFromContext(context.Background()); ok {
		t.Error("expected no user id in empty context")
	}

	empty := context.WithValue(context.Background(), ClaimsKey, &Claims{})
	if _, ok := UserIDFromContext(empty); ok {
		t.Error("expected no user id for claims without subject")
	}
}

package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret-key-at-least-32-characters-long"

func TestGenerateAndParseToken(t *testing.T) {
	token, err := GenerateToken("ops", RoleOperator, testSecret, time.Minute)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "ops" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "ops")
	}
	if claims.Role != RoleOperator {
		t.Errorf("Role = %q, want %q", claims.Role, RoleOperator)
	}
	if claims.ID == "" {
		t.Error("JTI (ID) should not be empty")
	}
}

func TestGenerateToken_DefaultTTL(t *testing.T) {
	token, err := GenerateToken("ops", RoleViewer, testSecret, 0)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	claims, err := ParseToken(token, testSecret)
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	ttl := claims.ExpiresAt.Sub(claims.IssuedAt.Time)
	if ttl != DefaultTokenTTL {
		t.Errorf("token ttl = %v, want %v", ttl, DefaultTokenTTL)
	}
}

func TestParseToken_Rejects(t *testing.T) {
	signed := func(t *testing.T, claims jwt.Claims, method jwt.SigningMethod, key any) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("SignedString() error = %v", err)
		}
		return s
	}
	future := jwt.NewNumericDate(time.Now().Add(time.Minute))
	past := jwt.NewNumericDate(time.Now().Add(-time.Minute))

	tests := []struct {
		name  string
		token func(t *testing.T) string
	}{
		{"garbage", func(*testing.T) string { return "not-a-valid-jwt" }},
		{"wrong secret", func(t *testing.T) string {
			return signed(t, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "ops", ExpiresAt: future}, Role: RoleViewer},
				jwt.SigningMethodHS256, []byte("another-secret-key-at-least-32-characters"))
		}},
		{"expired", func(t *testing.T) string {
			return signed(t, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "ops", ExpiresAt: past}, Role: RoleViewer},
				jwt.SigningMethodHS256, []byte(testSecret))
		}},
		{"no expiry", func(t *testing.T) string {
			return signed(t, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "ops"}, Role: RoleViewer},
				jwt.SigningMethodHS256, []byte(testSecret))
		}},
		{"missing subject", func(t *testing.T) string {
			return signed(t, Claims{RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: future}, Role: RoleViewer},
				jwt.SigningMethodHS256, []byte(testSecret))
		}},
		{"unknown role", func(t *testing.T) string {
			return signed(t, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "ops", ExpiresAt: future}, Role: "root"},
				jwt.SigningMethodHS256, []byte(testSecret))
		}},
		{"wrong method", func(t *testing.T) string {
			return signed(t, Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "ops", ExpiresAt: future}, Role: RoleViewer},
				jwt.SigningMethodHS512, []byte(testSecret))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseToken(tt.token(t), testSecret); !errors.Is(err, ErrTokenInvalid) {
				t.Errorf("ParseToken() error = %v, want ErrTokenInvalid", err)
			}
		})
	}
}

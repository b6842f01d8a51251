package auth

import (
	"errors"
	"testing"
	"time"
)

func TestGenerateAndValidateToken(t *testing.T) {
	m := NewManager("test-secret", time.Hour, "dispensary")
	token, err := m.GenerateToken(7, 3, "nurse", RoleStaff)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != 7 || claims.ClinicID != 3 || claims.Role != RoleStaff {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.IsAdmin() {
		t.Fatalf("staff must not be admin")
	}
}

func TestValidateTokenRejects(t *testing.T) {
	m := NewManager("test-secret", time.Hour, "dispensary")
	other := NewManager("other-secret", time.Hour, "dispensary")
	expired := NewManager("test-secret", time.Nanosecond, "dispensary")

	wrongKey, _ := other.GenerateToken(1, 1, "x", RoleStaff)
	noClinic, _ := m.GenerateToken(1, 0, "x", RoleStaff)
	old, _ := expired.GenerateToken(1, 1, "x", RoleStaff)
	time.Sleep(10 * time.Millisecond)

	for name, token := range map[string]string{
		"garbage":   "not-a-token",
		"wrong key": wrongKey,
		"no clinic": noClinic,
		"expired":   old,
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := m.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}

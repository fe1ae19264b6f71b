package auth_test

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/chopbox/api/internal/auth"
)

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret"
	institutionID := uuid.New()
	branchID := uuid.New()
	role := "KITCHEN"

	token, err := auth.GenerateToken(secret, institutionID, branchID, role, time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := auth.ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}

	if claims.InstitutionID != institutionID {
		t.Errorf("institution ID: got %v, want %v", claims.InstitutionID, institutionID)
	}
	if claims.BranchID != branchID {
		t.Errorf("branch ID: got %v, want %v", claims.BranchID, branchID)
	}
	if claims.Role != role {
		t.Errorf("role: got %v, want %v", claims.Role, role)
	}
}

func TestValidateTokenWithWrongSecret(t *testing.T) {
	token, err := auth.GenerateToken("secret-a", uuid.New(), uuid.Nil, "CASHIER", time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	if _, err := auth.ValidateToken("secret-b", token); err == nil {
		t.Fatal("expected error validating with wrong secret")
	}
}

func TestValidateExpiredToken(t *testing.T) {
	token, err := auth.GenerateToken("secret", uuid.New(), uuid.Nil, "CASHIER", -time.Minute)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := auth.ValidateToken("secret", token); err == nil {
		t.Fatal("expected error validating expired token")
	}
}

func TestValidateTokenWithoutInstitution(t *testing.T) {
	token, err := auth.GenerateToken("secret", uuid.Nil, uuid.Nil, "CASHIER", time.Hour)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := auth.ValidateToken("secret", token); err == nil {
		t.Fatal("expected error for token without institution")
	}
}

func TestValidateTokenWithInvalidString(t *testing.T) {
	if _, err := auth.ValidateToken("secret", "not-a-jwt"); err == nil {
		t.Fatal("expected error validating invalid token string")
	}
}

func TestSplitCode(t *testing.T) {
	tests := []struct {
		code    string
		want    string
		wantErr bool
	}{
		{"kitch-8f3a2c", "KITCH", false},
		{"  POS1-secret-with-dash ", "POS1", false},
		{"nodash", "", true},
		{"-secret", "", true},
		{"PREFIX-", "", true},
	}
	for _, tt := range tests {
		got, err := auth.SplitCode(tt.code)
		if tt.wantErr {
			if err == nil {
				t.Errorf("SplitCode(%q): expected error", tt.code)
			}
			continue
		}
		if err != nil {
			t.Errorf("SplitCode(%q): %v", tt.code, err)
			continue
		}
		if got != tt.want {
			t.Errorf("SplitCode(%q): got %q, want %q", tt.code, got, tt.want)
		}
	}
}

func TestHashAndCheckCode(t *testing.T) {
	hash, err := auth.HashCode("KITCH-8f3a2c")
	if err != nil {
		t.Fatalf("hash code: %v", err)
	}
	if !auth.CheckCode(hash, "KITCH-8f3a2c") {
		t.Error("expected code to match its hash")
	}
	if auth.CheckCode(hash, "KITCH-000000") {
		t.Error("expected wrong code to be rejected")
	}
}

package authtoken

import (
	"context"
	"testing"
	"time"
)

func TestManager_IssueAndValidate(t *testing.T) {
	secret := "test-secret-key-must-be-at-least-32-characters-long"
	m, err := NewManager(secret, 15*time.Minute)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	tests := []struct {
		name      string
		masterID  string
		wantError bool
	}{
		{name: "valid master id", masterID: "master-1", wantError: false},
		{name: "empty master id rejected", masterID: "", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := m.IssueToken(tt.masterID)
			if tt.wantError {
				if err == nil {
					t.Fatalf("expected error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			claims, err := m.ValidateToken(context.Background(), token)
			if err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
			if claims.MasterID != tt.masterID {
				t.Fatalf("expected master id %q, got %q", tt.masterID, claims.MasterID)
			}
		})
	}
}

func TestManager_RejectsShortSecret(t *testing.T) {
	if _, err := NewManager("too-short", time.Minute); err != ErrShortSecret {
		t.Fatalf("expected ErrShortSecret, got %v", err)
	}
}

func TestManager_RejectsExpiredToken(t *testing.T) {
	secret := "test-secret-key-must-be-at-least-32-characters-long"
	m, err := NewManager(secret, -time.Minute)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	token, err := m.IssueToken("master-1")
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}

	if _, err := m.ValidateToken(context.Background(), token); err != ErrExpiredToken {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestManager_RejectsTamperedToken(t *testing.T) {
	secret := "test-secret-key-must-be-at-least-32-characters-long"
	m, err := NewManager(secret, time.Minute)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	token, err := m.IssueToken("master-1")
	if err != nil {
		t.Fatalf("unexpected error issuing token: %v", err)
	}

	tampered := token + "x"
	if _, err := m.ValidateToken(context.Background(), tampered); err == nil {
		t.Fatalf("expected tampered token to be rejected")
	}
}

package models

import (
	"testing"
)

func TestCreateUser(t *testing.T) {
	u, err := CreateUser("alice", "alice@example.com", "secret99")
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if u.Role != ROLE_USER {
		t.Errorf("expected role %q, got %q", ROLE_USER, u.Role)
	}
	if u.Status != STATUS_INACTIVE {
		t.Errorf("expected status %q, got %q", STATUS_INACTIVE, u.Status)
	}
	if u.Credits != DefaultSignupCredits {
		t.Errorf("expected %d signup credits, got %d", DefaultSignupCredits, u.Credits)
	}
	if u.ActivationToken == "" {
		t.Error("expected an activation token")
	}
	if u.Password == "secret99" {
		t.Error("password stored in plain text")
	}
	if !CheckPasswordHash("secret99", u.Password) {
		t.Error("stored hash does not verify against the original password")
	}
	if CheckPasswordHash("wrong", u.Password) {
		t.Error("wrong password verified")
	}
}

func TestCreateUserValidation(t *testing.T) {
	tests := []struct {
		name     string
		username string
		email    string
		password string
	}{
		{name: "short name", username: "ab", email: "a@example.com", password: "secret99"},
		{name: "bad email", username: "alice", email: "not-an-email", password: "secret99"},
		{name: "short password", username: "alice", email: "a@example.com", password: "12345"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := CreateUser(tc.username, tc.email, tc.password); err == nil {
				t.Fatal("expected a validation error")
			}
		})
	}
}

func TestIsSubscribed(t *testing.T) {
	status := func(s string) *string { return &s }

	tests := []struct {
		name   string
		status *string
		want   bool
	}{
		{name: "never subscribed", status: nil, want: false},
		{name: "active", status: status(SubscriptionStatusActive), want: true},
		{name: "cancel at period end", status: status(SubscriptionStatusCancelAtPeriodEnd), want: true},
		{name: "past due", status: status(SubscriptionStatusPastDue), want: false},
		{name: "deleted", status: status(SubscriptionStatusDeleted), want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			u := &User{SubscriptionStatus: tc.status}
			if got := u.IsSubscribed(); got != tc.want {
				t.Errorf("IsSubscribed() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestGenerateTokenIsUnique(t *testing.T) {
	a, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	b, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if a == b {
		t.Error("two generated tokens are identical")
	}
	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}

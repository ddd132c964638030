package auth

import (
	"context"
	"testing"

	"github.com/rowanvale/choreboard/internal/model"
)

func TestWithAuthAndFromContext(t *testing.T) {
	ac := AuthContext{
		UserID:         1,
		HouseholdID:    2,
		Role:           "admin",
		SessionID:      3,
		ActiveMemberID: 4,
		MemberRole:     model.RoleParent,
	}

	ctx := WithAuth(context.Background(), ac)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected AuthContext in context")
	}
	if got != ac {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}
}

func TestFromContextMissing(t *testing.T) {
	if _, ok := FromContext(context.Background()); ok {
		t.Error("expected false for missing AuthContext")
	}
	if HouseholdID(context.Background()) != 0 {
		t.Error("expected 0 household for missing context")
	}
	if IsParent(context.Background()) {
		t.Error("expected IsParent false for missing context")
	}
}

func TestIsParent(t *testing.T) {
	parent := WithAuth(context.Background(), AuthContext{MemberRole: model.RoleParent})
	child := WithAuth(context.Background(), AuthContext{MemberRole: model.RoleChild})

	if !IsParent(parent) {
		t.Error("expected IsParent true for parent role")
	}
	if IsParent(child) {
		t.Error("expected IsParent false for child role")
	}
}

func TestInviteRoundTrip(t *testing.T) {
	m := NewInviteManager("test-secret")

	token, err := m.GenerateInvite(42, "bob@example.com", "member")
	if err != nil {
		t.Fatalf("generate invite: %v", err)
	}

	claims, err := m.ValidateInvite(token)
	if err != nil {
		t.Fatalf("validate invite: %v", err)
	}
	if claims.HouseholdID != 42 {
		t.Errorf("household = %d, want 42", claims.HouseholdID)
	}
	if claims.Email != "bob@example.com" {
		t.Errorf("email = %q", claims.Email)
	}
	if claims.Role != "member" {
		t.Errorf("role = %q", claims.Role)
	}
}

func TestInviteWrongSecret(t *testing.T) {
	token, err := NewInviteManager("secret-a").GenerateInvite(1, "x@example.com", "member")
	if err != nil {
		t.Fatalf("generate invite: %v", err)
	}
	if _, err := NewInviteManager("secret-b").ValidateInvite(token); err == nil {
		t.Fatal("expected validation failure with the wrong secret")
	}
}

func TestInviteGarbageToken(t *testing.T) {
	if _, err := NewInviteManager("secret").ValidateInvite("not.a.token"); err == nil {
		t.Fatal("expected validation failure for garbage token")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if !CheckPassword(hash, "hunter2hunter2") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "wrong") {
		t.Error("wrong password accepted")
	}
}

func TestPINHashing(t *testing.T) {
	hash, err := HashPIN("4821")
	if err != nil {
		t.Fatalf("hash pin: %v", err)
	}
	if !CheckPIN(hash, "4821") {
		t.Error("correct PIN rejected")
	}
	if CheckPIN(hash, "0000") {
		t.Error("wrong PIN accepted")
	}
}

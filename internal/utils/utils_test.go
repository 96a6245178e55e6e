package utils

import (
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

func TestNewAccessTokenClaims(t *testing.T) {
	tok, err := NewAccessToken("secret", "operator", OperatorRole, 5)
	if err != nil {
		t.Fatal(err)
	}
	parsed, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) { return []byte("secret"), nil })
	if err != nil || !parsed.Valid {
		t.Fatalf("parse: %v", err)
	}
	claims := parsed.Claims.(jwt.MapClaims)
	if claims["sub"] != "operator" || claims["role"] != OperatorRole {
		t.Fatalf("claims %v", claims)
	}
	if _, err := jwt.Parse(tok.Token, func(*jwt.Token) (interface{}, error) { return []byte("other"), nil }); err == nil {
		t.Fatal("token verified with the wrong secret")
	}
}

func TestNewAccessTokenRejectsEmptySecret(t *testing.T) {
	if _, err := NewAccessToken("", "operator", OperatorRole, 5); !errors.Is(err, ErrEmptySecret) {
		t.Fatalf("got %v", err)
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter2", bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	if !VerifyPassword(hash, "hunter2") {
		t.Fatal("correct password rejected")
	}
	if VerifyPassword(hash, "hunter3") || VerifyPassword("not-a-hash", "hunter2") {
		t.Fatal("wrong password accepted")
	}
}

package utils

import (
	"strings"
	"testing"
)

func TestHashAndCheckPassword(t *testing.T) {
	hash, err := HashPassword("s3cret")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "s3cret" {
		t.Fatal("hash must not equal the plain secret")
	}
	if !CheckPassword(hash, "s3cret") {
		t.Fatal("correct secret rejected")
	}
	if CheckPassword(hash, "wrong") {
		t.Fatal("wrong secret accepted")
	}
}

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode(8)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(code) != 8 {
		t.Fatalf("length: got %d, want 8", len(code))
	}
	for _, r := range code {
		if !strings.ContainsRune(codeAlphabet, r) {
			t.Fatalf("character %q outside alphabet", r)
		}
	}
}

func TestSHA256Hex(t *testing.T) {
	got := SHA256Hex([]byte("abc"))
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Fatalf("got %s, want %s", got, want)
	}
}

// Package password implements memory-hard password hashing: hashed,
// never stored plaintext, minimum length 8, equal-time compare on
// verify. Grounded on an existing indirect golang.org/x/crypto
// dependency, promoted to direct, using the argon2id variant the Go
// ecosystem recommends for new code.
package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	MinLength = 8

	argonTime    = 1
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 4
	argonKeyLen  = 32
	saltLen      = 16
)

var ErrTooShort = errors.New("password: must be at least 8 characters")

// ValidatePolicy enforces the minimum password policy ahead of hashing.
func ValidatePolicy(plain string) error {
	if len(plain) < MinLength {
		return ErrTooShort
	}
	return nil
}

// Hash returns an argon2id hash encoded with its parameters and salt, in
// the conventional "$argon2id$v=19$m=...,t=...,p=...$salt$hash" form.
func Hash(plain string) (string, error) {
	if err := ValidatePolicy(plain); err != nil {
		return "", err
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("password: failed to generate salt: %w", err)
	}

	sum := argon2.IDKey([]byte(plain), salt, argonTime, argonMemory, argonThreads, argonKeyLen)

	encoded := fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		argonMemory, argonTime, argonThreads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum))
	return encoded, nil
}

// Verify performs an equal-time comparison between plain and an encoded hash.
func Verify(plain, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, errors.New("password: unrecognized hash format")
	}

	var mem uint32
	var t uint32
	var p uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &t, &p); err != nil {
		return false, fmt.Errorf("password: malformed params: %w", err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("password: malformed salt: %w", err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("password: malformed digest: %w", err)
	}

	got := argon2.IDKey([]byte(plain), salt, t, mem, p, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

// Package password wraps one-way hashing for file retrieval credentials.
package password

import "golang.org/x/crypto/bcrypt"

// Cost is the bcrypt work factor applied to new hashes.
const Cost = 10

// Hash derives a salted one-way hash from the plaintext credential.
func Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), Cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Matches reports whether candidate verifies against the stored hash.
func Matches(hash, candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(candidate)) == nil
}

package utils

import "golang.org/x/crypto/bcrypt"

// HashSecret returns a bcrypt hash using the given cost.  Used for team
// join codes and plugin keys; neither is ever stored in plaintext.
func HashSecret(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifySecret safely compares a bcrypt hash and a plain secret.
func VerifySecret(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

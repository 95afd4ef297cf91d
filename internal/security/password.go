package security

import "golang.org/x/crypto/bcrypt"

// dummyHash lets a login for an unknown e-mail cost the same as a wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("admissions-dummy-password"), bcrypt.DefaultCost)

// HashPassword hashes a plain text password with bcrypt.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// BurnCompare runs a comparison against a throwaway hash and discards the result.
func BurnCompare(plain string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plain))
}

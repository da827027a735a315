package testfakes

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token подписанный jwt с заданным exp, подпись боту не важна
func Token(exp time.Time) string {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
		Subject:   "test",
	})
	s, err := t.SignedString([]byte("test-secret"))
	if err != nil {
		panic(err)
	}
	return s
}

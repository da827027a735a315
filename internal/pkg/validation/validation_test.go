package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
)

type sample struct {
	URL    string `validate:"required,http_url"`
	Amount int    `validate:"gte=1"`
}

func TestStruct(t *testing.T) {
	assert.NoError(t, Struct(&sample{URL: "https://gdz.ru/class-7/algebra", Amount: 1}))

	err := Struct(&sample{URL: "gdz.ru", Amount: 0})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Contains(t, err.Error(), "URL failed http_url")
	assert.Contains(t, err.Error(), "Amount failed gte=1")
}

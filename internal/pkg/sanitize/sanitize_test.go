package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilename(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "cyrillic with spaces", input: "Алгебра 7 класс", want: "algebra-7-klass"},
		{name: "already latin", input: "Physics Book", want: "physics-book"},
		{name: "punctuation stripped", input: "Литература!!!", want: "literatura"},
		{name: "collapses whitespace", input: "  Алгебра \t  база ", want: "algebra-baza"},
		{name: "empty", input: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Filename(tt.input))
		})
	}
}

func TestObjectKey(t *testing.T) {
	assert.Equal(t, "42/7/algebra.pdf", ObjectKey(42, 7, "Алгебра", "Учебник.PDF"))
	assert.Equal(t, "1/2/book.bin", ObjectKey(1, 2, "!!!", "noext"))
}

func TestHTML_AllowList(t *testing.T) {
	in := `<b>Hi</b> <i>x</i> <u>y</u> <code>z</code> <div>there</div><script>alert(1)</script>`
	assert.Equal(t, `<b>Hi</b> <i>x</i> <u>y</u> <code>z</code> there`, HTML(in))
}

func TestHTML_KeepsLinks(t *testing.T) {
	in := `<a href="https://school.mos.ru" onclick="x()">MES</a><span>!</span>`
	assert.Equal(t, `<a href="https://school.mos.ru">MES</a>!`, HTML(in))
}

package sanitize

import (
	"github.com/microcosm-cc/bluemonday"
)

var aiPolicy = newAIPolicy()

// newAIPolicy разрешает только теги, которые Telegram понимает в parse_mode=HTML: b i u code pre a
func newAIPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("b", "i", "u", "code", "pre")
	p.AllowAttrs("href").OnElements("a")
	p.AllowURLSchemes("http", "https", "tg")
	p.RequireParseableURLs(true)
	return p
}

// HTML очищает сгенерированный текст, все остальные теги вырезаются с сохранением содержимого
func HTML(s string) string {
	return aiPolicy.Sanitize(s)
}

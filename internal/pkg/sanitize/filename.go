package sanitize

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/gosimple/slug"
)

var notAllowed = regexp.MustCompile(`[^a-z0-9-]+`)

// Filename транслитерирует кириллицу в латиницу, пробелы заменяет на "-",
// удаляет всё кроме [a-z0-9-] и приводит к нижнему регистру
func Filename(name string) string {
	s := slug.Make(strings.Join(strings.Fields(name), " "))
	s = strings.ToLower(s)
	s = notAllowed.ReplaceAllString(s, "")
	return strings.Trim(s, "-")
}

// ObjectKey ключ учебника в хранилище: <user_id>/<subject_id>/<sanitized_subject_name>.<ext>
func ObjectKey(userID, subjectID int64, subjectName, originalFilename string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(originalFilename)), ".")
	ext = notAllowed.ReplaceAllString(ext, "")
	if ext == "" {
		ext = "bin"
	}

	name := Filename(subjectName)
	if name == "" {
		name = "book"
	}

	return fmt.Sprintf("%d/%d/%s.%s", userID, subjectID, name, ext)
}

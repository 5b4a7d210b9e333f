package mvc

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ControllerTypeName derives the controller type identity from a controller
// name: underscores become word breaks, each word is capitalized, spaces are
// dropped and "Controller" is appended ("blog_post" -> "BlogPostController").
func ControllerTypeName(name string) string {
	return upperCamel(name) + "Controller"
}

// ActionHandlerName derives the handler name expected for an action
// ("show_all" -> "ActionShowAll").
func ActionHandlerName(action string) string {
	return "Action" + upperCamel(action)
}

// upperCamel capitalizes the first letter of every word and removes the
// separators. Letters inside a word keep their case, so "showAll" and
// "show_all" both become "ShowAll".
func upperCamel(name string) string {
	var b strings.Builder
	b.Grow(len(name))

	for _, word := range strings.Fields(strings.ReplaceAll(name, "_", " ")) {
		r, size := utf8.DecodeRuneInString(word)
		b.WriteRune(unicode.ToUpper(r))
		b.WriteString(word[size:])
	}

	return b.String()
}

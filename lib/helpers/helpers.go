package helpers

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	goldSuffix   = "g"
	silverSuffix = "s"
	copperSuffix = "c"
)

// FormatPrice renders a copper amount as gold, silver and copper
func FormatPrice(copper int64) string {
	c := copper % 100
	s := copper / 100 % 100
	g := copper / 100 / 100
	return fmt.Sprintf("%d%s %d%s %d%s", g, goldSuffix, s, silverSuffix, c, copperSuffix)
}

// Capitalize upper-cases the first letter and lower-cases the rest, "buy" -> "Buy"
func Capitalize(text string) string {
	return cases.Title(language.English).String(strings.ToLower(text))
}

func EscapeMarkdownV2(text string) string {
	charactersToEscape := []string{"\\", ".", "-", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "=", "|", "{", "}", "!"}

	for _, char := range charactersToEscape {
		text = strings.ReplaceAll(text, char, "\\"+char)
	}
	return text
}

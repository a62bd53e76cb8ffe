package translation

import (
	"strings"

	"github.com/leonelquinteros/gotext"
)

// Configure loads the gettext catalogue for lang from localesPath
func Configure(localesPath, lang string) {
	// LANG usually carries an encoding, "en_US.UTF-8"
	lang = strings.SplitN(lang, ".", 2)[0]
	gotext.Configure(localesPath, strings.ToLower(lang), "default")
}

func GetLanguage() string {
	lang := gotext.GetLanguage()

	if lang == "und" || lang == "" {
		return "en"
	}

	return lang
}

func Translate(msgID string, vars ...interface{}) string {
	return gotext.Get(msgID, vars...)
}

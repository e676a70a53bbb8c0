package i18n

import (
	"sort"
	"strings"
)

var languageNames = map[string]string{
	"en": "English",
	"ru": "Russian",
	"uk": "Ukrainian",
}

func IsSupported(lang string) bool {
	_, ok := languageNames[strings.ToLower(lang)]
	return ok
}

func GetLanguageName(lang string) string {
	if name, ok := languageNames[strings.ToLower(lang)]; ok {
		return name
	}
	return languageNames[defaultLanguage]
}

func GetLanguagesList() []string {
	list := make([]string, 0, len(languageNames))
	for code := range languageNames {
		list = append(list, code)
	}
	sort.Strings(list)
	return list
}

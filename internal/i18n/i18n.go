package i18n

import (
	"fmt"
	"path"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/iamwavecut/ngmod/resources"
)

const (
	defaultLanguage = "en"
	resourcesPath   = "i18n"
)

var state = struct {
	sync.RWMutex
	translations map[string]map[string]string
	loaded       map[string]bool
}{
	translations: make(map[string]map[string]string),
	loaded:       make(map[string]bool),
}

func load(lang string) map[string]string {
	state.Lock()
	defer state.Unlock()
	if state.loaded[lang] {
		return state.translations[lang]
	}
	state.loaded[lang] = true

	raw, err := resources.FS.ReadFile(path.Join(resourcesPath, lang+".yml"))
	if err != nil {
		log.WithError(err).WithField("lang", lang).Errorln("cant load i18n")
		return nil
	}
	translations := make(map[string]string)
	if err := yaml.Unmarshal(raw, &translations); err != nil {
		log.WithError(err).WithField("lang", lang).Errorln("cant unmarshal i18n")
		return nil
	}
	state.translations[lang] = translations
	return translations
}

// Get returns the translation of key. English keys are their own translation.
func Get(key, lang string) string {
	lang = strings.ToLower(lang)
	if lang == "" || lang == defaultLanguage || !IsSupported(lang) {
		return key
	}
	state.RLock()
	translations, ok := state.translations[lang], state.loaded[lang]
	state.RUnlock()
	if !ok {
		translations = load(lang)
	}
	if res, ok := translations[key]; ok {
		return res
	}
	log.WithField("lang", lang).Tracef(`no translation for key "%s"`, key)
	return key
}

func Getf(key, lang string, args ...any) string {
	return fmt.Sprintf(Get(key, lang), args...)
}

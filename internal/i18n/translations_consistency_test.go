package i18n

import (
	"io/fs"
	"path"
	"sort"
	"strings"
	"testing"

	"gopkg.in/yaml.v2"

	"github.com/iamwavecut/ngmod/resources"
)

func TestEverySupportedLocaleHasFile(t *testing.T) {
	t.Parallel()

	for _, lang := range GetLanguagesList() {
		if lang == defaultLanguage {
			continue
		}
		if _, err := fs.Stat(resources.FS, path.Join(resourcesPath, lang+".yml")); err != nil {
			t.Fatalf("missing translation file for %s: %v", lang, err)
		}
	}
}

func TestTranslationFilesShareKeysAndVerbs(t *testing.T) {
	t.Parallel()

	dicts := make(map[string]map[string]string)
	for _, lang := range GetLanguagesList() {
		if lang == defaultLanguage {
			continue
		}
		raw, err := resources.FS.ReadFile(path.Join(resourcesPath, lang+".yml"))
		if err != nil {
			t.Fatalf("read %s: %v", lang, err)
		}
		dict := make(map[string]string)
		if err := yaml.Unmarshal(raw, &dict); err != nil {
			t.Fatalf("unmarshal %s: %v", lang, err)
		}
		dicts[lang] = dict
	}

	reference := sortedKeys(dicts["ru"])
	for lang, dict := range dicts {
		if got := sortedKeys(dict); strings.Join(got, "|") != strings.Join(reference, "|") {
			t.Fatalf("%s keys differ from ru:\n got %v\nwant %v", lang, got, reference)
		}
		for key, value := range dict {
			if strings.Count(key, "%d") != strings.Count(value, "%d") {
				t.Fatalf("%s translation of %q has mismatched verbs: %q", lang, key, value)
			}
		}
	}
}

func TestGetFallsBackToKey(t *testing.T) {
	t.Parallel()

	if got := Get("permanently", "en"); got != "permanently" {
		t.Fatalf("english must be identity, got %q", got)
	}
	if got := Get("permanently", "xx"); got != "permanently" {
		t.Fatalf("unsupported language must be identity, got %q", got)
	}
	if got := Get("no such key", "ru"); got != "no such key" {
		t.Fatalf("missing key must be identity, got %q", got)
	}
	if got := Getf("%d hours", "RU", 2); got != "2 ч." {
		t.Fatalf("unexpected russian hours: %q", got)
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Package i18n renders the machine-generated context fragments and
// user-facing messages in the supported response languages. Lookup is a total
// function: an unknown locale falls back to English, an unknown key to a
// bracketed placeholder, and a template missing an interpolation argument is
// returned raw rather than failing the request.
package i18n

import (
	"embed"
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/krishi-sahayak/backend/pkg/logger"
)

//go:embed locales/*.yaml
var localeFS embed.FS

const DefaultLocale = "English"

var catalogs = loadCatalogs()

func loadCatalogs() map[string]map[string]string {
	entries, err := localeFS.ReadDir("locales")
	if err != nil {
		panic(fmt.Sprintf("i18n: embedded locales unreadable: %v", err))
	}

	loaded := make(map[string]map[string]string, len(entries))
	for _, entry := range entries {
		data, err := localeFS.ReadFile("locales/" + entry.Name())
		if err != nil {
			panic(fmt.Sprintf("i18n: cannot read %s: %v", entry.Name(), err))
		}
		var table map[string]string
		if err := yaml.Unmarshal(data, &table); err != nil {
			panic(fmt.Sprintf("i18n: cannot parse %s: %v", entry.Name(), err))
		}
		name := strings.TrimSuffix(entry.Name(), ".yaml")
		loaded[name] = table
	}

	if _, ok := loaded[DefaultLocale]; !ok {
		panic("i18n: default locale catalog missing")
	}
	return loaded
}

// Locales lists the locales that ship a catalog, sorted for stable output.
func Locales() []string {
	names := make([]string, 0, len(catalogs))
	for name := range catalogs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Args carries named interpolation values for a template.
type Args map[string]any

// T resolves key in the given locale and interpolates args.
func T(locale, key string, args Args) string {
	table, ok := catalogs[locale]
	if !ok {
		table = catalogs[DefaultLocale]
	}

	tmpl, ok := table[key]
	if !ok {
		tmpl, ok = catalogs[DefaultLocale][key]
	}
	if !ok {
		logger.Warn("Missing translation key", zap.String("key", key), zap.String("locale", locale))
		return "[" + key + "]"
	}

	return interpolate(tmpl, key, args)
}

// Placeholders use the original tables' brace syntax, optionally with a
// numeric format spec: {name}, {lat:.2f}, {confidence:.0%}.
var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)(?::(\.[0-9]+[f%]))?\}`)

func interpolate(tmpl, key string, args Args) string {
	matches := placeholderPattern.FindAllStringSubmatch(tmpl, -1)
	if len(matches) == 0 {
		return tmpl
	}

	for _, m := range matches {
		if _, ok := args[m[1]]; !ok {
			logger.Warn("Missing interpolation argument, returning raw template",
				zap.String("key", key), zap.String("argument", m[1]))
			return tmpl
		}
	}

	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(raw string) string {
		m := placeholderPattern.FindStringSubmatch(raw)
		return formatValue(args[m[1]], m[2])
	})
}

func formatValue(v any, spec string) string {
	if v == nil {
		return ""
	}

	if spec == "" {
		if f, ok := toFloat(v); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			return "N/A"
		}
		return fmt.Sprintf("%v", v)
	}

	f, ok := toFloat(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return "N/A"
	}

	digits, err := strconv.Atoi(spec[1 : len(spec)-1])
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	if strings.HasSuffix(spec, "%") {
		return fmt.Sprintf("%.*f%%", digits, f*100)
	}
	return fmt.Sprintf("%.*f", digits, f)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

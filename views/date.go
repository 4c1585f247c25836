package views

import (
	"time"

	"golang.org/x/text/language"
)

// dateLocales pairs each supported locale with its short numeric date layout.
// The first entry is the fallback for unknown or unparsable locales.
var dateLocales = []struct {
	tag    language.Tag
	layout string
}{
	{language.German, "2.1.2006"},
	{language.AmericanEnglish, "1/2/2006"},
	{language.BritishEnglish, "02/01/2006"},
	{language.French, "02/01/2006"},
	{language.Spanish, "2/1/2006"},
	{language.Italian, "2/1/2006"},
	{language.Dutch, "2-1-2006"},
}

var dateMatcher = func() language.Matcher {
	tags := make([]language.Tag, len(dateLocales))
	for i, l := range dateLocales {
		tags[i] = l.tag
	}
	return language.NewMatcher(tags)
}()

// DateLayout returns the time layout for short dates in locale.
func DateLayout(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return dateLocales[0].layout
	}
	_, idx, _ := dateMatcher.Match(tag)
	return dateLocales[idx].layout
}

// FormatDate formats t as a short numeric date for locale.
func FormatDate(t time.Time, locale string) string {
	return t.Format(DateLayout(locale))
}

package translate

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// alternateCodes returns other conventions for writing a language code:
// the bare base subtag ("pt" for "pt-BR"), a region-qualified form when
// a region can be inferred ("sw-TZ" for "sw"), and the ISO 639-3 code
// ("swa" for "sw"). The input code itself is never included. Codes that
// cannot be parsed as BCP 47 tags yield nil.
func alternateCodes(code string) []string {
	tag, err := language.Parse(code)
	if err != nil {
		return nil
	}

	base, conf := tag.Base()
	if conf == language.No {
		return nil
	}

	var alts []string
	seen := map[string]bool{strings.ToLower(code): true}
	add := func(c string) {
		if c == "" {
			return
		}
		key := strings.ToLower(c)
		if !seen[key] {
			seen[key] = true
			alts = append(alts, c)
		}
	}

	add(base.String())
	if region, rconf := tag.Region(); rconf > language.No && region.IsCountry() {
		add(base.String() + "-" + region.String())
	}
	add(base.ISO3())

	return alts
}

// languageName resolves a language code to its English name for use in
// model prompts. Unparseable codes are returned as-is.
func languageName(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	if name := display.English.Languages().Name(tag); name != "" {
		return name
	}
	return code
}

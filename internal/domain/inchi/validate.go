package inchi

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

var (
	formulaPattern = regexp.MustCompile(`^\d*(?:[A-Z][a-z]?\d*)+(?:\.\d*(?:[A-Z][a-z]?\d*)+)*$`)
	protonOnly     = regexp.MustCompile(`^p[+-]\d+$`)
)

// Layer tags allowed in a standard InChI. The isotopic layer i may be
// followed by a second run of h, b, t, m and s.
const standardTags = "chqpbtmsi"

// ValidateSyntax checks that identifier is a well-formed standard InChI. It
// does not perceive chemistry: a syntactically valid identifier may still
// describe an impossible structure.
func ValidateSyntax(identifier string) error {
	if identifier == NoStructure {
		return nil
	}
	if !strings.HasPrefix(identifier, Header) {
		if strings.HasPrefix(identifier, "InChI=1/") {
			return errors.NewValidationErrorf("Only standard InChIs are supported: '%s'", identifier)
		}
		return errors.NewValidationErrorf("Invalid InChI prefix or invalid version: '%s'", identifier)
	}
	body := identifier[len(Header):]
	for i := 0; i < len(body); i++ {
		if !isIdentifierChar(body[i]) {
			return errors.NewValidationErrorf("Invalid character %q at offset %d in InChI '%s'", body[i], len(Header)+i, identifier)
		}
	}

	layers := strings.Split(body, "/")
	if !formulaPattern.MatchString(layers[0]) && !(len(layers) == 1 && protonOnly.MatchString(layers[0])) {
		return errors.NewValidationErrorf("Invalid formula layer '%s' in InChI '%s'", layers[0], identifier)
	}

	seen := make(map[byte]bool)
	for _, layer := range layers[1:] {
		if layer == "" {
			return errors.NewValidationErrorf("Empty layer in InChI '%s'", identifier)
		}
		tag := layer[0]
		if !strings.ContainsRune(standardTags, rune(tag)) {
			return errors.NewValidationErrorf("Unknown layer '/%s' in InChI '%s'", layer, identifier)
		}
		if tag == 'i' {
			seen = make(map[byte]bool)
		}
		if seen[tag] {
			return errors.NewValidationErrorf("Duplicate layer '/%c' in InChI '%s'", tag, identifier)
		}
		seen[tag] = true
		if tag == 'p' {
			if _, err := strconv.Atoi(layer[1:]); err != nil {
				return errors.NewValidationErrorf("Invalid protonation layer '/%s' in InChI '%s'", layer, identifier)
			}
		}
	}
	return nil
}

func isIdentifierChar(c byte) bool {
	switch {
	case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		return true
	}
	return strings.IndexByte("/,;()-+*.?", c) >= 0
}

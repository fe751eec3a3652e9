package inchi

import (
	"strings"

	"github.com/IUPAC-InChI/RInChI/internal/domain/hashing"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

// minorRepeatLimit is the length below which the minor-layer input is
// hashed twice over.
const minorRepeatLimit = 255

// Key derives the standard InChIKey of a standard InChI:
//
//	<14 letters over the major layers>-<8 letters over the minor layers>SA-<proton letter>
func Key(identifier string) (string, error) {
	if !strings.HasPrefix(identifier, Header) {
		return "", errors.NewValidationErrorf("Invalid InChI prefix or invalid version: '%s'", identifier)
	}
	major, minor, protons, err := SplitLayers(identifier)
	if err != nil {
		return "", err
	}

	minorInput := ""
	if minor != "" {
		minorInput = "/" + minor
		if len(minorInput) < minorRepeatLimit {
			minorInput += minorInput
		}
	}

	var sb strings.Builder
	sb.Grow(27)
	sb.WriteString(hashing.Hash14(major))
	sb.WriteByte('-')
	sb.WriteString(hashing.MinorBlock8(minorInput))
	sb.WriteString("SA-")
	sb.WriteByte(ProtonChar(protons))
	return sb.String(), nil
}

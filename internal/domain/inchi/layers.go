package inchi

import (
	"strconv"
	"strings"

	"github.com/IUPAC-InChI/RInChI/internal/domain/hashing"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

const componentSeparator = "!"

// Layers accumulates the major and minor layers of a sequence of standard
// InChIs. Major layers are the formula and the c, h and q layers; every layer
// from the first other tag on is minor. Protonation (p) layers are summed into
// Protons instead of being kept. Per-identifier results are joined with "!".
type Layers struct {
	Majors  string
	Minors  string
	Protons int
}

// SplitLayers splits a single identifier.
func SplitLayers(identifier string) (major, minor string, protons int, err error) {
	var l Layers
	if err := l.Append(identifier); err != nil {
		return "", "", 0, err
	}
	return l.Majors, l.Minors, l.Protons, nil
}

// Append splits identifier and adds its layers. An empty identifier is
// ignored.
func (l *Layers) Append(identifier string) error {
	if identifier == "" {
		return nil
	}
	pos := strings.Index(identifier, "/")
	if pos != len(Header)-1 {
		return errors.NewFormatErrorf("Invalid InChI string - no layers: '%s'", identifier)
	}
	if identifier[pos-1] != 'S' {
		return errors.NewPreconditionErrorf("Only standard InChIs are supported: '%s'", identifier)
	}
	if identifier[pos-2] != '1' {
		return errors.NewPreconditionErrorf("Only InChI version 1 supported: '%s'", identifier)
	}

	layers := strings.Split(identifier[pos+1:], "/")
	var major, minor strings.Builder
	major.WriteString("/" + layers[0])
	inMajor := true
	for _, layer := range layers[1:] {
		if layer == "" {
			continue
		}
		if !inMajor {
			minor.WriteString("/" + layer)
			continue
		}
		switch layer[0] {
		case 'c', 'h', 'q':
			major.WriteString("/" + layer)
		case 'p':
			n, err := strconv.Atoi(layer[1:])
			if err != nil {
				return errors.NewFormatErrorf("Invalid protonation layer '/%s' in '%s'", layer, identifier)
			}
			l.Protons += n
		default:
			minor.WriteString("/" + layer)
			inMajor = false
		}
	}

	majorStr := strings.TrimPrefix(major.String(), "/")
	if majorStr == "" {
		majorStr = "/"
	}
	minorStr := strings.TrimPrefix(minor.String(), "/")

	if l.Majors != "" {
		l.Majors += componentSeparator
	}
	l.Majors += majorStr
	if l.Minors != "" {
		l.Minors += componentSeparator
	}
	l.Minors += minorStr
	return nil
}

// ProtonChar encodes a protonation count as a key letter: 'N' for neutral,
// shifted by the count, and 'A' beyond ±12.
func ProtonChar(count int) byte {
	if count > 12 || count < -12 {
		return 'A'
	}
	return byte('N' + count)
}

// MajorHash is the 10-letter hash of the major layers.
func (l *Layers) MajorHash() string { return hashing.Hash10(l.Majors) }

// MajorHashExt is the 17-letter hash of the major layers.
func (l *Layers) MajorHashExt() string { return hashing.Hash17(l.Majors) }

// MinorHash is the proton letter followed by the 4-letter hash of the minor
// layers.
func (l *Layers) MinorHash() string {
	return string(ProtonChar(l.Protons)) + hashing.Hash4(l.Minors)
}

// MinorHashExt is the proton letter followed by the 12-letter hash of the
// minor layers.
func (l *Layers) MinorHashExt() string {
	return string(ProtonChar(l.Protons)) + hashing.Hash12(l.Minors)
}

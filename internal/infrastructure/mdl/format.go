package mdl

import (
	"bufio"
	"bytes"
	"io"
	"strings"

	"github.com/ulikunitz/xz"

	"github.com/IUPAC-InChI/RInChI/internal/domain/reaction"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

// Format names a reaction file format.
type Format string

const (
	FormatAuto   Format = "AUTO"
	FormatRXN    Format = "RXN"
	FormatRD     Format = "RD"
	FormatRInChI Format = "RINCHI"
)

// ParseFormat accepts a format name case-insensitively. The empty string
// is FormatAuto.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToUpper(strings.TrimSpace(s))); f {
	case "":
		return FormatAuto, nil
	case FormatAuto, FormatRXN, FormatRD, FormatRInChI:
		return f, nil
	}
	return "", errors.NewPreconditionErrorf("Unsupported file format '%s'.", s)
}

// DetectFormat classifies a file by its first line: "$RXN" starts an RXN
// file, an RInChI header an RInChI file, anything else is taken as RD.
func DetectFormat(firstLine string) Format {
	firstLine = strings.TrimRight(firstLine, "\r")
	switch {
	case firstLine == TagRXN:
		return FormatRXN
	case strings.HasPrefix(firstLine, reaction.Header):
		return FormatRInChI
	default:
		return FormatRD
	}
}

var xzMagic = []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}

// Decompress returns a reader over r that transparently inflates xz
// streams. Other input is passed through unchanged.
func Decompress(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(xzMagic))
	if err != nil && err != io.EOF {
		return nil, errors.Wrap(err, errors.ErrCodeStorage, "failed to read input")
	}
	if !bytes.Equal(head, xzMagic) {
		return br, nil
	}
	zr, err := xz.NewReader(br)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeRDfile, "invalid xz stream")
	}
	return zr, nil
}

// ReadText decompresses r when needed and returns its content as text.
func ReadText(r io.Reader) (string, error) {
	dr, err := Decompress(r)
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	if _, err := io.Copy(&sb, dr); err != nil {
		return "", errors.Wrap(err, errors.ErrCodeRDfile, "failed to read input")
	}
	return sb.String(), nil
}

// FirstLine returns the first line of text without its line terminator.
func FirstLine(text string) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	return strings.TrimRight(text, "\r")
}

// ReadReaction reads an RXN or RD file from text into rxn. FormatAuto picks
// RXN when the first line is "$RXN" and RD otherwise.
func ReadReaction(text, name string, format Format, rxn *reaction.Reaction, forceEquilibrium bool) error {
	if format == FormatAuto || format == "" {
		format = FormatRD
		if FirstLine(text) == TagRXN {
			format = FormatRXN
		}
	}
	switch format {
	case FormatRXN:
		return ReadRXN(strings.NewReader(text), name, rxn, forceEquilibrium)
	case FormatRD:
		return ReadRD(strings.NewReader(text), name, rxn, forceEquilibrium)
	}
	return errors.NewPreconditionErrorf("Unsupported input file format '%s'.", format)
}

// WriteReaction writes rxn as an RXN or RD file. FormatAuto writes RD when
// the reaction has agents and RXN otherwise.
func WriteReaction(w io.Writer, rxn *reaction.Reaction, format Format) error {
	if format == FormatAuto || format == "" {
		format = FormatRXN
		if len(rxn.Agents()) > 0 {
			format = FormatRD
		}
	}
	switch format {
	case FormatRXN:
		return WriteRXN(w, rxn, true)
	case FormatRD:
		return WriteRD(w, rxn)
	}
	return errors.NewPreconditionErrorf("Unsupported output file format '%s'.", format)
}

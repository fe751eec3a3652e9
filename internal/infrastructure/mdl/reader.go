// Package mdl reads and writes the MDL CTfile formats RInChI is computed
// from: V2000/V3000 molfiles, RXN files and RD files.
package mdl

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

const maxLineLength = 1024 * 1024

// lineReader hands out lines with trailing CRs removed and keeps the line
// number for error messages. It is shared by nested readers so that a
// molfile error inside an RD file reports the RD file line.
type lineReader struct {
	scanner *bufio.Scanner
	name    string
	line    string
	number  int
	eof     bool
}

func newLineReader(r io.Reader, name string) *lineReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), maxLineLength)
	if name == "" {
		name = "input"
	}
	return &lineReader{scanner: s, name: name}
}

// next advances to the next line. Reading past the end is an error.
func (lr *lineReader) next(code errors.ErrorCode) error {
	if lr.eof {
		return lr.fail(code, "Premature end of input")
	}
	if !lr.scanner.Scan() {
		if err := lr.scanner.Err(); err != nil {
			return errors.Wrapf(err, code, "Reading from '%s'", lr.name)
		}
		lr.eof = true
		lr.line = ""
		lr.number++
		return nil
	}
	lr.line = strings.TrimRight(strings.TrimLeft(lr.scanner.Text(), "\r"), "\r")
	lr.number++
	return nil
}

// more reports whether a call to next can still succeed.
func (lr *lineReader) more() bool { return !lr.eof }

func (lr *lineReader) fail(code errors.ErrorCode, msg string) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Reading from '%s'", lr.name)
	if lr.number > 0 {
		fmt.Fprintf(&sb, ", line %d", lr.number)
	}
	sb.WriteString(": ")
	sb.WriteString(msg)
	if !strings.HasSuffix(msg, ".") {
		sb.WriteString(".")
	}
	return errors.New(code, sb.String())
}

func (lr *lineReader) failf(code errors.ErrorCode, format string, args ...interface{}) error {
	return lr.fail(code, fmt.Sprintf(format, args...))
}

// field returns the space-trimmed fixed-width column [start, start+n) of s,
// clipped to the length of s.
func field(s string, start, n int) string {
	if start >= len(s) {
		return ""
	}
	end := start + n
	if end > len(s) {
		end = len(s)
	}
	return strings.TrimSpace(s[start:end])
}

// intField parses a fixed-width integer column.
func intField(s string, start, n int) (int, error) {
	f := field(s, start, n)
	v, err := strconv.Atoi(f)
	if err != nil {
		return 0, fmt.Errorf("'%s' is not an integer", f)
	}
	return v, nil
}

func checkRange(value, min, max int, what string) error {
	if value < min || value > max {
		return fmt.Errorf("%s out of range: %d is not in [%d; %d]", what, value, min, max)
	}
	return nil
}

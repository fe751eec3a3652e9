package mdl

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/IUPAC-InChI/RInChI/internal/domain/reaction"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

// RD file tags.
const (
	TagRDFile     = "$RDFILE"
	RDFileHeader  = TagRDFile + " 1"
	TagRFMT       = "$RFMT"
	TagDATM       = "$DATM"
	TagDTYPE      = "$DTYPE"
	LineDatumMFMT = "$DATUM $MFMT"

	// rfmtSearchLimit bounds the lines searched for the first $RFMT.
	rfmtSearchLimit = 1000
	datmLayout      = "01/02/2006 15:04:05"
)

// DefaultNonAgentKeywords mark $DTYPE lines whose molecule is a reactant or
// product rather than an agent.
var DefaultNonAgentKeywords = []string{"REACTANT", "PRODUCT", "EDUCT", "REAKTANT", "PRODUKT"}

// RDReader reads the first reaction entry of an RD file. Molecules given as
// $DATUM $MFMT data items become agents, except those whose preceding data
// line names them a reactant or product and that duplicate a reactant or
// product of the embedded RXN.
type RDReader struct {
	keywords []string
}

// NewRDReader returns a reader using keywords, or DefaultNonAgentKeywords
// when none are given.
func NewRDReader(keywords ...string) *RDReader {
	if len(keywords) == 0 {
		keywords = DefaultNonAgentKeywords
	}
	rd := &RDReader{}
	for _, k := range keywords {
		if k == "" {
			continue
		}
		if k[0] != ':' {
			k = ":" + k
		}
		rd.keywords = append(rd.keywords, upper(k))
	}
	return rd
}

// ReadRD reads an RD file with the default keywords.
func ReadRD(r io.Reader, name string, rxn *reaction.Reaction, forceEquilibrium bool) error {
	return NewRDReader().Read(r, name, rxn, forceEquilibrium)
}

// Read reads the reaction entry starting at the first $RFMT line. Agents are
// read until the next $RFMT line, the end of input, or a change of the
// variation number in parentheses on the data lines.
func (rd *RDReader) Read(r io.Reader, name string, rxn *reaction.Reaction, forceEquilibrium bool) error {
	lr := newLineReader(r, name)
	if err := lr.next(errors.ErrCodeRDfile); err != nil {
		return err
	}
	for skipped := 0; !strings.HasPrefix(lr.line, TagRFMT); skipped++ {
		if skipped >= rfmtSearchLimit || !lr.more() {
			return lr.fail(errors.ErrCodeRDfile, "RD file section must contain an '"+TagRFMT+"' line.")
		}
		if err := lr.next(errors.ErrCodeRDfile); err != nil {
			return err
		}
	}

	if err := readRXN(lr, rxn, false); err != nil {
		return err
	}

	variation := -1
	prev := lr.line
	for lr.more() {
		if err := lr.next(errors.ErrCodeRDfile); err != nil {
			return err
		}
		if strings.HasPrefix(lr.line, TagRFMT) {
			break
		}
		if lr.line == LineDatumMFMT {
			upperPrev := upper(prev)
			if v, ok := variationNumber(upperPrev); ok {
				if variation == -1 {
					variation = v
				} else if v != variation {
					break
				}
			}
			if err := rd.readAgent(lr, rxn, rd.isNonAgent(upperPrev)); err != nil {
				return err
			}
		}
		prev = lr.line
	}

	if forceEquilibrium {
		rxn.SetDirectionality(reaction.Equilibrium)
	}
	return nil
}

// upper folds s to upper case. Casers keep state, so each call gets its own.
func upper(s string) string {
	return cases.Upper(language.Und).String(s)
}

func (rd *RDReader) isNonAgent(upperLine string) bool {
	for _, k := range rd.keywords {
		if strings.Contains(upperLine, k) {
			return true
		}
	}
	return false
}

// variationNumber extracts the integer between the first pair of
// parentheses of a data line.
func variationNumber(line string) (int, bool) {
	open := strings.IndexByte(line, '(')
	if open < 0 {
		return 0, false
	}
	end := strings.IndexByte(line[open:], ')')
	if end < 0 {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimSpace(line[open+1 : open+end]))
	if err != nil {
		return 0, false
	}
	return v, true
}

func (rd *RDReader) readAgent(lr *lineReader, rxn *reaction.Reaction, nonAgent bool) error {
	mol, err := readMolecule(lr)
	if err != nil {
		return err
	}
	agent := rxn.AddAgent()
	if err := agent.SetMolecule(mol); err != nil {
		return err
	}
	if !nonAgent {
		return nil
	}

	key, err := agent.Key()
	if err != nil {
		return err
	}
	for _, c := range append(rxn.Reactants(), rxn.Products()...) {
		k, err := c.Key()
		if err != nil {
			return err
		}
		if k == key {
			rxn.DeleteAgent(agent)
			return nil
		}
	}
	return nil
}

// RDWriter writes reactions as single-entry RD files.
type RDWriter struct {
	now func() time.Time
}

// NewRDWriter returns a writer stamping files with the current local time.
func NewRDWriter() *RDWriter {
	return &RDWriter{now: time.Now}
}

// WithClock replaces the clock used for the $DATM line.
func (wr *RDWriter) WithClock(now func() time.Time) *RDWriter {
	wr.now = now
	return wr
}

// Write writes rxn as an RD file: the reactants and products as an
// embedded RXN file, the agents as molecule data items.
func (wr *RDWriter) Write(w io.Writer, rxn *reaction.Reaction) error {
	bw := bufio.NewWriter(w)
	bw.WriteString(RDFileHeader + "\n")
	fmt.Fprintf(bw, "%s %s\n", TagDATM, wr.now().Format(datmLayout))
	bw.WriteString(TagRFMT + "\n")
	if err := writeRXN(bw, rxn, false); err != nil {
		return err
	}
	for i, c := range rxn.Agents() {
		fmt.Fprintf(bw, "%s RXN:AGENTS(1):MOLECULES(%d):MOLSTRUCTURE\n", TagDTYPE, i+1)
		bw.WriteString(LineDatumMFMT + "\n")
		if err := writeComponent(bw, fmt.Sprintf("Agent%d", i+1), rxn.Engine(), c); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, errors.ErrCodeRDfile, "failed to write RD file")
	}
	return nil
}

// WriteRD writes rxn as an RD file stamped with the current time.
func WriteRD(w io.Writer, rxn *reaction.Reaction) error {
	return NewRDWriter().Write(w, rxn)
}

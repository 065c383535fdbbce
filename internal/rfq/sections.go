// Package rfq defines the RFQ document model: the canonical section
// schema, parsing and structural validation of generated bodies,
// section-level diffing, and image placeholder handling.
package rfq

import (
	"strings"
)

// Canonical section headings, in the order they must appear in every
// generated RFQ body.
const (
	SectionBackground = "BACKGROUND & OBJECTIVE"
	SectionScope      = "SCOPE OF WORK"
	SectionTechnical  = "TECHNICAL REQUIREMENTS"
	SectionSLA        = "SERVICE LEVEL AGREEMENT"
	SectionCompliance = "COMPLIANCE & STANDARDS"
	SectionCommercial = "COMMERCIAL TERMS"
	SectionDelivery   = "DELIVERY TIMELINE"
	SectionEvaluation = "EVALUATION CRITERIA"
	SectionRevision   = "REVISION HISTORY"
)

// CanonicalSections returns the ordered section schema. Callers must
// not mutate the returned slice.
func CanonicalSections() []string {
	return canonicalSections
}

var canonicalSections = []string{
	SectionBackground,
	SectionScope,
	SectionTechnical,
	SectionSLA,
	SectionCompliance,
	SectionCommercial,
	SectionDelivery,
	SectionEvaluation,
	SectionRevision,
}

var canonicalIndex = func() map[string]int {
	m := make(map[string]int, len(canonicalSections))
	for i, h := range canonicalSections {
		m[h] = i
	}
	return m
}()

// IsCanonicalHeading reports whether h is one of the nine schema headings.
func IsCanonicalHeading(h string) bool {
	_, ok := canonicalIndex[h]
	return ok
}

// Section is one heading plus the body text that follows it, up to the
// next recognized heading. Body excludes the heading line itself and
// keeps interior lines verbatim.
type Section struct {
	Heading string
	Body    string
}

// Document is a parsed RFQ body. Preamble holds any text before the
// first recognized heading (normally a title line).
type Document struct {
	Preamble string
	Sections []Section
}

// headingOf extracts a canonical heading from a body line, tolerating
// the markdown decoration models emit ("## HEADING", "**HEADING**",
// trailing colon). Returns "" if the line is not a recognized heading.
func headingOf(line string) string {
	s := strings.TrimSpace(line)
	for strings.HasPrefix(s, "#") {
		s = strings.TrimPrefix(s, "#")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "**")
	s = strings.TrimSuffix(s, "**")
	s = strings.TrimSuffix(s, ":")
	s = strings.TrimSpace(s)
	if IsCanonicalHeading(s) {
		return s
	}
	return ""
}

// Parse splits an RFQ body into its sections. Each recognized heading
// may appear at most once; a duplicate is a parse error. Unrecognized
// lines belong to the section whose heading most recently preceded
// them (or to the preamble).
func Parse(body string) (*Document, error) {
	doc := &Document{}
	seen := make(map[string]bool)

	var cur *Section
	var buf []string
	flush := func() {
		text := strings.TrimRight(strings.Join(buf, "\n"), "\n")
		if cur == nil {
			doc.Preamble = text
		} else {
			cur.Body = text
			doc.Sections = append(doc.Sections, *cur)
		}
		buf = buf[:0]
	}

	for _, line := range strings.Split(body, "\n") {
		h := headingOf(line)
		if h == "" {
			buf = append(buf, line)
			continue
		}
		if seen[h] {
			return nil, &ParseError{Reason: "duplicate section heading: " + h}
		}
		seen[h] = true
		flush()
		cur = &Section{Heading: h}
	}
	flush()
	return doc, nil
}

// Section returns the section with the given heading, if present.
func (d *Document) Section(heading string) (Section, bool) {
	for _, s := range d.Sections {
		if s.Heading == heading {
			return s, true
		}
	}
	return Section{}, false
}

// Headings returns the parsed headings in document order.
func (d *Document) Headings() []string {
	out := make([]string, len(d.Sections))
	for i, s := range d.Sections {
		out[i] = s.Heading
	}
	return out
}

// ParseError reports a structural problem in an RFQ body.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "rfq: " + e.Reason
}

// ValidateStructure checks that a generated body contains exactly the
// nine canonical headings, each once, in canonical order. Returns nil
// when the body conforms; a *ParseError naming the first violation
// otherwise.
func ValidateStructure(body string) error {
	doc, err := Parse(body)
	if err != nil {
		return err
	}
	got := doc.Headings()
	if len(got) != len(canonicalSections) {
		missing := missingHeadings(got)
		if len(missing) > 0 {
			return &ParseError{Reason: "missing section heading: " + missing[0]}
		}
		return &ParseError{Reason: "unexpected number of sections"}
	}
	for i, h := range got {
		if h != canonicalSections[i] {
			return &ParseError{Reason: "section out of order: " + h}
		}
	}
	return nil
}

func missingHeadings(got []string) []string {
	present := make(map[string]bool, len(got))
	for _, h := range got {
		present[h] = true
	}
	var out []string
	for _, h := range canonicalSections {
		if !present[h] {
			out = append(out, h)
		}
	}
	return out
}

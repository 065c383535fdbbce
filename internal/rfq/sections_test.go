package rfq

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validBody() string {
	var b strings.Builder
	b.WriteString("RFQ: Brake Caliper Assembly\n\n")
	for _, h := range canonicalSections {
		b.WriteString(h + "\nContent for " + strings.ToLower(h) + ".\n\n")
	}
	return b.String()
}

func TestParse_AllSections(t *testing.T) {
	doc, err := Parse(validBody())
	require.NoError(t, err)

	assert.Equal(t, "RFQ: Brake Caliper Assembly", doc.Preamble)
	assert.Equal(t, canonicalSections, doc.Headings())

	sec, ok := doc.Section(SectionDelivery)
	require.True(t, ok)
	assert.Equal(t, "Content for delivery timeline.", sec.Body)
}

func TestParse_MarkdownDecoratedHeadings(t *testing.T) {
	body := "## BACKGROUND & OBJECTIVE\ntext\n**SCOPE OF WORK**\nmore\nTECHNICAL REQUIREMENTS:\nspecs\n"
	doc, err := Parse(body)
	require.NoError(t, err)
	assert.Equal(t, []string{SectionBackground, SectionScope, SectionTechnical}, doc.Headings())
}

func TestParse_DuplicateHeading(t *testing.T) {
	body := "SCOPE OF WORK\none\nSCOPE OF WORK\ntwo\n"
	_, err := Parse(body)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate section heading")
}

func TestParse_UnrecognizedLinesStayInSection(t *testing.T) {
	body := "TECHNICAL REQUIREMENTS\nVoltage: 400V\nSUBSECTION THE MODEL MADE UP\nmore detail\n"
	doc, err := Parse(body)
	require.NoError(t, err)
	sec, ok := doc.Section(SectionTechnical)
	require.True(t, ok)
	assert.Equal(t, "Voltage: 400V\nSUBSECTION THE MODEL MADE UP\nmore detail", sec.Body)
}

func TestValidateStructure_Valid(t *testing.T) {
	assert.NoError(t, ValidateStructure(validBody()))
}

func TestValidateStructure_MissingSection(t *testing.T) {
	body := strings.Replace(validBody(), SectionCompliance+"\n", "", 1)
	err := ValidateStructure(body)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing section heading: "+SectionCompliance)
}

func TestValidateStructure_OutOfOrder(t *testing.T) {
	var b strings.Builder
	order := append([]string{}, canonicalSections...)
	order[0], order[1] = order[1], order[0]
	for _, h := range order {
		b.WriteString(h + "\ncontent\n")
	}
	err := ValidateStructure(b.String())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of order")
}

func TestSkeleton_IsStructurallyValid(t *testing.T) {
	body := Skeleton("HV battery pack, 98kWh")
	require.NoError(t, ValidateStructure(body))
	assert.Contains(t, body, "HV battery pack, 98kWh")
}

func TestCleanBody_StripsCodeFence(t *testing.T) {
	raw := "```markdown\nBACKGROUND & OBJECTIVE\ntext  \n```"
	assert.Equal(t, "BACKGROUND & OBJECTIVE\ntext", CleanBody(raw))
}

func TestCleanBody_PassthroughPlainBody(t *testing.T) {
	body := "BACKGROUND & OBJECTIVE\ntext"
	assert.Equal(t, body, CleanBody(body))
}

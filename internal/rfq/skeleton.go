package rfq

import "strings"

// Skeleton produces a minimal structurally valid RFQ body for the
// given requirement. Used as the fallback when generation fails
// structural validation twice; the requirement text is echoed into the
// background section so the draft is never empty of user intent.
func Skeleton(requirement string) string {
	var b strings.Builder
	for i, h := range canonicalSections {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(h)
		b.WriteString("\n")
		switch h {
		case SectionBackground:
			b.WriteString("Request for quotation covering: " + strings.TrimSpace(requirement) + "\n")
		case SectionRevision:
			b.WriteString("Rev A - initial draft.\n")
		default:
			b.WriteString("To be completed.\n")
		}
	}
	return b.String()
}

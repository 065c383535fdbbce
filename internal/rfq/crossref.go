package rfq

// sectionCrossRefs maps each section to the sections a procurement
// reviewer should re-check when it changes. The table is fixed; impact
// analysis feeds it to the summarization prompt alongside the diff.
var sectionCrossRefs = map[string][]string{
	SectionBackground: {SectionScope, SectionEvaluation},
	SectionScope:      {SectionTechnical, SectionCommercial, SectionDelivery},
	SectionTechnical:  {SectionCompliance, SectionEvaluation, SectionSLA},
	SectionSLA:        {SectionCommercial, SectionEvaluation},
	SectionCompliance: {SectionTechnical, SectionEvaluation},
	SectionCommercial: {SectionDelivery, SectionSLA},
	SectionDelivery:   {SectionCommercial, SectionScope},
	SectionEvaluation: {SectionTechnical, SectionCommercial},
	SectionRevision:   nil,
}

// RelatedSections returns the sections to flag for review when the
// given section changes. Callers must not mutate the returned slice.
func RelatedSections(heading string) []string {
	return sectionCrossRefs[heading]
}

// ReviewCandidates collects the union of related sections for a set of
// changes, excluding sections that themselves changed, in canonical
// order.
func ReviewCandidates(changes []SectionChange) []string {
	changed := make(map[string]bool, len(changes))
	for _, c := range changes {
		changed[c.Heading] = true
	}
	flagged := make(map[string]bool)
	for _, c := range changes {
		for _, rel := range sectionCrossRefs[c.Heading] {
			if !changed[rel] {
				flagged[rel] = true
			}
		}
	}
	var out []string
	for _, h := range canonicalSections {
		if flagged[h] {
			out = append(out, h)
		}
	}
	return out
}

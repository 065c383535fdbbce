package rfq

// ChangeKind classifies a section-level difference between two bodies.
type ChangeKind string

const (
	ChangeAdded    ChangeKind = "added"
	ChangeRemoved  ChangeKind = "removed"
	ChangeModified ChangeKind = "modified"
)

// SectionChange is one section-level difference. For modified sections
// both OldBody and NewBody are set; added/removed carry only one side.
type SectionChange struct {
	Heading string
	Kind    ChangeKind
	OldBody string
	NewBody string
}

// DiffSections compares two RFQ bodies section by section in canonical
// order. A section is modified only when its body text differs byte
// for byte; neither input is mutated. An empty result means the two
// bodies have identical section content.
func DiffSections(oldBody, newBody string) ([]SectionChange, error) {
	oldDoc, err := Parse(oldBody)
	if err != nil {
		return nil, err
	}
	newDoc, err := Parse(newBody)
	if err != nil {
		return nil, err
	}

	var changes []SectionChange
	for _, h := range canonicalSections {
		oldSec, inOld := oldDoc.Section(h)
		newSec, inNew := newDoc.Section(h)
		switch {
		case inOld && !inNew:
			changes = append(changes, SectionChange{Heading: h, Kind: ChangeRemoved, OldBody: oldSec.Body})
		case !inOld && inNew:
			changes = append(changes, SectionChange{Heading: h, Kind: ChangeAdded, NewBody: newSec.Body})
		case inOld && inNew && oldSec.Body != newSec.Body:
			changes = append(changes, SectionChange{Heading: h, Kind: ChangeModified, OldBody: oldSec.Body, NewBody: newSec.Body})
		}
	}
	return changes, nil
}

// UnchangedOutside reports whether every section of oldBody not listed
// in touched survived byte-identical into newBody. Used to verify that
// an edit stayed within its instruction's scope.
func UnchangedOutside(oldBody, newBody string, touched []string) (bool, error) {
	changes, err := DiffSections(oldBody, newBody)
	if err != nil {
		return false, err
	}
	allowed := make(map[string]bool, len(touched))
	for _, h := range touched {
		allowed[h] = true
	}
	for _, c := range changes {
		if !allowed[c.Heading] {
			return false, nil
		}
	}
	return true, nil
}

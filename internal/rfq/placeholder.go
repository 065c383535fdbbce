package rfq

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MaxImagePlaceholders caps how many image references a single
// generated body may carry.
const MaxImagePlaceholders = 3

var placeholderLineRe = regexp.MustCompile(`^\[\[IMAGE_ID:(\d+)\]\]$`)
var placeholderAnyRe = regexp.MustCompile(`\[\[IMAGE_ID:(\d+)\]\]`)

// ImagePlaceholder marks where [[IMAGE_ID:n]] should render, n being
// the referenced image's numeric ID.
func ImagePlaceholder(id int64) string {
	return fmt.Sprintf("[[IMAGE_ID:%d]]", id)
}

// ExtractImageIDs returns every image ID referenced anywhere in the
// body, in order of appearance, duplicates included.
func ExtractImageIDs(body string) []int64 {
	var ids []int64
	for _, m := range placeholderAnyRe.FindAllStringSubmatch(body, -1) {
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// ValidatePlaceholders enforces the placement and provenance rules for
// image references in a generated body:
//   - a placeholder occupies its own line;
//   - that line directly follows a section heading (blank lines and
//     runs of consecutive placeholders allowed);
//   - at most MaxImagePlaceholders references in total;
//   - every referenced ID appears in allowed.
//
// A placeholder embedded mid-line or an ID absent from allowed is a
// *ParseError.
func ValidatePlaceholders(body string, allowed map[int64]bool) error {
	count := 0
	afterHeading := false
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if headingOf(line) != "" {
			afterHeading = true
			continue
		}
		if trimmed == "" {
			continue
		}
		m := placeholderLineRe.FindStringSubmatch(trimmed)
		if m == nil {
			if placeholderAnyRe.MatchString(line) {
				return &ParseError{Reason: "image placeholder must occupy its own line"}
			}
			afterHeading = false
			continue
		}
		if !afterHeading {
			return &ParseError{Reason: "image placeholder must directly follow a section heading"}
		}
		count++
		if count > MaxImagePlaceholders {
			return &ParseError{Reason: fmt.Sprintf("more than %d image placeholders", MaxImagePlaceholders)}
		}
		id, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil || !allowed[id] {
			return &ParseError{Reason: "image placeholder references unknown image " + m[1]}
		}
	}
	return nil
}

// StripPlaceholders removes all placeholder lines from a body,
// collapsing the blank space they leave behind. Used when exporting
// text-only renditions.
func StripPlaceholders(body string) string {
	lines := strings.Split(body, "\n")
	out := lines[:0]
	for _, line := range lines {
		if placeholderLineRe.MatchString(strings.TrimSpace(line)) {
			continue
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

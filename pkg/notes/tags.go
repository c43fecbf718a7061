package notes

import "strings"

// NormalizeTags canonicalizes a free-text tag list: each tag is trimmed and
// lowercased, empty results are dropped, and duplicates are removed keeping
// the first occurrence. Order of first occurrence is preserved, not sorted.
// Malformed input degrades to fewer tags; this never fails.
func NormalizeTags(tags []string) []string {
	cleaned := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))

	for _, raw := range tags {
		tag := strings.ToLower(strings.TrimSpace(raw))
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		cleaned = append(cleaned, tag)
	}

	return cleaned
}

// SerializeTags normalizes tags and joins them with commas into the single
// text field used for storage. A tag can never legally contain a comma.
func SerializeTags(tags []string) string {
	return strings.Join(NormalizeTags(tags), ",")
}

// ParseTags splits a stored tag field back into a tag list, discarding empty
// segments so an empty field parses to an empty list.
func ParseTags(text string) []string {
	if text == "" {
		return []string{}
	}

	parts := strings.Split(text, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			tags = append(tags, p)
		}
	}

	return tags
}

// HasTag reports whether the normalized form of tag appears in the note's
// normalized tag list.
func HasTag(tags []string, tag string) bool {
	wanted := strings.ToLower(strings.TrimSpace(tag))
	for _, t := range tags {
		if t == wanted {
			return true
		}
	}
	return false
}

package domain

// Post is a feed item that carried at least one agreement code. Posts are
// rebuilt from raw feed data on every pass and discarded when the pass ends.
type Post struct {
	// ID is the feed's identifier for the post, unique within one fetch.
	ID string

	// Title is the display title. The feed adapter substitutes a
	// placeholder when the source omits it.
	Title string

	// Content is the post body as plain text (may be empty).
	Content string

	// Codes are the agreement codes extracted from title+body. Never empty
	// for a post returned by a PostSource.
	Codes []string
}

// HasCode reports whether the post mentions the given agreement code.
func (p Post) HasCode(code string) bool {
	for _, c := range p.Codes {
		if c == code {
			return true
		}
	}
	return false
}

package contact

// Bundle collects the verifiable contact signals extracted from one or more
// pages. Slices are deduplicated and keep extraction order; order is not
// significant.
type Bundle struct {
	Emails    []string `json:"emails"`
	Phones    []string `json:"phones"`
	Addresses []string `json:"addresses"`
}

// Merge folds other into b, deduplicating.
func (b *Bundle) Merge(other Bundle) {
	b.Emails = appendUnique(b.Emails, other.Emails...)
	b.Phones = appendUnique(b.Phones, other.Phones...)
	b.Addresses = appendUnique(b.Addresses, other.Addresses...)
}

// IsSparse reports whether the bundle is below the density that makes a
// contact-page crawl unnecessary.
func (b *Bundle) IsSparse() bool {
	return len(b.Emails) < 2 || len(b.Phones) < 1
}

func appendUnique(dst []string, values ...string) []string {
	seen := make(map[string]struct{}, len(dst))
	for _, v := range dst {
		seen[v] = struct{}{}
	}
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		dst = append(dst, v)
	}
	return dst
}

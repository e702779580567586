package parser

import "strings"

const (
	maxTitleRunes = 64
	asciiPunct    = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
)

// UnknownProductTitle names output files when the listing carries no title.
const UnknownProductTitle = "unknown"

// SanitizeTitle replaces ASCII punctuation and spaces with underscores and
// keeps at most 64 characters.
func SanitizeTitle(title string) string {
	var b strings.Builder
	n := 0
	for _, r := range title {
		if n == maxTitleRunes {
			break
		}
		if r == ' ' || strings.ContainsRune(asciiPunct, r) {
			r = '_'
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}

// OutputFilename names the per-product output file, e.g.
// "Echo_Dot__3rd_Gen____Charcoal-B07XJ8C8F5.csv".
func OutputFilename(productTitle, productID, ext string) string {
	return SanitizeTitle(productTitle) + "-" + productID + ext
}

package parser

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	productIDExpr    = regexp.MustCompile(`^[A-Z0-9]{10}$`)
	productIDPrefix  = regexp.MustCompile(`^[A-Z0-9]{10}`)
	productURLMarks  = []string{"/dp/", "/gp/product/"}
	reviewsPathQuery = "ie=UTF8&reviewerType=all_reviews&showViewpoints=1&sortBy=helpful&pageNumber=%d"
)

// ValidProductID reports whether id is a 10 character uppercase
// alphanumeric product identifier.
func ValidProductID(id string) bool {
	return productIDExpr.MatchString(id)
}

// ExtractProductID pulls the product identifier out of a product page URL.
// The segment following /dp/ or /gp/product/ must start with a valid ID;
// when both markers are present the later one in the list wins.
func ExtractProductID(link string) (string, bool) {
	segment := ""
	for _, mark := range productURLMarks {
		idx := strings.Index(link, mark)
		if idx < 0 {
			continue
		}
		rest := link[idx+len(mark):]
		if slash := strings.IndexByte(rest, '/'); slash >= 0 {
			rest = rest[:slash]
		}
		segment = rest
	}
	id := productIDPrefix.FindString(segment)
	return id, id != ""
}

// ResolveProductID picks the product to scrape: an ID found in productURL
// first, then productID, then fallback.
func ResolveProductID(productID, productURL, fallback string) string {
	if productURL != "" {
		if id, ok := ExtractProductID(productURL); ok {
			return id
		}
	}
	if productID != "" {
		return productID
	}
	return fallback
}

// ReviewsPath builds the site-relative path of one review listing page.
func ReviewsPath(productID string, page int) string {
	if page < 1 {
		page = 1
	}
	return fmt.Sprintf("/product-reviews/%s/ref=cm_cr_arp_d_paging_btm_1?"+reviewsPathQuery, productID, page)
}

package parser

// PageCeiling returns the number of listing pages needed for total reviews.
func PageCeiling(total, perPage int) int {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

// StartPage converts a count of already collected reviews into the first
// page to fetch. A skip that reaches past the last page restarts the walk
// from page 1 rather than clamping to the last page.
func StartPage(skip, ceiling, perPage int) int {
	if perPage <= 0 {
		return 1
	}
	if skip < 0 || skip >= ceiling*perPage {
		skip = 0
	}
	start := (skip + perPage - 1) / perPage
	if start < 1 {
		start = 1
	}
	return start
}

package paginator

import "unicode/utf8"

// ItemBudget is the number of characters left for items on each page once the
// header, footer and fences are accounted for.
func ItemBudget(o Options) int {
	o = o.withDefaults()
	return o.MessageLimit -
		runeLen(o.Header) -
		runeLen(o.Footer) -
		runeLen(o.FenceOpen) -
		runeLen(o.FenceClose)
}

// Layout packs items into pages greedily, left to right. An item joins the
// current page only if the page stays within the item budget and holds fewer
// than MaxPerPage items; otherwise it starts a new page. Items are never split,
// so an item longer than the budget occupies a page of its own. The result
// always has at least one page.
func Layout(o Options) []string {
	o = o.withDefaults()
	budget := ItemBudget(o)
	perPage := o.MaxPerPage
	if perPage < 1 {
		perPage = 1
	}
	sepLen := runeLen(o.Separator)

	var pages []string
	var pageLen, pageItems int

	for _, item := range o.Items {
		itemLen := runeLen(item)
		if len(pages) > 0 && pageLen+sepLen+itemLen <= budget && pageItems < perPage {
			pages[len(pages)-1] += o.Separator + item
			pageLen += sepLen + itemLen
			pageItems++
			continue
		}
		pages = append(pages, item)
		pageLen = itemLen
		pageItems = 1
	}

	if len(pages) == 0 {
		pages = []string{""}
	}
	return pages
}

// Render builds the full message for one page.
func Render(o Options, page string) string {
	o = o.withDefaults()
	return o.Header + o.FenceOpen + page + o.FenceClose + o.Footer
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

package ticket

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

var (
	tierClasses = []string{"onsale", "soldout", "offsale", "upcoming", "but"}

	labelSelectors = []string{".pr8", ".name", ".title", "label .pr8", ".type-title"}

	stopwords = []string{"barcode", "booking fee", "service fee", "info", "terms"}

	// "1st release13,00 €" on rows that lost their data attributes
	closedRow = regexp.MustCompile(`(.+?)(\d+[.,]\d+)\s*€`)
)

const minRowText = 3

// MarkupTickets reads ticket tiers from the rendered ticket widget, in DOM order.
func MarkupTickets(doc *goquery.Document) []Raw {
	if doc.Find("#ticket-sales-ended, #no-tickets-available").Length() > 0 {
		return nil
	}

	var out []Raw
	doc.Find("li").Each(func(_ int, li *goquery.Selection) {
		text := strippedText(li)
		if len([]rune(text)) < minRowText {
			return
		}

		classes := classSet(li)
		switch {
		case hasAny(classes, tierClasses...):
			if raw, ok := tierRow(li, classes); ok {
				out = append(out, raw)
			}
		case classes["closed"]:
			if raw, ok := closedTierRow(text); ok {
				out = append(out, raw)
			}
		}
	})

	return out
}

func tierRow(li *goquery.Selection, classes map[string]bool) (Raw, bool) {
	upcoming := classes["upcoming"]
	if !upcoming && li.Find(`input[name="tickettypes"]`).Length() == 0 {
		return Raw{}, false
	}

	var status Status
	switch {
	case classes["soldout"]:
		status = StatusSoldOut
	case classes["offsale"]:
		status = StatusNoLongerOnSale
	case upcoming:
		status = StatusUpcoming
	default:
		status = StatusValid
	}

	label := tierLabel(li)
	if label == "" || isStopword(label) {
		return Raw{}, false
	}

	var price *float64
	if dp, ok := li.Attr("data-price"); ok && dp != "" {
		price = parseDecimal(dp)
	}
	if price == nil {
		if pe := li.Find(".type-price, .price").First(); pe.Length() > 0 {
			price = firstDecimal(pe.Text())
		}
	}

	return Raw{Title: label, Price: price, Status: status}, true
}

func closedTierRow(text string) (Raw, bool) {
	m := closedRow.FindStringSubmatch(text)
	if len(m) < 3 {
		return Raw{}, false
	}

	title := strings.TrimSpace(m[1])
	price := parseDecimal(m[2])
	if title == "" || price == nil || isStopword(title) {
		return Raw{}, false
	}
	return Raw{Title: title, Price: price, Status: StatusSoldOut}, true
}

func tierLabel(li *goquery.Selection) string {
	for _, selector := range labelSelectors {
		if sel := li.Find(selector).First(); sel.Length() > 0 {
			if label := strippedText(sel); label != "" {
				return label
			}
		}
	}
	return ""
}

func isStopword(label string) bool {
	lower := strings.ToLower(label)
	for _, w := range stopwords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

func classSet(s *goquery.Selection) map[string]bool {
	set := make(map[string]bool)
	if class, ok := s.Attr("class"); ok {
		for _, c := range strings.Fields(class) {
			set[c] = true
		}
	}
	return set
}

func hasAny(set map[string]bool, names ...string) bool {
	for _, n := range names {
		if set[n] {
			return true
		}
	}
	return false
}

// strippedText concatenates every descendant text node with its surrounding
// whitespace removed, so "<b>1st</b> 13 €" becomes "1st13 €".
func strippedText(s *goquery.Selection) string {
	var b strings.Builder
	for _, n := range s.Nodes {
		collectText(n, &b)
	}
	return b.String()
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.TextNode {
		b.WriteString(strings.TrimSpace(n.Data))
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectText(c, b)
	}
}

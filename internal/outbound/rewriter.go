package outbound

import (
	"bytes"
	"fmt"
	"net/url"

	"github.com/PuerkitoBio/goquery"
	"github.com/chunkytofustudios/analytics-gate/pkg/failure"
	"golang.org/x/net/html"
)

// RedirectPath is where rewritten outbound links point.
const RedirectPath = "/out"

const (
	queryURL   = "url"
	queryLabel = "label"

	attrOriginalHref = "data-outbound-href"
)

/*
Rewriter routes external links in served pages through the redirect
endpoint, so a click is tracked before the browser leaves the site.

Only anchors whose target the endpoint would accept are rewritten. The
original target is kept in data-outbound-href.
*/
type Rewriter struct {
	siteOrigin url.URL
}

func NewRewriter(siteOrigin url.URL) Rewriter {
	return Rewriter{siteOrigin: siteOrigin}
}

// Rewrite updates doc in place and returns the number of rewritten links.
func (r Rewriter) Rewrite(doc *goquery.Document) int {
	rewritten := 0
	doc.Find("a[href]").Each(func(_ int, anchor *goquery.Selection) {
		if _, done := anchor.Attr(attrOriginalHref); done {
			return
		}
		href, _ := anchor.Attr("href")
		if href == "" || !IsExternalURL(href, r.siteOrigin) || !redirectable(href) {
			return
		}
		ariaLabel, _ := anchor.Attr("aria-label")
		label := Label(anchor.Text(), ariaLabel, href)

		anchor.SetAttr(attrOriginalHref, href)
		anchor.SetAttr("href", Link(href, label))
		rewritten++
	})
	return rewritten
}

// Link builds the redirect endpoint URL for an outbound target.
func Link(href string, label string) string {
	query := url.Values{}
	query.Set(queryURL, href)
	if label != "" && label != href {
		query.Set(queryLabel, label)
	}
	return RedirectPath + "?" + query.Encode()
}

// Render serializes doc back to HTML.
func Render(doc *goquery.Document) ([]byte, failure.ClassifiedError) {
	var buf bytes.Buffer
	for _, node := range doc.Nodes {
		if err := html.Render(&buf, node); err != nil {
			return nil, &OutboundError{
				Message:   fmt.Sprintf("%v", err),
				Retryable: false,
				Cause:     ErrCauseRenderFailure,
			}
		}
	}
	return buf.Bytes(), nil
}

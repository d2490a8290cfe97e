package utils

import (
	"github.com/microcosm-cc/bluemonday"
)

// EmailPolicy keeps the formatting found in message bodies
var EmailPolicy *bluemonday.Policy

func init() {
	EmailPolicy = bluemonday.UGCPolicy()

	// Allow additional safe elements for email content
	EmailPolicy.AllowElements("p", "br", "div", "span", "h1", "h2", "h3", "h4", "h5", "h6")
	EmailPolicy.AllowElements("strong", "em", "u", "s", "code", "pre", "font", "center")
	EmailPolicy.AllowElements("ul", "ol", "li")
	EmailPolicy.AllowElements("blockquote", "hr")
	EmailPolicy.AllowElements("a", "img")
	EmailPolicy.AllowElements("table", "thead", "tbody", "tr", "th", "td")

	// Allow safe attributes
	EmailPolicy.AllowAttrs("href").OnElements("a")
	EmailPolicy.AllowAttrs("src", "alt", "title", "width", "height").OnElements("img")
	EmailPolicy.AllowAttrs("class", "id").Globally()
	EmailPolicy.AllowAttrs("style").OnElements("span", "div", "p", "td", "table")
	EmailPolicy.AllowAttrs("align", "bgcolor", "border", "cellpadding", "cellspacing").OnElements("table", "td", "th", "tr")
	EmailPolicy.AllowAttrs("color", "face", "size").OnElements("font")

	// Require URLs to be safe and open them outside the app
	EmailPolicy.RequireParseableURLs(true)
	EmailPolicy.AllowURLSchemes("http", "https", "mailto", "cid")
	EmailPolicy.AddTargetBlankToFullyQualifiedLinks(true)
}

// SanitizeHTML cleans a message body before it is rendered into a page
func SanitizeHTML(html string) string {
	return EmailPolicy.Sanitize(html)
}


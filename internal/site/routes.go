package site

import "strings"

const SiteName = "Chunky Tofu Studios"

type Product struct {
	Slug string
	Name string
}

var Products = []Product{
	{Slug: "beehive", Name: "Beehive"},
	{Slug: "pixel-buddy", Name: "Pixel Buddy"},
	{Slug: "dozy", Name: "Dozy"},
}

// DocPages are the legal pages every product carries, by slug.
var DocPages = map[string]string{
	"data-safety":          "Data Safety",
	"privacy-policy":       "Privacy Policy",
	"terms-and-conditions": "Terms & Conditions",
}

// RouteTable maps every known route to its document title.
type RouteTable map[string]string

func NewRouteTable() RouteTable {
	routes := RouteTable{"/": SiteName}
	for _, product := range Products {
		base := "/" + product.Slug
		routes[base] = product.Name + " | " + SiteName
		for slug, title := range DocPages {
			routes[base+"/"+slug] = title + " | " + product.Name
		}
	}
	return routes
}

// Known reports whether path is a route of the site.
func (t RouteTable) Known(path string) bool {
	_, ok := t[normalizePath(path)]
	return ok
}

// Title returns the document title for path, or the site name for
// unknown paths.
func (t RouteTable) Title(path string) string {
	if title, ok := t[normalizePath(path)]; ok {
		return title
	}
	return SiteName
}

func normalizePath(path string) string {
	if path == "" {
		return "/"
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return strings.ToLower(path)
}

package http

import (
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// PaginatedResponse wraps a list payload with its paging window.
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Pagination Pagination  `json:"pagination"`
}

// Pagination is an offset/limit window over a known total.
type Pagination struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
	Total  int `json:"total"`
}

func pageLink(path string, offset, limit int, rel string) string {
	return fmt.Sprintf(`<%s?offset=%d&limit=%d>; rel=%q`, path, offset, limit, rel)
}

// SetLinkHeaders emits RFC 8288 Link headers (first/prev/next/last) for
// the current page.
func SetLinkHeaders(c *fiber.Ctx, p Pagination) {
	path := c.Path()

	links := []string{pageLink(path, 0, p.Limit, "first")}
	if p.Offset > 0 {
		prev := max(p.Offset-p.Limit, 0)
		links = append(links, pageLink(path, prev, p.Limit, "prev"))
	}
	if p.Offset+p.Limit < p.Total {
		links = append(links, pageLink(path, p.Offset+p.Limit, p.Limit, "next"))
	}
	links = append(links, pageLink(path, max(p.Total-p.Limit, 0), p.Limit, "last"))

	c.Set("Link", strings.Join(links, ", "))
}

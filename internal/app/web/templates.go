package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strconv"
	"time"

	"github.com/communitylink/communitylink/internal/app/models"
	"github.com/communitylink/communitylink/internal/app/models/dto"
)

//go:embed templates/*.html
var templateFS embed.FS

// Templates parses the embedded page templates
func Templates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(FuncMap()).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}

// FuncMap returns the helpers available to every page template
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"categories": models.Categories,
		"datetime": func(t time.Time) string {
			return t.Local().Format("02/01/2006 15:04")
		},
		"inputTime": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Local().Format(dto.DateTimeLocalLayout)
		},
		"deref": func(s *string) string {
			if s == nil {
				return ""
			}
			return *s
		},
		"hasCategory": func(list []models.Category, c models.Category) bool {
			for _, v := range list {
				if v == c {
					return true
				}
			}
			return false
		},
		// pageURL keeps the current filters while switching the page parameter
		"pageURL": func(q url.Values, key string, page int) string {
			values := url.Values{}
			for k, v := range q {
				values[k] = append([]string(nil), v...)
			}
			values.Set(key, strconv.Itoa(page))
			return "?" + values.Encode()
		},
		"pager": func(q url.Values, key string, p dto.PaginationInfo) pager {
			return pager{Query: q, Key: key, Info: p}
		},
		"add": func(a, b int) int { return a + b },
	}
}

// pager feeds the "pagination" partial
type pager struct {
	Query url.Values
	Key   string
	Info  dto.PaginationInfo
}

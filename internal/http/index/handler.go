// Package index serves the root page.
package index

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	applog "github.com/janisto/index-page/internal/platform/logging"
)

const (
	// Body is returned verbatim for GET /.
	Body = "This is a index page."
	// ContentType matches what browsers expect for a bare page.
	ContentType = "text/html; charset=utf-8"
)

// Output carries the raw page; huma writes []byte bodies without encoding.
type Output struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

// Register binds GET / to the index handler.
func Register(api huma.API) {
	huma.Register(api, huma.Operation{
		OperationID: "get-index",
		Method:      http.MethodGet,
		Path:        "/",
		Summary:     "Index page",
		Description: "Returns a fixed text body.",
		Tags:        []string{"Index"},
		Responses: map[string]*huma.Response{
			"200": {
				Description: "Index page",
				Content: map[string]*huma.MediaType{
					"text/html": {
						Schema: &huma.Schema{Type: huma.TypeString, Examples: []any{Body}},
					},
				},
			},
		},
	}, getHandler)
}

func getHandler(ctx context.Context, _ *struct{}) (*Output, error) {
	applog.LogDebug(ctx, "index page served")
	return &Output{ContentType: ContentType, Body: []byte(Body)}, nil
}

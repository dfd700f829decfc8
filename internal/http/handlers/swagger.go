package handlers

import (
	_ "embed"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

//go:embed openapi.yaml
var openAPISpec []byte

const swaggerUIHTML = `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width,initial-scale=1" />
    <title>FarmHub API Docs</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
  </head>
  <body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
    <script>
      window.ui = SwaggerUIBundle({
        url: "{{SPEC_URL}}",
        dom_id: "#swagger-ui",
        deepLinking: true,
        presets: [SwaggerUIBundle.presets.apis],
        layout: "BaseLayout"
      });
    </script>
  </body>
</html>`

// SwaggerUI serves the docs page pointing at specURL.
func SwaggerUI(specURL string) gin.HandlerFunc {
	page := []byte(strings.ReplaceAll(swaggerUIHTML, "{{SPEC_URL}}", specURL))
	return func(ctx *gin.Context) {
		ctx.Data(http.StatusOK, "text/html; charset=utf-8", page)
	}
}

func OpenAPISpec(ctx *gin.Context) {
	ctx.Data(http.StatusOK, "application/yaml", openAPISpec)
}

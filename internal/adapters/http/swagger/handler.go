// Package swagger serves the API reference: the OpenAPI document itself
// and a ReDoc page rendering it.
package swagger

import "net/http"

const redocPage = `<!DOCTYPE html>
<html>
<head>
  <title>Recon Analytics API</title>
  <meta charset="utf-8"/>
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <style>body { margin: 0; padding: 0; }</style>
</head>
<body>
  <redoc spec-url="/openapi.yaml"></redoc>
  <script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
</body>
</html>
`

// Register attaches the documentation routes to mux.
func Register(mux *http.ServeMux) {
	mux.HandleFunc("/openapi.yaml", handleSpec)
	mux.HandleFunc("/api-docs", handleDocs)
}

func handleSpec(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(openapiSpec)
}

func handleDocs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(redocPage))
}

package mcp

import (
	"html/template"
	"net/http"
)

var landingTemplate = template.Must(template.New("landing").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>logsearch MCP server</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif; background: #0f172a; color: #e2e8f0; max-width: 640px; margin: 3rem auto; padding: 0 1rem; }
  pre { background: #1e293b; border-radius: 8px; padding: 1rem; overflow-x: auto; }
  code, .endpoint { font-family: "SF Mono", Menlo, monospace; color: #a5b4fc; }
  a { color: #38bdf8; }
</style>
</head>
<body>
<h1>logsearch</h1>
<p>Full-text search over local AI assistant logs via the Model Context Protocol.</p>
<p>Index directory: <code>{{.IndexDir}}</code></p>
<h2>Endpoints</h2>
<p><a href="/mcp" class="endpoint">/mcp</a>: MCP Streamable HTTP (tools: search_logs, index_status, list_locations)</p>
<p><a href="/health" class="endpoint">/health</a>: index health check</p>
<h2>Add to Claude Code</h2>
<pre><code>claude mcp add logsearch --transport http http://{{.Host}}/mcp</code></pre>
</body>
</html>`))

// NewLandingHandler returns an HTTP handler that serves the landing page at /.
func NewLandingHandler(indexDir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		landingTemplate.Execute(w, struct {
			IndexDir string
			Host     string
		}{indexDir, r.Host})
	}
}

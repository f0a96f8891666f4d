package html

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
)

const StaticSubdir = "dist"
const StaticURL = "/static/"

//go:embed dist
var StaticFS embed.FS

var pageStart = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8"><title>%s</title>
<meta name="viewport" content="width=device-width, initial-scale=1, shrink-to-fit=no">
<link rel="stylesheet" href="` + StaticURL + `base.css">
<script type="text/javascript" src="https://www.gstatic.com/charts/loader.js"></script>
<script type="text/javascript" src="` + StaticURL + `flake_chart.js" defer></script>
</head>
<body>
`

const pageEnd = `</body>
</html>
`

// Static returns the embedded assets rooted at their directory.
func Static() (fs.FS, error) {
	return fs.Sub(StaticFS, StaticSubdir)
}

// StaticHandler serves the embedded assets under StaticURL.
func StaticHandler() (http.Handler, error) {
	static, err := Static()
	if err != nil {
		return nil, err
	}
	return http.StripPrefix(StaticURL, http.FileServer(http.FS(static))), nil
}

// WritePage renders body between the shared page header and footer. A body that fails to
// execute is replaced by a 500 response.
func WritePage(w http.ResponseWriter, title string, body *template.Template, data interface{}) error {
	e := func(err error) error {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "%s: %v", http.StatusText(http.StatusInternalServerError), err)
		return err
	}
	rendered := &bytes.Buffer{}
	if err := body.Execute(rendered, data); err != nil {
		return e(err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := fmt.Fprintf(w, pageStart, template.HTMLEscapeString(title)); err != nil {
		return err
	}
	if _, err := rendered.WriteTo(w); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, pageEnd); err != nil {
		return err
	}
	return nil
}

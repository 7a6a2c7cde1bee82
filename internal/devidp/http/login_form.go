package http

import (
	"embed"
	"html/template"
	"net/http"
	"net/url"

	"github.com/aussiebroadwan/authsession/pkg/authsdk"
	"github.com/aussiebroadwan/authsession/pkg/httpx"
	"github.com/aussiebroadwan/authsession/pkg/slogx"
)

//go:embed templates/login.html
var templatesFS embed.FS

var loginTemplate = template.Must(template.ParseFS(templatesFS, "templates/login.html"))

type loginPage struct {
	Action     string
	ClientName string
	Username   string
	Error      string
	Params     map[string]string
}

// renderLogin writes the hosted login form. Authorize parameters travel as
// hidden fields so the POST can be handled without the query string.
func renderLogin(w http.ResponseWriter, r *http.Request, status int, params url.Values, clientName, username, msg string) {
	page := loginPage{
		Action:     authsdk.PathAuthorize,
		ClientName: clientName,
		Username:   username,
		Error:      msg,
		Params:     make(map[string]string, len(params)),
	}
	for k := range params {
		switch k {
		case "username", "password":
			continue
		}
		page.Params[k] = params.Get(k)
	}

	httpx.NoCache(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := loginTemplate.Execute(w, page); err != nil {
		slogx.FromContext(r.Context()).Error("failed to render login form", "error", err)
	}
}

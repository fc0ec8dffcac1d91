package handlers

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"
	"strings"

	"github.com/MrSnakeDoc/smartmarks/internal/domain"
	"github.com/MrSnakeDoc/smartmarks/internal/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"providerLabel": providerLabel,
}

func providerLabel(name string) string {
	switch name {
	case "":
		return ""
	case "google":
		return "Google"
	case "dev":
		return "development account"
	default:
		return strings.ToUpper(name[:1]) + name[1:]
	}
}

var (
	loginPage = parsePage("login.html")
	appPage   = parsePage("app.html")
	tokenPage = parsePage("token.html")
)

func parsePage(name string) *template.Template {
	return template.Must(template.New("layout.html").Funcs(funcs).
		ParseFS(templateFS, "templates/layout.html", "templates/"+name))
}

// render executes the page into a buffer first so a template error never
// leaves a half-written response.
func render(w http.ResponseWriter, log logger.Logger, t *template.Template, name string, status int, data any) {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		log.Error("failed to render template", logger.String("template", name), logger.Error(err))
		http.Error(w, domain.GenericFailureMessage, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps the error taxonomy to an HTTP status.
func statusFor(err error) int {
	var ve *domain.ValidationError
	switch {
	case errors.Is(err, domain.ErrAuthRequired):
		return http.StatusUnauthorized
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, log logger.Logger, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: domain.UserMessage(err)}

	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		resp.Field = ve.Field
	case status == http.StatusUnauthorized:
		resp.Error = "authentication required"
	default:
		log.Warn("request failed", logger.Error(err))
	}
	writeJSON(w, status, resp)
}

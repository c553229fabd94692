package email

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

// AlertData fills templates/alert.html. Details is pre-formatted JSON.
type AlertData struct {
	Label     string
	Timestamp string
	Message   string
	Details   string
}

// RenderAlert renders the ops alert body.
func RenderAlert(data AlertData) (string, error) {
	return render("alert.html", data)
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

package web

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"

	"github.com/hpungsan/countrycache/internal/errors"
)

// errorBody is the JSON error envelope shared by every endpoint.
type errorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(data)
}

// renderError maps err onto the error envelope. INTERNAL messages are
// replaced by internalMsg unless debug mode is on.
func (h *Handlers) renderError(w http.ResponseWriter, err error, internalMsg string) {
	appErr := errors.As(err)

	message := appErr.Message
	if appErr.Code == errors.ErrInternal {
		h.logger.Error("request failed", zap.Error(err))
		if !h.cfg.Debug {
			message = internalMsg
			if message == "" {
				message = "An unexpected error occurred"
			}
		}
	}

	renderJSON(w, appErr.Status, errorBody{
		Error:   errorTitle(appErr),
		Code:    string(appErr.Code),
		Message: message,
	})
}

func errorTitle(e *errors.AppError) string {
	switch e.Code {
	case errors.ErrSourceUnavailable:
		return "External data source unavailable"
	case errors.ErrNotFound:
		if _, ok := e.Details["name"]; ok {
			return "Country not found"
		}
		return "Not found"
	case errors.ErrInvalidRequest:
		if _, ok := e.Details["sort"]; ok {
			return "Invalid sort parameter"
		}
		return "Validation failed"
	case errors.ErrRateLimited:
		return "Too many requests"
	default:
		return "Internal server error"
	}
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

var docsPage = template.Must(template.New("docs").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
{{.Body}}
</body>
</html>
`))

// renderMarkdownPage converts markdown to a standalone HTML page.
func renderMarkdownPage(title string, md []byte) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert(md, &body); err != nil {
		return nil, err
	}

	var page bytes.Buffer
	err := docsPage.Execute(&page, struct {
		Title string
		Body  template.HTML
	}{title, template.HTML(body.String())})
	if err != nil {
		return nil, err
	}
	return page.Bytes(), nil
}

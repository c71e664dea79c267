package handler

import (
	"bytes"
	"html/template"

	"github.com/labstack/echo/v4"

	"github.com/pressify/reprint-hub/internal/core/domain"
)

const layout = `{{define "layout"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}} · Reprint Hub</title>
<style>
body{font-family:system-ui,sans-serif;background:#f5f6f8;color:#1f2933;margin:0}
main{max-width:32rem;margin:4rem auto;background:#fff;padding:2rem;border-radius:8px;box-shadow:0 1px 3px rgba(0,0,0,.1)}
h1{font-size:1.4rem;margin-top:0}
dt{font-weight:600;margin-top:.6rem}
dd{margin:0}
button{margin-top:1.5rem;padding:.5rem 1rem}
</style>
</head>
<body><main>{{template "content" .}}</main></body>
</html>{{end}}`

var errorPage = template.Must(template.Must(template.New("error").Parse(layout)).Parse(`{{define "content"}}
<h1>{{.Title}}</h1>
<p>{{.Message}}</p>
<p>Return to the desktop app and choose "Open in browser" to try again.</p>
{{end}}`))

var dashboardPage = template.Must(template.Must(template.New("dashboard").Parse(layout)).Parse(`{{define "content"}}
<h1>Welcome, {{.Profile.Name}}</h1>
<dl>
<dt>Username</dt><dd>{{.Profile.Username}}</dd>
{{if .Profile.Email}}<dt>Email</dt><dd>{{.Profile.Email}}</dd>{{end}}
{{if .Profile.RoleName}}<dt>Role</dt><dd>{{.Profile.RoleName}}</dd>{{end}}
</dl>
<form method="post" action="/logout"><button type="submit">Sign out</button></form>
{{end}}`))

type errorView struct {
	Title   string
	Message string
}

type dashboardView struct {
	Title   string
	Profile domain.Profile
}

func renderPage(c echo.Context, status int, tpl *template.Template, data any) error {
	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		return err
	}
	return c.HTMLBlob(status, buf.Bytes())
}

func renderError(c echo.Context, status int, title, message string) error {
	return renderPage(c, status, errorPage, errorView{Title: title, Message: message})
}

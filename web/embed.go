// Package web carries the embedded UI assets so the binary ships self-contained.
package web

import "embed"

// TemplatesFS holds the server-rendered HTML templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds stylesheets and other static assets.
//
//go:embed static/*
var StaticFS embed.FS

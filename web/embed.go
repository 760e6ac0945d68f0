// Package web embeds the dashboard's static assets: the stylesheet and the
// small websocket client that swaps panel HTML.
//
// Usage in the API server:
//
//	fs := web.StaticFS() // rooted at static/
package web

import (
	"embed"
	"io/fs"
	"log"
)

//go:embed static
var static embed.FS

// StaticFS returns a filesystem rooted at the embedded static/ directory.
// This is ready to use with http.FileServerFS or http.FS.
func StaticFS() fs.FS {
	sub, err := fs.Sub(static, "static")
	if err != nil {
		log.Fatalf("web.StaticFS: %v", err)
	}
	return sub
}

// Stylesheet returns the dashboard CSS, inlined into static snapshots.
func Stylesheet() string {
	b, err := static.ReadFile("static/style.css")
	if err != nil {
		return ""
	}
	return string(b)
}

// Package web embeds the page templates and form definitions so the
// binary runs without a source tree.  view.Options.OverrideDir can still
// shadow individual templates on disk.
package web

import (
	"embed"
	"io/fs"
)

//go:embed templates forms
var FS embed.FS

// Templates is the template tree rooted so "layout.html" is at the top.
func Templates() fs.FS { return sub("templates") }

// Forms is the form definition tree.
func Forms() fs.FS { return sub("forms") }

func sub(dir string) fs.FS {
	f, err := fs.Sub(FS, dir)
	if err != nil {
		panic(err) // dir is a compile-time constant embedded above
	}
	return f
}

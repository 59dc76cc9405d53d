package main

import (
	"embed"
	"io/fs"

	"github.com/lazypower/chronoscope/internal/server"
)

//go:embed all:ui
var viewer embed.FS

func init() {
	sub, err := fs.Sub(viewer, "ui")
	if err != nil {
		return
	}
	server.SetUI(sub)
}

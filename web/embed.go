package web

import "embed"

// Templates 页面模板，编译进二进制
//
//go:embed templates
var Templates embed.FS

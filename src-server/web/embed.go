// Package web holds the guest and admin page shells served by the route
// package and filled in by the content renderer.
package web

import _ "embed"

//go:embed index.html
var IndexHTML string

//go:embed admin.html
var AdminHTML string

// Package web holds the browser UI served at the root path.
package web

import _ "embed"

//go:embed index.html
var index []byte

// Index returns the single-page UI.
func Index() []byte {
	return index
}

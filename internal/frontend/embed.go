// Package frontend holds the client-side script appended to served HTML.
package frontend

import (
	_ "embed"
	"strconv"
	"strings"
)

//go:embed websocket.html
var snippetTemplate string

// Snippet renders the reload script for a server bound to host:port.
func Snippet(host string, port int) string {
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		host = "[" + host + "]"
	}
	r := strings.NewReplacer("{host}", host, "{port}", strconv.Itoa(port))
	return r.Replace(snippetTemplate)
}

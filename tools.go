//go:build tools
// +build tools

// Development tools pinned in go.mod. Not part of the infrabase binary.

package infrabase

import (
	_ "golang.org/x/tools/cmd/goimports"
)

//go:build tools

// tools pins the code generators used by this module:
// goose applies sql/schema migrations by hand, swag builds the OpenAPI docs
// from the handler annotations.
package tools

import (
	_ "github.com/pressly/goose/v3/cmd/goose"
	_ "github.com/swaggo/swag/cmd/swag"
)

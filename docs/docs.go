// Package docs registers the ledger's Swagger 2.0 document with swag, which
// is where gin-swagger reads it from when serving /swagger/doc.json.
package docs

import (
	_ "embed"

	"github.com/swaggo/swag"
)

//go:embed swagger.json
var document string

type ledgerDoc struct{}

// ReadDoc implements swag.Swagger.
func (ledgerDoc) ReadDoc() string {
	return document
}

func init() {
	swag.Register(swag.Name, ledgerDoc{})
}

// Package migrations embeds SQL migration files for the SQLite stores.
package migrations

import (
	"embed"
	"io/fs"
)

// FS contains the metadata database migrations embedded at compile time.
//
//go:embed *.sql
var FS embed.FS

//go:embed vectors/*.sql
var vectorsFS embed.FS

// VectorsFS returns the vector database migrations.
func VectorsFS() fs.FS {
	sub, err := fs.Sub(vectorsFS, "vectors")
	if err != nil {
		panic(err)
	}
	return sub
}

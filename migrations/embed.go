// Package migrations встраивает SQL-миграции в бинарник, чтобы pkg/migration
// мог применять их через iofs-источник без доступа к файловой системе.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

// Package migrations embeds SQL migration files for use in tests and tooling.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS

// Schema is the full initial schema, applied by integration tests and dev
// tooling. Production deployments run the files in order with their own
// migration runner.
var Schema = mustRead("0001_init.sql")

func mustRead(name string) string {
	data, err := FS.ReadFile(name)
	if err != nil {
		panic("migrations: missing embedded file " + name)
	}
	return string(data)
}

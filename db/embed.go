// Package db carries the index store migrations, one directory per driver.
package db

import "embed"

//go:embed migrations
var Migrations embed.FS

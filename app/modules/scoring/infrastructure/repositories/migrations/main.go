package scoringmigrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()

func init() {
	// Migration IDs are derived from the registering file name.
	if err := Migrations.DiscoverCaller(); err != nil {
		panic(err)
	}
}

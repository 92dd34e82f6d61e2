// Dumps the SQLite schema AutoMigrate generates for the Tavern models:
// each table's DDL, then every named index. After touching the cheer model,
// check that idx_cheer_user_post is still created UNIQUE; that index is what
// enforces one cheer per user per post at the schema level.
package main

import (
	"fmt"
	"log"

	"github.com/glebarez/sqlite"
	"github.com/tavern-app/tavern/internal/database"
	"gorm.io/gorm"
)

type schemaObject struct {
	Name string
	Sql  string
}

func main() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		log.Fatal(err)
	}
	if err := database.AutoMigrate(db); err != nil {
		log.Fatal(err)
	}

	var tables []schemaObject
	db.Raw("SELECT name, sql FROM sqlite_master WHERE type = 'table' ORDER BY name").Scan(&tables)
	for _, t := range tables {
		fmt.Printf("=== table %s ===\n%s\n\n", t.Name, t.Sql)
	}

	var indexes []schemaObject
	db.Raw("SELECT name, sql FROM sqlite_master WHERE type = 'index' AND sql IS NOT NULL ORDER BY name").Scan(&indexes)
	fmt.Println("=== indexes ===")
	for _, ix := range indexes {
		fmt.Println(ix.Sql)
	}
}

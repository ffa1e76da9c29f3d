package migrations

import "gorm.io/gorm"

// migration001Up enables the extensions used by the search indexes
func migration001Up(db *gorm.DB) error {
	return db.Exec("CREATE EXTENSION IF NOT EXISTS pg_trgm").Error
}

// migration001Down keeps pg_trgm installed since other databases on the server may use it
func migration001Down(db *gorm.DB) error {
	return nil
}

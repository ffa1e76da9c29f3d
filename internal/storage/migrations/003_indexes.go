package migrations

import "gorm.io/gorm"

var indexes = map[string]string{
	"idx_users_name_trgm":            "CREATE INDEX IF NOT EXISTS idx_users_name_trgm ON users USING gin ((lower(first_name || ' ' || last_name)) gin_trgm_ops)",
	"idx_users_email_trgm":           "CREATE INDEX IF NOT EXISTS idx_users_email_trgm ON users USING gin (lower(email) gin_trgm_ops)",
	"idx_events_dates":               "CREATE INDEX IF NOT EXISTS idx_events_dates ON events(start_date, end_date)",
	"idx_enrollments_event_kind":     "CREATE INDEX IF NOT EXISTS idx_enrollments_event_kind ON enrollments(event_id, kind, state)",
	"idx_enrollments_unconfirmed":    "CREATE INDEX IF NOT EXISTS idx_enrollments_unconfirmed ON enrollments(registered_at) WHERE confirmed = false",
	"idx_enrollments_profile":        "CREATE INDEX IF NOT EXISTS idx_enrollments_profile ON enrollments(profile_id)",
	"idx_scores_evaluator_event":     "CREATE INDEX IF NOT EXISTS idx_scores_evaluator_event ON scores(evaluator_id, event_id)",
	"idx_invitation_codes_user_kind": "CREATE INDEX IF NOT EXISTS idx_invitation_codes_user_kind ON invitation_codes(user_id, kind, created_at DESC)",
}

// migration003Up creates lookup and search indexes
func migration003Up(db *gorm.DB) error {
	for _, indexSQL := range indexes {
		if err := db.Exec(indexSQL).Error; err != nil {
			return err
		}
	}
	return nil
}

// migration003Down drops the indexes created by migration003Up
func migration003Down(db *gorm.DB) error {
	for name := range indexes {
		if err := db.Exec("DROP INDEX IF EXISTS " + name).Error; err != nil {
			return err
		}
	}
	return nil
}

package migrations

import "gorm.io/gorm"

var constraints = []struct {
	table, name, check string
}{
	{"events", "valid_event_dates", "end_date >= start_date"},
	{"events", "non_negative_capacity", "capacity >= 0"},
	{"criteria", "positive_weight", "weight > 0"},
	{"scores", "score_in_range", "value BETWEEN 1 AND 5"},
	{"invitation_codes", "non_negative_quota", "event_quota >= 0"},
}

// migration004Up adds check constraints and the trigger keeping each event's criteria within 100 points
func migration004Up(db *gorm.DB) error {
	for _, c := range constraints {
		sql := "ALTER TABLE " + c.table + " ADD CONSTRAINT " + c.name + " CHECK (" + c.check + ")"
		if err := db.Exec(sql).Error; err != nil {
			return err
		}
	}

	statements := []string{
		`CREATE OR REPLACE FUNCTION check_criteria_weight()
        RETURNS TRIGGER AS $$
        DECLARE
            total DOUBLE PRECISION;
        BEGIN
            SELECT COALESCE(SUM(weight), 0) INTO total
            FROM criteria
            WHERE event_id = NEW.event_id;

            IF total > 100 + 1e-9 THEN
                RAISE EXCEPTION 'criteria of event % weigh % points, above 100', NEW.event_id, total;
            END IF;

            RETURN NEW;
        END;
        $$ LANGUAGE plpgsql`,
		`CREATE CONSTRAINT TRIGGER trigger_check_criteria_weight
        AFTER INSERT OR UPDATE ON criteria
        DEFERRABLE INITIALLY DEFERRED
        FOR EACH ROW EXECUTE FUNCTION check_criteria_weight()`,
	}

	for _, sql := range statements {
		if err := db.Exec(sql).Error; err != nil {
			return err
		}
	}
	return nil
}

// migration004Down drops the trigger, its function and the check constraints
func migration004Down(db *gorm.DB) error {
	if err := db.Exec("DROP TRIGGER IF EXISTS trigger_check_criteria_weight ON criteria").Error; err != nil {
		return err
	}
	if err := db.Exec("DROP FUNCTION IF EXISTS check_criteria_weight() CASCADE").Error; err != nil {
		return err
	}
	for _, c := range constraints {
		if err := db.Exec("ALTER TABLE " + c.table + " DROP CONSTRAINT IF EXISTS " + c.name).Error; err != nil {
			return err
		}
	}
	return nil
}

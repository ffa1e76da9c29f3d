package migrations

import (
	"github.com/gravadigital/eventsoft-api/internal/domain/account"
	"github.com/gravadigital/eventsoft-api/internal/domain/certificate"
	"github.com/gravadigital/eventsoft-api/internal/domain/criterion"
	"github.com/gravadigital/eventsoft-api/internal/domain/enrollment"
	"github.com/gravadigital/eventsoft-api/internal/domain/event"
	"github.com/gravadigital/eventsoft-api/internal/domain/invitation"
	"github.com/gravadigital/eventsoft-api/internal/domain/notification"
	"github.com/gravadigital/eventsoft-api/internal/domain/scoring"
)

// AllModels returns every persisted model in dependency order
func AllModels() []any {
	return append(PortableModels(), &notification.Notification{})
}

// PortableModels leaves out the models that need PostgreSQL column types
func PortableModels() []any {
	return []any{
		&account.User{},
		&account.Profile{},
		&account.RoleBinding{},
		&invitation.Code{},
		&event.Event{},
		&enrollment.Enrollment{},
		&enrollment.CapacityAdjustment{},
		&criterion.Criterion{},
		&scoring.Score{},
		&certificate.Template{},
	}
}

// tablesInDropOrder lists the tables created by AllModels, dependents first
var tablesInDropOrder = []string{
	"notifications",
	"certificate_templates",
	"scores",
	"criteria",
	"capacity_adjustments",
	"enrollments",
	"events",
	"invitation_codes",
	"role_bindings",
	"profiles",
	"users",
}

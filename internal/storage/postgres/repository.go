package postgres

import (
	"context"

	"github.com/gravadigital/eventsoft-api/internal/domain/certificate"
	"github.com/gravadigital/eventsoft-api/internal/domain/common"
	"github.com/gravadigital/eventsoft-api/internal/domain/criterion"
	"github.com/gravadigital/eventsoft-api/internal/domain/enrollment"
	"github.com/gravadigital/eventsoft-api/internal/domain/invitation"
	"github.com/gravadigital/eventsoft-api/internal/domain/notification"
	"github.com/gravadigital/eventsoft-api/internal/domain/ranking"
	"github.com/gravadigital/eventsoft-api/internal/domain/scoring"
)

// RepositoryContainer gives access to every repository backed by one database
type RepositoryContainer interface {
	UnitOfWork() *UnitOfWork
	Accounts() *PostgresAccountRepository
	Events() *PostgresEventRepository
	Enrollments() *PostgresEnrollmentRepository
	Criteria() *PostgresCriterionRepository
	Scores() *PostgresScoreRepository
	Invitations() *PostgresInvitationRepository
	Certificates() *PostgresCertificateRepository
	Notifications() *PostgresNotificationRepository
	Health(ctx context.Context) error
	Close() error
}

var (
	_ RepositoryContainer = (*Container)(nil)

	_ common.UnitOfWork = (*UnitOfWork)(nil)

	_ enrollment.Repository   = (*PostgresEnrollmentRepository)(nil)
	_ enrollment.EventStore   = (*PostgresEventRepository)(nil)
	_ enrollment.AccountStore = (*PostgresAccountRepository)(nil)
	_ enrollment.ScorePurger  = (*PostgresScoreRepository)(nil)

	_ criterion.Repository  = (*PostgresCriterionRepository)(nil)
	_ criterion.EventLocker = (*PostgresEventRepository)(nil)
	_ criterion.ScoreStore  = (*PostgresScoreRepository)(nil)

	_ scoring.Repository  = (*PostgresScoreRepository)(nil)
	_ scoring.Criteria    = (*PostgresCriterionRepository)(nil)
	_ scoring.Enrollments = (*PostgresEnrollmentRepository)(nil)

	_ ranking.Participants = (*PostgresEnrollmentRepository)(nil)

	_ invitation.Repository   = (*PostgresInvitationRepository)(nil)
	_ certificate.Repository  = (*PostgresCertificateRepository)(nil)
	_ notification.Repository = (*PostgresNotificationRepository)(nil)
)

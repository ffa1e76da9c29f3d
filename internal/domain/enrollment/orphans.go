package enrollment

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/gravadigital/eventsoft-api/internal/domain/account"
	"github.com/gravadigital/eventsoft-api/internal/logger"
)

// Policy selects when an orphaned user may be removed
type Policy byte

const (
	// PolicyRejection removes the user once no profile and no role binding remain
	PolicyRejection Policy = iota + 1
	// PolicyUnconfirmed additionally keeps users that already activated their account
	PolicyUnconfirmed
)

// OrphanCollector removes identity wrappers left without enrollments and the users left without wrappers.
// It must run inside the caller's transaction.
type OrphanCollector struct {
	enrollments Repository
	accounts    AccountStore
	scores      ScorePurger
	log         *log.Logger
}

func NewOrphanCollector(enrollments Repository, accounts AccountStore, scores ScorePurger) *OrphanCollector {
	return &OrphanCollector{
		enrollments: enrollments,
		accounts:    accounts,
		scores:      scores,
		log:         logger.Service("orphan_collector"),
	}
}

// Collect deletes the profile when it has no enrollments left, then the user when nothing else holds it.
// It reports whether the user was deleted.
func (c *OrphanCollector) Collect(ctx context.Context, profileID uuid.UUID, policy Policy) (bool, error) {
	remaining, err := c.enrollments.CountByProfile(ctx, profileID)
	if err != nil {
		return false, fmt.Errorf("OrphanCollector.Collect -> %w", err)
	}
	if remaining > 0 {
		return false, nil
	}

	profile, err := c.accounts.GetProfile(ctx, profileID)
	if errors.Is(err, account.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("OrphanCollector.Collect -> %w", err)
	}

	if err := c.scores.PurgeProfile(ctx, profileID); err != nil {
		return false, fmt.Errorf("OrphanCollector.Collect -> %w", err)
	}
	if err := c.accounts.DeleteProfile(ctx, profileID); err != nil {
		return false, fmt.Errorf("OrphanCollector.Collect -> %w", err)
	}
	if err := c.accounts.DeleteRoleBinding(ctx, profile.UserID, account.RoleForKind(profile.Kind)); err != nil {
		return false, fmt.Errorf("OrphanCollector.Collect -> %w", err)
	}
	c.log.Debug("Orphan profile removed", "profile_id", profileID, "kind", profile.Kind)

	profiles, err := c.accounts.CountProfiles(ctx, profile.UserID)
	if err != nil {
		return false, fmt.Errorf("OrphanCollector.Collect -> %w", err)
	}
	bindings, err := c.accounts.CountRoleBindings(ctx, profile.UserID)
	if err != nil {
		return false, fmt.Errorf("OrphanCollector.Collect -> %w", err)
	}
	if profiles > 0 || bindings > 0 {
		return false, nil
	}

	if policy == PolicyUnconfirmed {
		user, err := c.accounts.GetUser(ctx, profile.UserID)
		if err != nil {
			return false, fmt.Errorf("OrphanCollector.Collect -> %w", err)
		}
		if user.Active {
			return false, nil
		}
	}

	if err := c.accounts.DeleteUser(ctx, profile.UserID); err != nil {
		return false, fmt.Errorf("OrphanCollector.Collect -> %w", err)
	}
	c.log.Info("Orphan user removed", "user_id", profile.UserID)
	return true, nil
}

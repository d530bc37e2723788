package businessflow

import (
	"context"
	"fmt"
	"log"

	"github.com/ptichkin/brooder/models"
	"github.com/ptichkin/brooder/repository"
)

// AdminRosterCache drops the cached admin set after membership changes
// and answers roster lookups from the cache. Nil is allowed when no cache is
// wired; lookups then go straight to the repository.
type AdminRosterCache interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	Invalidate(ctx context.Context) error
}

// AdminFlow manages the admin roster
type AdminFlow interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
	AddAdmin(ctx context.Context, actor *Actor, userID int64) error
	RemoveAdmin(ctx context.Context, actor *Actor, userID int64) error
	ListAdmins(ctx context.Context, actor *Actor) ([]*models.Admin, error)
}

// AdminFlowImpl implements the admin roster business flow
type AdminFlowImpl struct {
	adminRepo repository.AdminRepository
	cache     AdminRosterCache
}

// NewAdminFlow creates a new admin flow instance
func NewAdminFlow(adminRepo repository.AdminRepository, cache AdminRosterCache) AdminFlow {
	return &AdminFlowImpl{
		adminRepo: adminRepo,
		cache:     cache,
	}
}

// IsAdmin reports whether a user is on the roster, answering from the cache
// when one is wired
func (a *AdminFlowImpl) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	if a.cache != nil {
		return a.cache.IsAdmin(ctx, userID)
	}
	return a.adminRepo.IsAdmin(ctx, userID)
}

// AddAdmin grants admin rights to a user. Admin only.
func (a *AdminFlowImpl) AddAdmin(ctx context.Context, actor *Actor, userID int64) error {
	if !actor.IsAdmin {
		return ErrNotAuthorized
	}
	if err := a.adminRepo.Add(ctx, userID, &actor.UserID); err != nil {
		return fmt.Errorf("failed to add admin: %w", err)
	}
	a.invalidateCache(ctx)
	return nil
}

// RemoveAdmin revokes admin rights. Admins cannot remove themselves, so the
// roster can never become empty by accident.
func (a *AdminFlowImpl) RemoveAdmin(ctx context.Context, actor *Actor, userID int64) error {
	if !actor.IsAdmin {
		return ErrNotAuthorized
	}
	if actor.UserID == userID {
		return NewBusinessError("ADMIN_SELF_REMOVE", "admins cannot remove themselves", nil)
	}
	if err := a.adminRepo.Remove(ctx, userID); err != nil {
		return fmt.Errorf("failed to remove admin: %w", err)
	}
	a.invalidateCache(ctx)
	return nil
}

// ListAdmins returns the full roster. Admin only.
func (a *AdminFlowImpl) ListAdmins(ctx context.Context, actor *Actor) ([]*models.Admin, error) {
	if !actor.IsAdmin {
		return nil, ErrNotAuthorized
	}
	return a.adminRepo.List(ctx)
}

func (a *AdminFlowImpl) invalidateCache(ctx context.Context) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Invalidate(ctx); err != nil {
		log.Printf("admin flow: cache invalidation failed: %v", err)
	}
}

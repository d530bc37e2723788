package businessflow

import (
	"context"
	"fmt"
	"log"

	"github.com/ptichkin/brooder/config"
	"github.com/ptichkin/brooder/models"
	"github.com/ptichkin/brooder/repository"
	"github.com/ptichkin/brooder/utils"
)

// PhoneGuardFlow screens order phone numbers before any stock is touched.
// Check order: block list, trust list, attempt counter, unverified cap.
// Trusted phones bypass the counter and the quantity cap entirely.
type PhoneGuardFlow interface {
	Authorize(ctx context.Context, phone string, quantity int) error
	GrantTrust(ctx context.Context, phone string, userID int64, markedBy *int64, source models.TrustSource) error
	RevokeTrust(ctx context.Context, actor *Actor, phone string) error
	Block(ctx context.Context, actor *Actor, phone, reason string) error
	Unblock(ctx context.Context, actor *Actor, phone string) error
	IsTrusted(ctx context.Context, phone string) (bool, error)
	IsBlocked(ctx context.Context, phone string) (bool, error)
}

// PhoneGuardFlowImpl implements the phone guard business flow
type PhoneGuardFlowImpl struct {
	phoneRepo repository.PhoneRepository
	guardCfg  config.GuardConfig
}

// NewPhoneGuardFlow creates a new phone guard flow instance
func NewPhoneGuardFlow(phoneRepo repository.PhoneRepository, guardCfg config.GuardConfig) PhoneGuardFlow {
	return &PhoneGuardFlowImpl{
		phoneRepo: phoneRepo,
		guardCfg:  guardCfg,
	}
}

// Authorize decides whether an order attempt for the given phone and quantity
// may proceed. Every unverified attempt counts toward the rolling window; once
// the window already holds the threshold, the next attempt escalates to a
// block. The count check runs before the increment, so the block lands on the
// attempt that exceeds the threshold, not the one that reaches it.
func (p *PhoneGuardFlowImpl) Authorize(ctx context.Context, phone string, quantity int) error {
	normalized, err := utils.NormalizePhone(phone)
	if err != nil {
		return ErrPhoneInvalid
	}

	blocked, err := p.phoneRepo.IsBlocked(ctx, normalized)
	if err != nil {
		return fmt.Errorf("failed to check block list: %w", err)
	}
	if blocked {
		return ErrPhoneBlocked
	}

	trusted, err := p.phoneRepo.IsTrusted(ctx, normalized)
	if err != nil {
		return fmt.Errorf("failed to check trust list: %w", err)
	}
	if trusted {
		return nil
	}

	attempts, err := p.phoneRepo.Attempts(ctx, normalized, p.guardCfg.AttemptWindow)
	if err != nil {
		return fmt.Errorf("failed to count attempts: %w", err)
	}
	if attempts >= p.guardCfg.MaxAttempts {
		reason := fmt.Sprintf("%d unverified attempts within %s", attempts, p.guardCfg.AttemptWindow)
		if err := p.phoneRepo.Block(ctx, normalized, reason, p.guardCfg.BlockDuration); err != nil {
			return fmt.Errorf("failed to block phone: %w", err)
		}
		log.Printf("phone guard: blocked %s after %d attempts", normalized, attempts)
		return ErrPhoneBlocked
	}
	if err := p.phoneRepo.AddAttempt(ctx, normalized); err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}

	if quantity > p.guardCfg.UnverifiedMaxQuantity {
		return ErrUnverifiedQuantityCap
	}
	return nil
}

// GrantTrust marks a phone as trusted. Re-granting refreshes the record.
func (p *PhoneGuardFlowImpl) GrantTrust(ctx context.Context, phone string, userID int64, markedBy *int64, source models.TrustSource) error {
	normalized, err := utils.NormalizePhone(phone)
	if err != nil {
		return ErrPhoneInvalid
	}
	if err := p.phoneRepo.Trust(ctx, normalized, userID, markedBy, source); err != nil {
		return fmt.Errorf("failed to grant trust: %w", err)
	}
	if err := p.phoneRepo.ResetAttempts(ctx, normalized); err != nil {
		log.Printf("phone guard: failed to reset attempts for %s: %v", normalized, err)
	}
	return nil
}

// RevokeTrust removes a phone from the trust list. Admin only.
func (p *PhoneGuardFlowImpl) RevokeTrust(ctx context.Context, actor *Actor, phone string) error {
	if !actor.IsAdmin {
		return ErrNotAuthorized
	}
	normalized, err := utils.NormalizePhone(phone)
	if err != nil {
		return ErrPhoneInvalid
	}
	return p.phoneRepo.Untrust(ctx, normalized)
}

// Block adds a phone to the block list with an indefinite duration. Admin only.
func (p *PhoneGuardFlowImpl) Block(ctx context.Context, actor *Actor, phone, reason string) error {
	if !actor.IsAdmin {
		return ErrNotAuthorized
	}
	normalized, err := utils.NormalizePhone(phone)
	if err != nil {
		return ErrPhoneInvalid
	}
	return p.phoneRepo.Block(ctx, normalized, reason, 0)
}

// Unblock removes a phone from the block list and clears its attempt counter.
// Admin only.
func (p *PhoneGuardFlowImpl) Unblock(ctx context.Context, actor *Actor, phone string) error {
	if !actor.IsAdmin {
		return ErrNotAuthorized
	}
	normalized, err := utils.NormalizePhone(phone)
	if err != nil {
		return ErrPhoneInvalid
	}
	if err := p.phoneRepo.Unblock(ctx, normalized); err != nil {
		return fmt.Errorf("failed to unblock phone: %w", err)
	}
	return p.phoneRepo.ResetAttempts(ctx, normalized)
}

// IsTrusted reports whether a phone is on the trust list
func (p *PhoneGuardFlowImpl) IsTrusted(ctx context.Context, phone string) (bool, error) {
	normalized, err := utils.NormalizePhone(phone)
	if err != nil {
		return false, ErrPhoneInvalid
	}
	return p.phoneRepo.IsTrusted(ctx, normalized)
}

// IsBlocked reports whether a phone is currently blocked
func (p *PhoneGuardFlowImpl) IsBlocked(ctx context.Context, phone string) (bool, error) {
	normalized, err := utils.NormalizePhone(phone)
	if err != nil {
		return false, ErrPhoneInvalid
	}
	return p.phoneRepo.IsBlocked(ctx, normalized)
}

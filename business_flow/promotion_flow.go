package businessflow

import (
	"context"
	"fmt"

	"github.com/ptichkin/brooder/app/dto"
	"github.com/ptichkin/brooder/models"
	"github.com/ptichkin/brooder/repository"
	"github.com/ptichkin/brooder/utils"
)

// PromotionFlow handles promotional announcements shown to customers
type PromotionFlow interface {
	CreatePromotion(ctx context.Context, actor *Actor, req *dto.CreatePromotionRequest) (*dto.PromotionResponse, error)
	ActivePromotions(ctx context.Context, limit int) ([]dto.PromotionResponse, error)
	AllPromotions(ctx context.Context, actor *Actor) ([]dto.PromotionResponse, error)
	DeactivatePromotion(ctx context.Context, actor *Actor, promoID uint) error
}

// PromotionFlowImpl implements the promotion business flow
type PromotionFlowImpl struct {
	promoRepo repository.PromotionRepository
}

// NewPromotionFlow creates a new promotion flow instance
func NewPromotionFlow(promoRepo repository.PromotionRepository) PromotionFlow {
	return &PromotionFlowImpl{promoRepo: promoRepo}
}

// CreatePromotion publishes a new announcement. Admin only.
func (p *PromotionFlowImpl) CreatePromotion(ctx context.Context, actor *Actor, req *dto.CreatePromotionRequest) (*dto.PromotionResponse, error) {
	if !actor.IsAdmin {
		return nil, ErrNotAuthorized
	}

	promo := &models.Promotion{
		Title:       req.Title,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		IsActive:    utils.ToPtr(true),
	}
	if req.StartDate != nil {
		date, err := parseDate(*req.StartDate)
		if err != nil {
			return nil, fmt.Errorf("invalid start date: %w", err)
		}
		promo.StartDate = &date
	}
	if req.EndDate != nil {
		date, err := parseDate(*req.EndDate)
		if err != nil {
			return nil, fmt.Errorf("invalid end date: %w", err)
		}
		promo.EndDate = &date
	}

	if err := p.promoRepo.Save(ctx, promo); err != nil {
		return nil, fmt.Errorf("failed to create promotion: %w", err)
	}

	resp := ToPromotionDTO(promo)
	return &resp, nil
}

// ActivePromotions lists promotions running today, newest first
func (p *PromotionFlowImpl) ActivePromotions(ctx context.Context, limit int) ([]dto.PromotionResponse, error) {
	today := utils.DateOnly(utils.UTCNow())
	promos, err := p.promoRepo.ActiveOn(ctx, today, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list promotions: %w", err)
	}
	out := make([]dto.PromotionResponse, 0, len(promos))
	for _, promo := range promos {
		out = append(out, ToPromotionDTO(promo))
	}
	return out, nil
}

// AllPromotions lists every promotion, active or not. Admin only.
func (p *PromotionFlowImpl) AllPromotions(ctx context.Context, actor *Actor) ([]dto.PromotionResponse, error) {
	if !actor.IsAdmin {
		return nil, ErrNotAuthorized
	}
	promos, err := p.promoRepo.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list promotions: %w", err)
	}
	out := make([]dto.PromotionResponse, 0, len(promos))
	for _, promo := range promos {
		out = append(out, ToPromotionDTO(promo))
	}
	return out, nil
}

// DeactivatePromotion retires a promotion without deleting its history.
// Admin only.
func (p *PromotionFlowImpl) DeactivatePromotion(ctx context.Context, actor *Actor, promoID uint) error {
	if !actor.IsAdmin {
		return ErrNotAuthorized
	}
	promo, err := p.promoRepo.ByID(ctx, promoID)
	if err != nil {
		return err
	}
	if promo == nil {
		return ErrPromotionNotFound
	}
	return p.promoRepo.SetActive(ctx, promoID, false)
}

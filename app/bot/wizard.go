// Package bot implements the conversational order wizard consumed by the
// chat gateway: each method advances one user's session and returns what the
// gateway should render next.
package bot

import (
	"context"
	"errors"
	"fmt"

	"github.com/ptichkin/brooder/app/dto"
	"github.com/ptichkin/brooder/app/session"
	businessflow "github.com/ptichkin/brooder/business_flow"
	"github.com/ptichkin/brooder/utils"
)

// ErrWrongStep is returned when input arrives for a step the user is not on
var ErrWrongStep = errors.New("input does not match the current wizard step")

// Wizard walks a customer through batch selection to a placed order
type Wizard struct {
	sessions  *session.Store
	stockFlow businessflow.StockFlow
	orderFlow businessflow.OrderFlow
	guard     businessflow.PhoneGuardFlow
}

// NewWizard creates a new order wizard
func NewWizard(
	sessions *session.Store,
	stockFlow businessflow.StockFlow,
	orderFlow businessflow.OrderFlow,
	guard businessflow.PhoneGuardFlow,
) *Wizard {
	return &Wizard{
		sessions:  sessions,
		stockFlow: stockFlow,
		orderFlow: orderFlow,
		guard:     guard,
	}
}

// Prompt tells the gateway which step to render and with what context
type Prompt struct {
	Step  session.Step
	Draft session.OrderDraft
}

// Start enters the wizard at breed selection
func (w *Wizard) Start(userID int64) Prompt {
	var p Prompt
	w.sessions.Update(userID, func(s *session.Session) {
		s.Reset()
		s.Push(session.StepSelectBreed)
		p = Prompt{Step: s.Current(), Draft: s.Draft}
	})
	return p
}

// Back pops one step and returns the step to re-render
func (w *Wizard) Back(userID int64) Prompt {
	var p Prompt
	w.sessions.Update(userID, func(s *session.Session) {
		p = Prompt{Step: s.Back(), Draft: s.Draft}
	})
	return p
}

// Current returns the step on top of the user's stack
func (w *Wizard) Current(userID int64) Prompt {
	s := w.sessions.Get(userID)
	return Prompt{Step: s.Current(), Draft: s.Draft}
}

// SelectBreed records the breed and advances to facility selection
func (w *Wizard) SelectBreed(userID int64, breed string) (Prompt, error) {
	return w.advance(userID, session.StepSelectBreed, session.StepSelectIncubator, func(d *session.OrderDraft) {
		d.Breed = breed
	})
}

// SelectIncubator records the facility and advances to date selection
func (w *Wizard) SelectIncubator(userID int64, incubator string) (Prompt, error) {
	return w.advance(userID, session.StepSelectIncubator, session.StepSelectDate, func(d *session.OrderDraft) {
		d.Incubator = incubator
	})
}

// SelectDate resolves the chosen batch and advances to quantity entry
func (w *Wizard) SelectDate(ctx context.Context, userID int64, date string) (Prompt, error) {
	s := w.sessions.Get(userID)
	if s.Current() != session.StepSelectDate {
		return Prompt{}, fmt.Errorf("%w: at %s, expected %s", ErrWrongStep, s.Current(), session.StepSelectDate)
	}

	stock, err := w.findBatch(ctx, s.Draft.Breed, s.Draft.Incubator, date)
	if err != nil {
		return Prompt{}, err
	}

	return w.advance(userID, session.StepSelectDate, session.StepEnterQuantity, func(d *session.OrderDraft) {
		d.Date = date
		d.StockID = stock.ID
	})
}

// EnterQuantity validates the quantity against current availability and
// advances to phone entry, or straight to confirmation when a phone is
// already on file from an earlier run.
func (w *Wizard) EnterQuantity(ctx context.Context, userID int64, quantity int) (Prompt, error) {
	if quantity <= 0 {
		return Prompt{}, businessflow.ErrQuantityInvalid
	}
	s := w.sessions.Get(userID)
	if s.Current() != session.StepEnterQuantity {
		return Prompt{}, fmt.Errorf("%w: at %s, expected %s", ErrWrongStep, s.Current(), session.StepEnterQuantity)
	}

	stock, err := w.stockFlow.GetStock(ctx, s.Draft.StockID)
	if err != nil {
		return Prompt{}, err
	}
	if stock.AvailableQuantity < quantity {
		return Prompt{}, &businessflow.InsufficientStockError{
			StockID:   s.Draft.StockID,
			Requested: quantity,
			Available: stock.AvailableQuantity,
		}
	}

	p, err := w.advance(userID, session.StepEnterQuantity, session.StepEnterPhone, func(d *session.OrderDraft) {
		d.Quantity = quantity
	})
	if err != nil {
		return p, err
	}
	// A preserved phone lets repeat customers skip straight to confirm.
	if p.Draft.Phone != "" {
		return w.advance(userID, session.StepEnterPhone, session.StepConfirm, nil)
	}
	return p, nil
}

// EnterPhone normalizes the phone, rejects blocked numbers before the draft
// accepts them, and advances to confirmation
func (w *Wizard) EnterPhone(ctx context.Context, userID int64, phone string) (Prompt, error) {
	normalized, err := utils.NormalizePhone(phone)
	if err != nil {
		return Prompt{}, businessflow.ErrPhoneInvalid
	}
	blocked, err := w.guard.IsBlocked(ctx, normalized)
	if err != nil {
		return Prompt{}, err
	}
	if blocked {
		return Prompt{}, businessflow.ErrPhoneBlocked
	}
	return w.advance(userID, session.StepEnterPhone, session.StepConfirm, func(d *session.OrderDraft) {
		d.Phone = normalized
	})
}

// Confirm places the order from the collected draft and resets the wizard.
// The phone survives the reset for the next run.
func (w *Wizard) Confirm(ctx context.Context, userID int64, fullName, username string) (*dto.OrderResponse, error) {
	s := w.sessions.Get(userID)
	if s.Current() != session.StepConfirm {
		return nil, fmt.Errorf("%w: at %s, expected %s", ErrWrongStep, s.Current(), session.StepConfirm)
	}

	order, err := w.orderFlow.PlaceOrder(ctx, &dto.PlaceOrderRequest{
		UserID:   userID,
		FullName: fullName,
		Username: username,
		Phone:    s.Draft.Phone,
		StockID:  s.Draft.StockID,
		Quantity: s.Draft.Quantity,
	})
	if err != nil {
		return nil, err
	}

	w.sessions.Update(userID, func(s *session.Session) { s.Reset() })
	return order, nil
}

// Cancel abandons the wizard and returns to the menu
func (w *Wizard) Cancel(userID int64) {
	w.sessions.Update(userID, func(s *session.Session) { s.Reset() })
}

func (w *Wizard) advance(userID int64, from, to session.Step, apply func(*session.OrderDraft)) (Prompt, error) {
	var p Prompt
	var err error
	w.sessions.Update(userID, func(s *session.Session) {
		if s.Current() != from {
			err = fmt.Errorf("%w: at %s, expected %s", ErrWrongStep, s.Current(), from)
			return
		}
		if apply != nil {
			apply(&s.Draft)
		}
		if !s.Push(to) {
			err = fmt.Errorf("illegal transition %s -> %s", from, to)
			return
		}
		p = Prompt{Step: s.Current(), Draft: s.Draft}
	})
	return p, err
}

// findBatch locates the active batch matching the draft's breed, facility
// and date among the available listing.
func (w *Wizard) findBatch(ctx context.Context, breed, incubator, date string) (*dto.StockResponse, error) {
	listing, err := w.stockFlow.ListAvailable(ctx, &breed)
	if err != nil {
		return nil, err
	}
	for i := range listing.Stocks {
		stock := &listing.Stocks[i]
		if stock.Incubator == incubator && stock.Date == date {
			return stock, nil
		}
	}
	return nil, businessflow.ErrStockNotFound
}

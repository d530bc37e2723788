package dto

// WizardInputRequest carries a single free-text answer for the current step
type WizardInputRequest struct {
	Value string `json:"value" validate:"required,max=255"`
}

// WizardQuantityRequest carries the quantity answer
type WizardQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1"`
}

// WizardConfirmRequest identifies the customer placing the drafted order
type WizardConfirmRequest struct {
	FullName string `json:"full_name" validate:"required,max=255"`
	Username string `json:"username" validate:"omitempty,max=255"`
}

// WizardPromptResponse tells the chat gateway which screen to render and
// what the draft holds so far
type WizardPromptResponse struct {
	Step      string `json:"step"`
	Breed     string `json:"breed,omitempty"`
	Incubator string `json:"incubator,omitempty"`
	Date      string `json:"date,omitempty"`
	Quantity  int    `json:"quantity,omitempty"`
	Phone     string `json:"phone,omitempty"`
	StockID   uint   `json:"stock_id,omitempty"`
}

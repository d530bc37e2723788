package dto

// BlockPhoneRequest puts a phone on the block list
type BlockPhoneRequest struct {
	Phone  string `json:"phone" validate:"required,max=20"`
	Reason string `json:"reason" validate:"max=255"`
}

// TrustPhoneRequest puts a phone on the trust list
type TrustPhoneRequest struct {
	Phone  string `json:"phone" validate:"required,max=20"`
	UserID int64  `json:"user_id" validate:"required"`
}

// PhoneStatusResponse reports a phone's guard standing
type PhoneStatusResponse struct {
	Phone   string `json:"phone"`
	Trusted bool   `json:"trusted"`
	Blocked bool   `json:"blocked"`
}

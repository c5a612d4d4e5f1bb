package dto

// CreateBirthdayRequest is the payload for registering a new birthday.
// All four fields are required; birthDate is expected as YYYY-MM-DD but only
// presence is validated.
type CreateBirthdayRequest struct {
	RealName    string `json:"realName" validate:"required"`
	DisplayName string `json:"displayName" validate:"required"`
	ChatHandle  string `json:"chatHandle" validate:"required"`
	BirthDate   string `json:"birthDate" validate:"required"`
}

package dto

// CreateUserRequest registers a teacher or student account.
type CreateUserRequest struct {
	UserID    string `json:"userId" validate:"required,max=50"`
	UserName  string `json:"userName" validate:"required,max=100"`
	Password  string `json:"password" validate:"required"`
	Role      string `json:"role" validate:"required,oneof=Teacher Student"`
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
}

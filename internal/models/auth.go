package models

// Credentials is the body of both login and signup requests.
type Credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse carries the issued bearer token. The server may omit it.
type AuthResponse struct {
	Token *string `json:"token,omitempty"`
}

// ErrorResponse is the JSON error envelope returned on non-2xx responses.
type ErrorResponse struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

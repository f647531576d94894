// Package dto defines request payloads for the account endpoints.
package dto

// CreateAccountRequest registers a new account.
type CreateAccountRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RelationshipRequest names the other side of a friend or connection
// operation.
type RelationshipRequest struct {
	Username string `json:"username" binding:"required"`
}

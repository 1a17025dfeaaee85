package database

import (
	"errors"

	"github.com/lib/pq"
)

// Unique constraint names created by the migrations
const (
	ConstraintUsersUsername          = "users_username_key"
	ConstraintUsersEmail             = "users_email_key"
	ConstraintUsersVerificationToken = "users_verification_token_key"
	ConstraintResetTokensToken       = "password_reset_tokens_token_key"
	ConstraintResetTokensUser        = "password_reset_tokens_user_id_key"
	ConstraintSessionsToken          = "sessions_session_token_key"
)

const uniqueViolation = pq.ErrorCode("23505")

// UniqueViolation returns the violated constraint name when err is a postgres
// unique violation
func UniqueViolation(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}

package database

import (
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestUniqueViolation(t *testing.T) {
	dup := &pq.Error{Code: "23505", Constraint: ConstraintUsersEmail}

	name, ok := UniqueViolation(fmt.Errorf("insert: %w", dup))
	assert.True(t, ok)
	assert.Equal(t, ConstraintUsersEmail, name)

	_, ok = UniqueViolation(&pq.Error{Code: "23503", Constraint: "sessions_user_id_fkey"})
	assert.False(t, ok)

	_, ok = UniqueViolation(errors.New("connection refused"))
	assert.False(t, ok)

	_, ok = UniqueViolation(nil)
	assert.False(t, ok)
}

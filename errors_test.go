package userdb_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/userdb"
)

func TestMissingFieldError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		err := userdb.NewMissingFieldError("password")
		assert.Equal(t, "userdb: password is required", err.Error())
	})

	t.Run("IsMissingField", func(t *testing.T) {
		err := userdb.NewMissingFieldError("email")
		assert.True(t, userdb.IsMissingField(err))
		assert.True(t, userdb.IsMissingField(fmt.Errorf("wrapper: %w", err)))
		assert.False(t, userdb.IsMissingField(errors.New("other error")))
		assert.False(t, userdb.IsMissingField(nil))
	})

	t.Run("As", func(t *testing.T) {
		var e *userdb.MissingFieldError
		require.True(t, errors.As(fmt.Errorf("x: %w", userdb.NewMissingFieldError("username")), &e))
		assert.Equal(t, "username", e.Field)
	})
}

func TestUnknownTypeError(t *testing.T) {
	t.Run("WithColumn", func(t *testing.T) {
		err := userdb.NewUnknownTypeError("PIC", "List[String]")
		assert.Equal(t, `userdb: unknown type "List[String]" for column "PIC"`, err.Error())
	})

	t.Run("WithoutColumn", func(t *testing.T) {
		err := userdb.NewUnknownTypeError("", "Float")
		assert.Equal(t, `userdb: unknown type "Float"`, err.Error())
	})

	t.Run("IsUnknownType", func(t *testing.T) {
		assert.True(t, userdb.IsUnknownType(fmt.Errorf("wrapper: %w", userdb.NewUnknownTypeError("", "x"))))
		assert.False(t, userdb.IsUnknownType(nil))
	})
}

func TestArityMismatchError(t *testing.T) {
	err := userdb.NewArityMismatchError("delete", 2, 1, "condition sets")
	assert.Equal(t, "userdb: delete: 2 tables but 1 condition sets", err.Error())
	assert.True(t, userdb.IsArityMismatch(err))
	assert.False(t, userdb.IsArityMismatch(errors.New("other")))
}

func TestNotFoundError(t *testing.T) {
	t.Run("Error", func(t *testing.T) {
		assert.Equal(t, "userdb: person not found", userdb.NewNotFoundError("person").Error())
		assert.Equal(t, "userdb: person not found (key=alice)", userdb.NewNotFoundErrorWithKey("person", "alice").Error())
	})

	t.Run("Label", func(t *testing.T) {
		assert.Equal(t, "person", userdb.NewNotFoundError("person").Label())
		var e *userdb.NotFoundError
		require.True(t, errors.As(fmt.Errorf("x: %w", userdb.NewNotFoundErrorWithKey("phone", "555")), &e))
		assert.Equal(t, "phone", e.Label())
	})

	t.Run("Is", func(t *testing.T) {
		err := userdb.NewNotFoundError("person")
		assert.True(t, errors.Is(err, userdb.ErrNotFound))
	})

	t.Run("IsNotFound", func(t *testing.T) {
		err := userdb.NewNotFoundError("person")
		assert.True(t, userdb.IsNotFound(err))
		assert.True(t, userdb.IsNotFound(fmt.Errorf("wrapper: %w", err)))
		assert.True(t, userdb.IsNotFound(userdb.ErrNotFound))
		assert.False(t, userdb.IsNotFound(errors.New("other error")))
		assert.False(t, userdb.IsNotFound(nil))
	})
}

func TestNotSingularError(t *testing.T) {
	err := userdb.NewNotSingularError("person", 3)
	assert.Equal(t, "userdb: person not singular (got 3 results, expected 1)", err.Error())
	assert.Equal(t, 3, err.Count())
	assert.True(t, errors.Is(err, userdb.ErrNotSingular))
	assert.True(t, userdb.IsNotSingular(fmt.Errorf("wrapper: %w", err)))
	assert.False(t, userdb.IsNotSingular(nil))
}

func TestConstraintError(t *testing.T) {
	inner := errors.New("Error 1062: Duplicate entry")
	err := userdb.NewConstraintError("duplicate username", inner)
	assert.Equal(t, "userdb: constraint failed: duplicate username", err.Error())
	assert.True(t, userdb.IsConstraintError(err))
	assert.True(t, userdb.IsConstraintError(fmt.Errorf("wrapper: %w", err)))
	assert.ErrorIs(t, err, inner)
	assert.False(t, userdb.IsConstraintError(inner))
}

func TestValidationError(t *testing.T) {
	err := userdb.NewValidationError("PERSON;", userdb.ErrInvalidIdentifier)
	assert.Equal(t, `userdb: validator failed for "PERSON;": userdb: invalid identifier`, err.Error())
	assert.ErrorIs(t, err, userdb.ErrInvalidIdentifier)
	assert.True(t, userdb.IsValidationError(err))
	assert.False(t, userdb.IsValidationError(nil))
}

func TestIsUserError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"missing", userdb.NewMissingFieldError("username"), true},
		{"unknown_type", userdb.NewUnknownTypeError("", "x"), true},
		{"arity", userdb.NewArityMismatchError("update", 2, 1, "field sets"), true},
		{"validation", userdb.NewValidationError("x", errors.New("bad")), true},
		{"not_found", userdb.NewNotFoundError("person"), false},
		{"driver", errors.New("connection refused"), false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, userdb.IsUserError(tt.err))
		})
	}
}

func TestWrappedErrors(t *testing.T) {
	inner := errors.New("connection reset")

	q := userdb.NewQueryError("person", "select", inner)
	assert.Equal(t, "userdb: querying person (select): connection reset", q.Error())
	assert.ErrorIs(t, q, inner)
	assert.True(t, userdb.IsQueryError(q))

	m := userdb.NewMutationError("user", "delete", inner)
	assert.Equal(t, "userdb: delete user: connection reset", m.Error())
	assert.ErrorIs(t, m, inner)
	assert.True(t, userdb.IsMutationError(m))
	assert.False(t, userdb.IsMutationError(q))

	r := &userdb.RollbackError{Err: inner}
	assert.Equal(t, "userdb: rollback failed: connection reset", r.Error())
	assert.ErrorIs(t, r, inner)
}

func TestCacheKey(t *testing.T) {
	k := userdb.CacheKey{Table: "MYUSER", Operation: "exists", Key: "alice"}
	assert.Equal(t, "MYUSER:exists:alice", k.String())
}

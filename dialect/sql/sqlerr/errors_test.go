package sqlerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/userdb"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		unique bool
		fk     bool
		check  bool
	}{
		{"mysql_duplicate", &mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'alice' for key 'PRIMARY'"}, true, false, false},
		{"mysql_fk_parent", &mysql.MySQLError{Number: 1451, Message: "Cannot delete or update a parent row"}, false, true, false},
		{"mysql_fk_child", &mysql.MySQLError{Number: 1452, Message: "Cannot add or update a child row"}, false, true, false},
		{"mysql_check", &mysql.MySQLError{Number: 3819, Message: "Check constraint is violated"}, false, false, true},
		{"mysql_other", &mysql.MySQLError{Number: 1146, Message: "Table doesn't exist"}, false, false, false},
		{"pq_unique", &pq.Error{Code: "23505"}, true, false, false},
		{"pq_fk", &pq.Error{Code: "23503"}, false, true, false},
		{"pq_check", &pq.Error{Code: "23514"}, false, false, true},
		{"sqlite_unique_text", errors.New("constraint failed: UNIQUE constraint failed: PERSON.USERNAME (2067)"), true, false, false},
		{"sqlite_fk_text", errors.New("FOREIGN KEY constraint failed"), false, true, false},
		{"wrapped_mysql", fmt.Errorf("dialect/sql: exec: %w", &mysql.MySQLError{Number: 1062}), true, false, false},
		{"plain", errors.New("connection refused"), false, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.unique, IsUniqueConstraintError(tt.err))
			assert.Equal(t, tt.fk, IsForeignKeyConstraintError(tt.err))
			assert.Equal(t, tt.check, IsCheckConstraintError(tt.err))
			assert.Equal(t, tt.unique || tt.fk || tt.check, IsConstraintError(tt.err))
		})
	}
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(nil))

	plain := errors.New("connection refused")
	assert.Same(t, plain, Wrap(plain))

	dup := &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	err := Wrap(dup)
	require.True(t, userdb.IsConstraintError(err))
	assert.Equal(t, "userdb: constraint failed: duplicate entry", err.Error())
	assert.ErrorIs(t, err, dup)

	again := Wrap(err)
	assert.Equal(t, err, again)

	assert.Equal(t, "userdb: constraint failed: foreign key", Wrap(&pq.Error{Code: "23503"}).Error())
	assert.False(t, IsUniqueConstraintError(nil))
	assert.False(t, IsForeignKeyConstraintError(nil))
	assert.False(t, IsCheckConstraintError(nil))
}

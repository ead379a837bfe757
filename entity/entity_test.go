package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/userdb"
	"github.com/syssam/userdb/dialect"
	"github.com/syssam/userdb/dialect/sql"
)

func queries(stmts []sql.Statement) []string {
	out := make([]string, len(stmts))
	for i, st := range stmts {
		out[i] = st.Query
	}
	return out
}

func TestNewUser(t *testing.T) {
	tests := []struct {
		name                      string
		username, email, password string
		missing                   string
	}{
		{"ok", "alice", "a@example.com", "secret", ""},
		{"no_username", "", "a@example.com", "secret", "username"},
		{"no_email", "alice", "", "secret", "email"},
		{"no_password", "alice", "a@example.com", "", "password"},
		{"nothing", "", "", "", "username"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := NewUser(tt.username, tt.email, tt.password)
			if tt.missing == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.username, u.Username)
				return
			}
			require.Error(t, err)
			assert.True(t, userdb.IsMissingField(err))
			var mf *userdb.MissingFieldError
			require.ErrorAs(t, err, &mf)
			assert.Equal(t, tt.missing, mf.Field)
		})
	}
}

func TestUserInsert(t *testing.T) {
	t.Run("required_only", func(t *testing.T) {
		u, err := NewUser("alice", "a@example.com", "secret")
		require.NoError(t, err)
		st, err := u.InsertPerson(nil)
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO PERSON(USERNAME, EMAIL, PASSWORD) VALUES (?, ?, ?)", st.Query)
		assert.Equal(t, []any{"alice", "a@example.com", "secret"}, st.Args)

		st, err = u.InsertUser(nil)
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO MYUSER(USERNAME) VALUES ('alice')", st.Inline())
	})

	t.Run("all_fields", func(t *testing.T) {
		u, err := NewUser("alice", "a@example.com", "secret",
			WithGender(0),
			WithBirthday("1990/31/12"),
			WithPicture([]byte{0x89, 'P'}),
			WithFirstName("Alice"),
			WithLastName("Liddell"),
		)
		require.NoError(t, err)
		st, err := u.InsertPerson(sql.Dialect(dialect.MySQL))
		require.NoError(t, err)
		assert.Equal(t,
			"INSERT INTO PERSON(USERNAME, EMAIL, PASSWORD, GENDER, BIRTHDAY, PIC, first_name, last_name) "+
				"VALUES (?, ?, ?, ?, STR_TO_DATE(?, '%Y/%d/%m'), ?, ?, ?)",
			st.Query)
		assert.Equal(t, []any{"alice", "a@example.com", "secret", int64(0), "1990/31/12", []byte{0x89, 'P'}, "Alice", "Liddell"}, st.Args)
	})

	t.Run("postgres", func(t *testing.T) {
		u, err := NewUser("alice", "a@example.com", "secret", WithBirthday("1990/31/12"))
		require.NoError(t, err)
		st, err := u.InsertPerson(sql.Dialect(dialect.Postgres))
		require.NoError(t, err)
		assert.Equal(t, "INSERT INTO PERSON(USERNAME, EMAIL, PASSWORD, BIRTHDAY) VALUES ($1, $2, $3, TO_DATE($4, 'YYYY/DD/MM'))", st.Query)
	})

	t.Run("sqlite_bad_date", func(t *testing.T) {
		u, err := NewUser("alice", "a@example.com", "secret", WithBirthday("1990/12/31"))
		require.NoError(t, err)
		_, err = u.InsertPerson(sql.Dialect(dialect.SQLite))
		require.Error(t, err)
		assert.True(t, userdb.IsValidationError(err))
	})
}

func TestCredentials(t *testing.T) {
	_, err := NewCredentials("", "secret")
	assert.True(t, userdb.IsMissingField(err))
	_, err = NewCredentials("alice", "")
	assert.True(t, userdb.IsMissingField(err))

	c, err := NewCredentials("alice", "secret")
	require.NoError(t, err)

	st, err := c.SelectPerson(nil)
	require.NoError(t, err)
	assert.Equal(t,
		"SELECT USERNAME, EMAIL, PASSWORD, GENDER, BIRTHDAY, PIC, first_name, last_name FROM PERSON "+
			"WHERE USERNAME = 'alice' AND PASSWORD = 'secret'",
		st.Inline())
	assert.Equal(t, []any{"alice", "secret"}, st.Args)

	st, err = c.SelectUser(nil)
	require.NoError(t, err)
	assert.Equal(t, "SELECT USERNAME FROM MYUSER WHERE USERNAME = ?", st.Query)

	_, err = SelectUser(nil, "")
	assert.True(t, userdb.IsMissingField(err))
}

func TestDeleteUser(t *testing.T) {
	stmts, err := DeleteUser(nil, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"DELETE FROM PERSONPHONE WHERE PERSON_USERNAME = ?",
		"DELETE FROM VISA_MYUSER WHERE PERSON_USERNAME = ?",
		"DELETE FROM MYUSER WHERE USERNAME = ?",
		"DELETE FROM PERSON WHERE USERNAME = ?",
	}, queries(stmts))
	for _, st := range stmts {
		assert.Equal(t, []any{"alice"}, st.Args)
	}

	_, err = DeleteUser(nil, "")
	assert.True(t, userdb.IsMissingField(err))
}

func TestEditUser(t *testing.T) {
	str := func(s string) *string { return &s }

	t.Run("rename", func(t *testing.T) {
		stmts, err := EditUser(nil, "alice", &UserEdit{Username: str("alicia"), Email: str("b@example.com")})
		require.NoError(t, err)
		require.Len(t, stmts, 2)
		assert.Equal(t, "UPDATE PERSON SET USERNAME = 'alicia', EMAIL = 'b@example.com' WHERE USERNAME = 'alice'", stmts[0].Inline())
		assert.Equal(t, "UPDATE MYUSER SET USERNAME = 'alicia' WHERE USERNAME = 'alice'", stmts[1].Inline())
	})

	t.Run("keep_username", func(t *testing.T) {
		g := int64(1)
		stmts, err := EditUser(nil, "alice", &UserEdit{Gender: &g, LastName: str("")})
		require.NoError(t, err)
		require.Len(t, stmts, 1)
		assert.Equal(t, "UPDATE PERSON SET GENDER = ?, last_name = ? WHERE USERNAME = ?", stmts[0].Query)
		assert.Equal(t, []any{int64(1), "", "alice"}, stmts[0].Args)
	})

	t.Run("nothing", func(t *testing.T) {
		stmts, err := EditUser(nil, "alice", nil)
		require.NoError(t, err)
		assert.Empty(t, stmts)
	})

	t.Run("no_old_username", func(t *testing.T) {
		_, err := EditUser(nil, "", &UserEdit{Email: str("x")})
		assert.True(t, userdb.IsMissingField(err))
	})

	t.Run("new_username", func(t *testing.T) {
		assert.Equal(t, "alice", (*UserEdit)(nil).NewUsername("alice"))
		assert.Equal(t, "alice", (&UserEdit{}).NewUsername("alice"))
		assert.Equal(t, "bob", (&UserEdit{Username: str("bob")}).NewUsername("alice"))
	})
}

func TestRenameUser(t *testing.T) {
	str := func(s string) *string { return &s }

	t.Run("moves_dependents", func(t *testing.T) {
		edit := &UserEdit{Username: str("alicia"), Email: str("b@example.com")}
		stmts, err := RenameUser(nil, "alice", edit, Dependents{User: true, Visas: 2, Phones: []string{"555-1"}})
		require.NoError(t, err)
		inline := make([]string, len(stmts))
		for i, st := range stmts {
			inline[i] = st.Inline()
		}
		assert.Equal(t, []string{
			"DELETE FROM PERSONPHONE WHERE PERSON_USERNAME = 'alice'",
			"DELETE FROM VISA_MYUSER WHERE PERSON_USERNAME = 'alice'",
			"DELETE FROM MYUSER WHERE USERNAME = 'alice'",
			"UPDATE PERSON SET USERNAME = 'alicia', EMAIL = 'b@example.com' WHERE USERNAME = 'alice'",
			"INSERT INTO MYUSER(USERNAME) VALUES ('alicia')",
			"INSERT INTO VISA_MYUSER(PERSON_USERNAME) VALUES ('alicia')",
			"INSERT INTO VISA_MYUSER(PERSON_USERNAME) VALUES ('alicia')",
			"INSERT INTO PERSONPHONE(PERSON_USERNAME, PHONE) VALUES ('alicia', '555-1')",
		}, inline)
	})

	t.Run("person_only", func(t *testing.T) {
		stmts, err := RenameUser(sql.Dialect(dialect.Postgres), "alice", &UserEdit{Username: str("alicia")}, Dependents{})
		require.NoError(t, err)
		require.Len(t, stmts, 4)
		assert.Equal(t, "UPDATE PERSON SET USERNAME = $1 WHERE USERNAME = $2", stmts[3].Query)
		assert.Equal(t, []any{"alicia", "alice"}, stmts[3].Args)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := RenameUser(nil, "", &UserEdit{Username: str("alicia")}, Dependents{})
		assert.True(t, userdb.IsMissingField(err))
		_, err = RenameUser(nil, "alice", &UserEdit{Username: str("")}, Dependents{})
		assert.True(t, userdb.IsMissingField(err))
		_, err = RenameUser(nil, "alice", &UserEdit{Username: str("alice")}, Dependents{})
		assert.True(t, userdb.IsValidationError(err))
		_, err = RenameUser(nil, "alice", nil, Dependents{})
		assert.True(t, userdb.IsValidationError(err))
	})

	t.Run("select_visas", func(t *testing.T) {
		st, err := SelectVisas(nil, "alice")
		require.NoError(t, err)
		assert.Equal(t, "SELECT PERSON_USERNAME FROM VISA_MYUSER WHERE PERSON_USERNAME = 'alice'", st.Inline())
		_, err = SelectVisas(nil, "")
		assert.True(t, userdb.IsMissingField(err))
	})
}

func TestPhones(t *testing.T) {
	_, err := NewPhones("", "555")
	assert.True(t, userdb.IsMissingField(err))

	p, err := NewPhones("alice", "555-1234", "", "555-9876")
	require.NoError(t, err)
	assert.Equal(t, []string{"555-1234", "555-9876"}, p.Numbers)

	t.Run("insert", func(t *testing.T) {
		stmts, err := p.Insert(nil)
		require.NoError(t, err)
		require.Len(t, stmts, 2)
		assert.Equal(t, "INSERT INTO PERSONPHONE(PERSON_USERNAME, PHONE) VALUES ('alice', '555-1234')", stmts[0].Inline())
		assert.Equal(t, []any{"alice", "555-9876"}, stmts[1].Args)
	})

	t.Run("select", func(t *testing.T) {
		st, err := p.Select(sql.Dialect(dialect.Postgres))
		require.NoError(t, err)
		assert.Equal(t, "SELECT PERSON_USERNAME, PHONE FROM PERSONPHONE WHERE PERSON_USERNAME = $1", st.Query)
	})

	t.Run("delete", func(t *testing.T) {
		st, err := p.Delete(nil)
		require.NoError(t, err)
		assert.Equal(t, "DELETE FROM PERSONPHONE WHERE PERSON_USERNAME = 'alice'", st.Inline())
	})

	t.Run("replace", func(t *testing.T) {
		stmts, err := p.Replace(nil, "alicia")
		require.NoError(t, err)
		require.Len(t, stmts, 3)
		assert.Equal(t, []any{"alice"}, stmts[0].Args)
		assert.Equal(t, []any{"alicia", "555-1234"}, stmts[1].Args)

		stmts, err = p.Replace(nil, "")
		require.NoError(t, err)
		assert.Equal(t, []any{"alice", "555-1234"}, stmts[1].Args)
	})

	t.Run("empty", func(t *testing.T) {
		empty, err := NewPhones("alice")
		require.NoError(t, err)
		stmts, err := empty.Insert(nil)
		require.NoError(t, err)
		assert.Empty(t, stmts)
	})
}

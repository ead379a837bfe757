package entity

import (
	"errors"

	"github.com/syssam/userdb"
	"github.com/syssam/userdb/dialect"
	"github.com/syssam/userdb/dialect/sql"
)

// Tables and columns of the user table group.
const (
	TablePerson      = "PERSON"
	TableUser        = "MYUSER"
	TablePersonPhone = "PERSONPHONE"
	TableVisaUser    = "VISA_MYUSER"

	ColumnUsername       = "USERNAME"
	ColumnEmail          = "EMAIL"
	ColumnPassword       = "PASSWORD"
	ColumnGender         = "GENDER"
	ColumnBirthday       = "BIRTHDAY"
	ColumnPicture        = "PIC"
	ColumnFirstName      = "first_name"
	ColumnLastName       = "last_name"
	ColumnPersonUsername = "PERSON_USERNAME"
	ColumnPhone          = "PHONE"
)

// PersonColumns are the PERSON columns returned by a person lookup.
var PersonColumns = []string{
	ColumnUsername,
	ColumnEmail,
	ColumnPassword,
	ColumnGender,
	ColumnBirthday,
	ColumnPicture,
	ColumnFirstName,
	ColumnLastName,
}

type reference struct {
	table, column string
}

// deleteOrder lists the tables a user is removed from. Children come
// before parents so foreign keys are never violated.
var deleteOrder = []reference{
	{TablePersonPhone, ColumnPersonUsername},
	{TableVisaUser, ColumnPersonUsername},
	{TableUser, ColumnUsername},
	{TablePerson, ColumnUsername},
}

// dependentOrder is deleteOrder without PERSON: the rows that must be
// detached before a PERSON key can change.
var dependentOrder = deleteOrder[:len(deleteOrder)-1]

// User holds the fields of a new user. Username, email and password are
// required; the others are absent unless set with an option.
type User struct {
	Username  string
	Email     string
	Password  string
	Gender    *int64
	Birthday  *string // year/day/month
	Picture   []byte
	FirstName *string
	LastName  *string
}

// UserOption sets an optional User field.
type UserOption func(*User)

// WithGender sets the gender, 0 female and 1 male.
func WithGender(g int64) UserOption {
	return func(u *User) { u.Gender = &g }
}

// WithBirthday sets the birthday in year/day/month form.
func WithBirthday(d string) UserOption {
	return func(u *User) { u.Birthday = &d }
}

// WithPicture sets the profile picture.
func WithPicture(b []byte) UserOption {
	return func(u *User) { u.Picture = b }
}

// WithFirstName sets the first name.
func WithFirstName(s string) UserOption {
	return func(u *User) { u.FirstName = &s }
}

// WithLastName sets the last name.
func WithLastName(s string) UserOption {
	return func(u *User) { u.LastName = &s }
}

// NewUser returns a User, or a MissingFieldError naming the first required
// field that is empty.
func NewUser(username, email, password string, opts ...UserOption) (*User, error) {
	switch {
	case username == "":
		return nil, userdb.NewMissingFieldError("username")
	case email == "":
		return nil, userdb.NewMissingFieldError("email")
	case password == "":
		return nil, userdb.NewMissingFieldError("password")
	}
	u := &User{Username: username, Email: email, Password: password}
	for _, opt := range opts {
		opt(u)
	}
	return u, nil
}

// personFields returns the PERSON columns of the user.
func (u *User) personFields() *sql.FieldSet {
	return sql.NewFieldSet().
		Set(ColumnUsername, sql.String(u.Username)).
		Set(ColumnEmail, sql.String(u.Email)).
		Set(ColumnPassword, sql.String(u.Password)).
		Set(ColumnGender, optInt(u.Gender)).
		Set(ColumnBirthday, optDate(u.Birthday)).
		Set(ColumnPicture, optBinary(u.Picture)).
		Set(ColumnFirstName, optString(u.FirstName)).
		Set(ColumnLastName, optString(u.LastName))
}

// InsertPerson returns the PERSON insert.
func (u *User) InsertPerson(b *sql.Builder) (sql.Statement, error) {
	return builder(b).Insert(TablePerson, u.personFields())
}

// InsertUser returns the MYUSER insert.
func (u *User) InsertUser(b *sql.Builder) (sql.Statement, error) {
	return builder(b).Insert(TableUser, sql.NewFieldSet().Set(ColumnUsername, sql.String(u.Username)))
}

// Credentials identify a person for a lookup.
type Credentials struct {
	Username string
	Password string
}

// NewCredentials returns Credentials or a MissingFieldError.
func NewCredentials(username, password string) (*Credentials, error) {
	switch {
	case username == "":
		return nil, userdb.NewMissingFieldError("username")
	case password == "":
		return nil, userdb.NewMissingFieldError("password")
	}
	return &Credentials{Username: username, Password: password}, nil
}

// SelectPerson returns the PERSON lookup matching username and password.
func (c *Credentials) SelectPerson(b *sql.Builder) (sql.Statement, error) {
	return builder(b).Select(PersonColumns, TablePerson, sql.NewConditionSet().
		EQ(ColumnUsername, c.Username).
		EQ(ColumnPassword, c.Password))
}

// SelectUser returns the MYUSER lookup for the username.
func (c *Credentials) SelectUser(b *sql.Builder) (sql.Statement, error) {
	return SelectUser(b, c.Username)
}

// SelectUser returns the MYUSER lookup for username.
func SelectUser(b *sql.Builder, username string) (sql.Statement, error) {
	if username == "" {
		return sql.Statement{}, userdb.NewMissingFieldError("username")
	}
	return builder(b).Select([]string{ColumnUsername}, TableUser, sql.NewConditionSet().EQ(ColumnUsername, username))
}

// DeleteUser returns the statements removing a user, in the order
// PERSONPHONE, VISA_MYUSER, MYUSER, PERSON.
func DeleteUser(b *sql.Builder, username string) ([]sql.Statement, error) {
	if username == "" {
		return nil, userdb.NewMissingFieldError("username")
	}
	return deleteRefs(builder(b), username, deleteOrder)
}

// SelectVisas returns the VISA_MYUSER lookup for username.
func SelectVisas(b *sql.Builder, username string) (sql.Statement, error) {
	if username == "" {
		return sql.Statement{}, userdb.NewMissingFieldError("username")
	}
	return builder(b).Select([]string{ColumnPersonUsername}, TableVisaUser, sql.NewConditionSet().EQ(ColumnPersonUsername, username))
}

func deleteRefs(b *sql.Builder, username string, refs []reference) ([]sql.Statement, error) {
	tables := make([]string, 0, len(refs))
	conds := make([]*sql.ConditionSet, 0, len(refs))
	for _, r := range refs {
		tables = append(tables, r.table)
		conds = append(conds, sql.NewConditionSet().EQ(r.column, username))
	}
	return b.Delete(tables, conds)
}

// UserEdit holds replacement values for a user. Nil fields are left
// unchanged.
type UserEdit struct {
	Username  *string
	Email     *string
	Password  *string
	Gender    *int64
	Birthday  *string
	Picture   []byte
	FirstName *string
	LastName  *string
}

// NewUsername returns the username after the edit.
func (e *UserEdit) NewUsername(old string) string {
	if e != nil && e.Username != nil {
		return *e.Username
	}
	return old
}

// EditUser returns the updates applying edit to the user identified by
// oldUsername: PERSON first, then MYUSER when the username changes. Tables
// with nothing to change produce no statement.
func EditUser(b *sql.Builder, oldUsername string, edit *UserEdit) ([]sql.Statement, error) {
	if oldUsername == "" {
		return nil, userdb.NewMissingFieldError("old_username")
	}
	if edit == nil {
		edit = &UserEdit{}
	}
	user := sql.NewFieldSet().Set(ColumnUsername, optString(edit.Username))
	return builder(b).Update(
		[]string{TablePerson, TableUser},
		[]*sql.FieldSet{edit.personFields(), user},
		[]*sql.ConditionSet{
			sql.NewConditionSet().EQ(ColumnUsername, oldUsername),
			sql.NewConditionSet().EQ(ColumnUsername, oldUsername),
		},
	)
}

func (e *UserEdit) personFields() *sql.FieldSet {
	return sql.NewFieldSet().
		Set(ColumnUsername, optString(e.Username)).
		Set(ColumnEmail, optString(e.Email)).
		Set(ColumnPassword, optString(e.Password)).
		Set(ColumnGender, optInt(e.Gender)).
		Set(ColumnBirthday, optDate(e.Birthday)).
		Set(ColumnPicture, optBinary(e.Picture)).
		Set(ColumnFirstName, optString(e.FirstName)).
		Set(ColumnLastName, optString(e.LastName))
}

// Dependents are the rows referencing a user that follow it to a new
// username.
type Dependents struct {
	User   bool     // the person has a MYUSER row
	Visas  int      // VISA_MYUSER rows
	Phones []string // numbers stored under the new username
}

// RenameUser returns the statements moving the user identified by
// oldUsername to edit.Username. The rows in deps are deleted child first,
// PERSON is updated, then they are inserted again under the new username
// parent first, so no foreign key is violated and none needs ON UPDATE
// CASCADE.
func RenameUser(b *sql.Builder, oldUsername string, edit *UserEdit, deps Dependents) ([]sql.Statement, error) {
	if oldUsername == "" {
		return nil, userdb.NewMissingFieldError("old_username")
	}
	newUsername := edit.NewUsername(oldUsername)
	switch newUsername {
	case "":
		return nil, userdb.NewMissingFieldError("new_username")
	case oldUsername:
		return nil, userdb.NewValidationError("new_username", errors.New("username is unchanged"))
	}
	b = builder(b)
	stmts, err := deleteRefs(b, oldUsername, dependentOrder)
	if err != nil {
		return nil, err
	}
	person, err := b.Update(
		[]string{TablePerson},
		[]*sql.FieldSet{edit.personFields()},
		[]*sql.ConditionSet{sql.NewConditionSet().EQ(ColumnUsername, oldUsername)},
	)
	if err != nil {
		return nil, err
	}
	stmts = append(stmts, person...)
	if deps.User {
		st, err := b.Insert(TableUser, sql.NewFieldSet().Set(ColumnUsername, sql.String(newUsername)))
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, st)
	}
	for range deps.Visas {
		st, err := b.Insert(TableVisaUser, sql.NewFieldSet().Set(ColumnPersonUsername, sql.String(newUsername)))
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, st)
	}
	phones, err := insertPhones(b, newUsername, deps.Phones)
	if err != nil {
		return nil, err
	}
	return append(stmts, phones...), nil
}

func optString(p *string) sql.Value {
	if p == nil {
		return sql.Absent()
	}
	return sql.String(*p)
}

func optInt(p *int64) sql.Value {
	if p == nil {
		return sql.Absent()
	}
	return sql.Int(*p)
}

func optDate(p *string) sql.Value {
	if p == nil {
		return sql.Absent()
	}
	return sql.Date(*p)
}

func optBinary(b []byte) sql.Value {
	if b == nil {
		return sql.Absent()
	}
	return sql.Binary(b)
}

// builder defaults to the MySQL dialect.
func builder(b *sql.Builder) *sql.Builder {
	if b == nil {
		return sql.Dialect(dialect.MySQL)
	}
	return b
}

package entity

import (
	"github.com/syssam/userdb"
	"github.com/syssam/userdb/dialect/sql"
)

// Phones are the phone numbers of one person.
type Phones struct {
	Username string
	Numbers  []string
}

// NewPhones returns the phones of username. Empty numbers are dropped.
func NewPhones(username string, numbers ...string) (*Phones, error) {
	if username == "" {
		return nil, userdb.NewMissingFieldError("username")
	}
	p := &Phones{Username: username}
	for _, n := range numbers {
		if n != "" {
			p.Numbers = append(p.Numbers, n)
		}
	}
	return p, nil
}

// Insert returns one PERSONPHONE insert per number.
func (p *Phones) Insert(b *sql.Builder) ([]sql.Statement, error) {
	return insertPhones(builder(b), p.Username, p.Numbers)
}

// Select returns the lookup of all numbers of the person.
func (p *Phones) Select(b *sql.Builder) (sql.Statement, error) {
	return SelectPhones(b, p.Username)
}

// Delete returns the statement removing all numbers of the person.
func (p *Phones) Delete(b *sql.Builder) (sql.Statement, error) {
	stmts, err := builder(b).Delete(
		[]string{TablePersonPhone},
		[]*sql.ConditionSet{sql.NewConditionSet().EQ(ColumnPersonUsername, p.Username)},
	)
	if err != nil {
		return sql.Statement{}, err
	}
	return stmts[0], nil
}

// Replace returns the statements swapping the stored numbers for p.Numbers,
// stored under newUsername. An empty newUsername keeps the current one.
func (p *Phones) Replace(b *sql.Builder, newUsername string) ([]sql.Statement, error) {
	b = builder(b)
	del, err := p.Delete(b)
	if err != nil {
		return nil, err
	}
	if newUsername == "" {
		newUsername = p.Username
	}
	ins, err := insertPhones(b, newUsername, p.Numbers)
	if err != nil {
		return nil, err
	}
	return append([]sql.Statement{del}, ins...), nil
}

// SelectPhones returns the lookup of all numbers of username.
func SelectPhones(b *sql.Builder, username string) (sql.Statement, error) {
	if username == "" {
		return sql.Statement{}, userdb.NewMissingFieldError("username")
	}
	return builder(b).Select([]string{ColumnPersonUsername, ColumnPhone}, TablePersonPhone, sql.NewConditionSet().EQ(ColumnPersonUsername, username))
}

func insertPhones(b *sql.Builder, username string, numbers []string) ([]sql.Statement, error) {
	stmts := make([]sql.Statement, 0, len(numbers))
	for _, n := range numbers {
		st, err := b.Insert(TablePersonPhone, sql.NewFieldSet().
			Set(ColumnPersonUsername, sql.String(username)).
			Set(ColumnPhone, sql.String(n)))
		if err != nil {
			return nil, err
		}
		stmts = append(stmts, st)
	}
	return stmts, nil
}

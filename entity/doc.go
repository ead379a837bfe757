// Package entity maps users and their phone numbers onto the PERSON,
// MYUSER, PERSONPHONE and VISA_MYUSER tables.
//
// Every function takes the *sql.Builder of the target dialect and returns
// statements ready to be executed; nothing in this package talks to a
// database.
//
//	u, err := entity.NewUser("alice", "a@example.com", "secret", entity.WithGender(0))
//	if err != nil {
//		return err
//	}
//	st, err := u.InsertPerson(drv.Builder())
package entity

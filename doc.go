// Package userdb is a small REST façade over the PERSON, MYUSER, PERSONPHONE
// and VISA_MYUSER tables.
//
// The root package holds the error types shared by every layer and the Cache
// interface. The layers themselves live in sub-packages:
//
//   - dialect/sql: the statement builder and the database/sql driver
//   - entity: user and phone adapters composing builder calls
//   - store: transactional execution of entity statements
//   - server: the HTTP transport
//   - config: YAML configuration and hot reload
//   - contrib/lrucache: an in-process Cache
//
// # Errors
//
// Errors are typed and can be matched with errors.As or the IsX helpers:
//
//	if userdb.IsMissingField(err) {
//	    // 400
//	}
//	if userdb.IsNotFound(err) {
//	    // 404
//	}
package userdb

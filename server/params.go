package server

import (
	"fmt"
	"net/http"
	"net/url"

	"github.com/syssam/userdb"
)

// maxBodySize bounds POST bodies; pictures travel in the form.
const maxBodySize = 8 << 20

type params struct{ url.Values }

// parse reads the query string and, for POST, the form body.
func parse(w http.ResponseWriter, r *http.Request) (params, error) {
	if r.Body != nil {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	}
	if err := r.ParseForm(); err != nil {
		return params{}, userdb.NewValidationError("request", err)
	}
	return params{r.Form}, nil
}

// has reports whether name was sent, even empty.
func (p params) has(name string) bool {
	_, ok := p.Values[name]
	if !ok {
		_, ok = p.Values[name+"[]"]
	}
	return ok
}

// opt returns nil for a missing or empty parameter.
func (p params) opt(name string) *string {
	v := p.get(name)
	if v == "" {
		return nil
	}
	return &v
}

// list returns every value of name, accepting both name and name[].
func (p params) list(name string) []string {
	return append(append([]string(nil), p.Values[name]...), p.Values[name+"[]"]...)
}

func (p params) get(name string) string {
	return p.Values.Get(name)
}

func invalidParam(name, v string) error {
	return userdb.NewValidationError(name, fmt.Errorf("invalid value %q", v))
}

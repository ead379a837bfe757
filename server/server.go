// Package server exposes the user store over HTTP.
//
// Every endpoint accepts GET with query parameters and POST with a form
// body:
//
//	/get_person   username, password
//	/add_user     username, email, password, gender, birthday, picture,
//	              first_name, last_name, phones (repeatable)
//	/remove_user  username
//	/edit_user    old_username, new_username, new_email, new_password,
//	              new_gender, new_birthday, new_picture, new_first_name,
//	              new_last_name, new_phones (repeatable)
//	/healthz
//
// Responses are JSON unless the client accepts application/msgpack.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/syssam/userdb/dialect/sql"
	"github.com/syssam/userdb/entity"
	"github.com/syssam/userdb/store"
)

// Service is the user store served over HTTP.
type Service interface {
	GetPerson(ctx context.Context, creds *entity.Credentials) (*store.Person, error)
	AddUser(ctx context.Context, u *entity.User, phones *entity.Phones) ([]store.ExecResult, error)
	RemoveUser(ctx context.Context, username string) ([]int64, error)
	EditUser(ctx context.Context, oldUsername string, edit *entity.UserEdit, phones *entity.Phones) ([]int64, error)
}

var _ Service = (*store.Store)(nil)

// Server routes requests to a Service.
type Server struct {
	svc     Service
	log     *slog.Logger
	stats   func() sql.StatsSnapshot
	origins []string
	handler http.Handler
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the access and error logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithStats reports driver statistics on /healthz.
func WithStats(fn func() sql.StatsSnapshot) Option {
	return func(s *Server) { s.stats = fn }
}

// WithCORSOrigins sets the origins allowed by CORS. "*" allows any.
func WithCORSOrigins(origins ...string) Option {
	return func(s *Server) { s.origins = origins }
}

// New returns a Server for svc.
func New(svc Service, opts ...Option) *Server {
	s := &Server{
		svc:     svc,
		log:     slog.Default(),
		origins: []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/get_person", s.getPerson)
	mux.HandleFunc("/add_user", s.addUser)
	mux.HandleFunc("/remove_user", s.removeUser)
	mux.HandleFunc("/edit_user", s.editUser)
	mux.HandleFunc("/healthz", s.healthz)
	s.handler = chain(mux,
		requestID,
		s.accessLog,
		s.recoverer,
		securityHeaders,
		s.cors,
		allowMethods,
	)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) getPerson(w http.ResponseWriter, r *http.Request) {
	p, err := parse(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	creds, err := entity.NewCredentials(p.get("username"), p.get("password"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	person, err := s.svc.GetPerson(r.Context(), creds)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	body := make(map[string]any, len(person.Columns)+2)
	for k, v := range person.Columns {
		body[k] = v
	}
	body["is_user"] = person.IsUser
	body["phones"] = person.Phones
	s.render(w, r, http.StatusOK, body)
}

func (s *Server) addUser(w http.ResponseWriter, r *http.Request) {
	p, err := parse(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var opts []entity.UserOption
	if v := p.get("gender"); v != "" {
		g, err := parseGender("gender", v)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		opts = append(opts, entity.WithGender(g))
	}
	if v := p.get("birthday"); v != "" {
		opts = append(opts, entity.WithBirthday(v))
	}
	if v := p.get("picture"); v != "" {
		opts = append(opts, entity.WithPicture([]byte(v)))
	}
	if v := p.get("first_name"); v != "" {
		opts = append(opts, entity.WithFirstName(v))
	}
	if v := p.get("last_name"); v != "" {
		opts = append(opts, entity.WithLastName(v))
	}
	u, err := entity.NewUser(p.get("username"), p.get("email"), p.get("password"), opts...)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	phones, err := entity.NewPhones(u.Username, p.list("phones")...)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.svc.AddUser(r.Context(), u, phones)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, res)
}

func (s *Server) removeUser(w http.ResponseWriter, r *http.Request) {
	p, err := parse(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	n, err := s.svc.RemoveUser(r.Context(), p.get("username"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, n)
}

func (s *Server) editUser(w http.ResponseWriter, r *http.Request) {
	p, err := parse(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	old := p.get("old_username")
	edit := &entity.UserEdit{
		Username:  p.opt("new_username"),
		Email:     p.opt("new_email"),
		Password:  p.opt("new_password"),
		Birthday:  p.opt("new_birthday"),
		FirstName: p.opt("new_first_name"),
		LastName:  p.opt("new_last_name"),
	}
	if v := p.get("new_gender"); v != "" {
		g, err := parseGender("new_gender", v)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		edit.Gender = &g
	}
	if v := p.get("new_picture"); v != "" {
		edit.Picture = []byte(v)
	}
	var phones *entity.Phones
	if p.has("new_phones") && old != "" {
		if phones, err = entity.NewPhones(old, p.list("new_phones")...); err != nil {
			s.fail(w, r, err)
			return
		}
	}
	n, err := s.svc.EditUser(r.Context(), old, edit, phones)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, n)
}

type health struct {
	Status string             `json:"status" msgpack:"status"`
	Stats  *sql.StatsSnapshot `json:"stats,omitempty" msgpack:"stats,omitempty"`
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	h := health{Status: "ok"}
	if s.stats != nil {
		st := s.stats()
		h.Stats = &st
	}
	s.render(w, r, http.StatusOK, h)
}

func parseGender(name, v string) (int64, error) {
	g, err := strconv.ParseInt(v, 10, 64)
	if err != nil || (g != 0 && g != 1) {
		return 0, invalidParam(name, v)
	}
	return g, nil
}

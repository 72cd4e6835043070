package main

import (
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type authResponse struct {
	Token    string `json:"token"`
	Fullname string `json:"fullname"`
	Email    string `json:"email"`
	UserID   int64  `json:"user_id"`
}

func (a *api) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email            string `json:"email"`
		Fullname         string `json:"fullname"`
		Password         string `json:"password"`
		RepeatedPassword string `json:"repeated_password"`
	}
	if err := readJSON(w, r, &in); err != nil {
		writeDetail(w, 400, "Invalid JSON body.")
		return
	}
	if errs := validateRegistration(in.Email, in.Fullname, in.Password, in.RepeatedPassword); len(errs) > 0 {
		writeFields(w, errs)
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		a.serverError(w, err)
		return
	}
	u, err := a.store.CreateUser(r.Context(), strings.TrimSpace(in.Email), strings.TrimSpace(in.Fullname), string(hash))
	if err != nil {
		if errors.Is(err, ErrConflict) {
			writeFields(w, map[string]string{"email": "Email already exists."})
			return
		}
		a.serverError(w, err)
		return
	}
	key, err := a.store.CreateToken(r.Context(), u.ID, a.tokenTTL())
	if err != nil {
		a.serverError(w, err)
		return
	}
	writeJSON(w, 201, authResponse{Token: key, Fullname: u.Fullname, Email: u.Email, UserID: u.ID})
}

func (a *api) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(w, r, &in); err != nil {
		writeDetail(w, 400, "Invalid JSON body.")
		return
	}
	u, err := a.store.Authenticate(r.Context(), strings.TrimSpace(in.Email), in.Password)
	if err != nil {
		// not-found and bad-password are reported identically
		writeDetail(w, 400, "Invalid email or password.")
		return
	}
	key, err := a.store.CreateToken(r.Context(), u.ID, a.tokenTTL())
	if err != nil {
		a.serverError(w, err)
		return
	}
	writeJSON(w, 200, authResponse{Token: key, Fullname: u.Fullname, Email: u.Email, UserID: u.ID})
}

// handleEmailCheck resolves an email to its public user data so board member
// pickers can confirm an address before inviting it.
func (a *api) handleEmailCheck(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeFields(w, map[string]string{"email": "This query parameter is required."})
		return
	}
	u, err := a.store.FindUserByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeDetail(w, 404, "User not found.")
			return
		}
		a.serverError(w, err)
		return
	}
	writeJSON(w, 200, u)
}

func (a *api) serverError(w http.ResponseWriter, err error) {
	a.log.Error("internal error", "err", err)
	writeDetail(w, 500, "Internal server error.")
}

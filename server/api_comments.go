package main

import (
	"errors"
	"net/http"
	"strings"
)

func (a *api) handleListComments(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		writeDetail(w, 401, authRequiredMsg)
		return
	}
	t, _, ok := a.loadTask(w, r, u.ID)
	if !ok {
		return
	}
	comments, err := a.store.CommentsByTask(r.Context(), t.ID)
	if err != nil {
		a.serverError(w, err)
		return
	}
	writeJSON(w, 200, comments)
}

func (a *api) handleAddComment(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		writeDetail(w, 401, authRequiredMsg)
		return
	}
	t, _, ok := a.loadTask(w, r, u.ID)
	if !ok {
		return
	}
	var in struct {
		Content string `json:"content"`
	}
	if err := readJSON(w, r, &in); err != nil {
		writeDetail(w, 400, "Invalid JSON body.")
		return
	}
	if strings.TrimSpace(in.Content) == "" {
		writeFields(w, map[string]string{"content": "This field may not be blank."})
		return
	}
	c, err := a.store.AddComment(r.Context(), t.ID, u.ID, strings.TrimSpace(in.Content))
	if err != nil {
		a.serverError(w, err)
		return
	}
	writeJSON(w, 201, c)
}

func (a *api) handleDeleteComment(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		writeDetail(w, 401, authRequiredMsg)
		return
	}
	// authorship alone decides deletion, so the task is resolved without the
	// membership gate; an unknown task still answers 404
	t, _, ok := a.fetchTask(w, r)
	if !ok {
		return
	}
	cid, err := parseID(r.PathValue("cid"))
	if err != nil {
		writeDetail(w, 404, notFoundMsg)
		return
	}
	c, err := a.store.GetComment(r.Context(), t.ID, cid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeDetail(w, 404, notFoundMsg)
			return
		}
		a.serverError(w, err)
		return
	}
	if canDeleteComment(&c, u.ID) == decisionForbidden {
		writeDetail(w, 403, forbiddenMsg)
		return
	}
	if err := a.store.DeleteComment(r.Context(), c.ID); err != nil {
		a.serverError(w, err)
		return
	}
	w.WriteHeader(204)
}

package main

import (
	"errors"
	"net/http"
	"strings"
)

const (
	notFoundMsg  = "Not found."
	forbiddenMsg = "You do not have permission to perform this action."
)

func (a *api) handleListBoards(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		writeDetail(w, 401, authRequiredMsg)
		return
	}
	boards, err := a.store.ListBoardsFor(r.Context(), u.ID)
	if err != nil {
		a.serverError(w, err)
		return
	}
	writeJSON(w, 200, boards)
}

// checkMembersExist resolves the given user ids and reports a field error when
// any of them is unknown.
func (a *api) checkMembersExist(w http.ResponseWriter, r *http.Request, ids []int64) bool {
	if len(ids) == 0 {
		return true
	}
	users, err := a.store.UsersByIDs(r.Context(), ids)
	if err != nil {
		a.serverError(w, err)
		return false
	}
	seen := map[int64]bool{}
	for _, u := range users {
		seen[u.ID] = true
	}
	for _, id := range ids {
		if !seen[id] {
			writeFields(w, map[string]string{"members": "One or more members do not exist."})
			return false
		}
	}
	return true
}

func (a *api) handleCreateBoard(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		writeDetail(w, 401, authRequiredMsg)
		return
	}
	var in struct {
		Title   string  `json:"title"`
		Members []int64 `json:"members"`
	}
	if err := readJSON(w, r, &in); err != nil {
		writeDetail(w, 400, "Invalid JSON body.")
		return
	}
	if strings.TrimSpace(in.Title) == "" {
		writeFields(w, map[string]string{"title": "This field may not be blank."})
		return
	}
	if !a.checkMembersExist(w, r, in.Members) {
		return
	}
	b, err := a.store.CreateBoard(r.Context(), u.ID, strings.TrimSpace(in.Title), in.Members)
	if err != nil {
		a.serverError(w, err)
		return
	}
	writeJSON(w, 201, b)
}

// loadBoard fetches the board and applies view-level concealment: an outsider
// asking for a board they cannot see gets the same 404 as a missing id.
func (a *api) loadBoard(w http.ResponseWriter, r *http.Request, uid int64) (*Board, bool) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeDetail(w, 404, notFoundMsg)
		return nil, false
	}
	b, err := a.store.GetBoard(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeDetail(w, 404, notFoundMsg)
			return nil, false
		}
		a.serverError(w, err)
		return nil, false
	}
	if canViewBoard(&b, uid) == decisionHidden {
		writeDetail(w, 404, notFoundMsg)
		return nil, false
	}
	return &b, true
}

func (a *api) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		writeDetail(w, 401, authRequiredMsg)
		return
	}
	b, ok := a.loadBoard(w, r, u.ID)
	if !ok {
		return
	}
	detail, err := a.store.BoardDetail(r.Context(), b.ID)
	if err != nil {
		a.serverError(w, err)
		return
	}
	writeJSON(w, 200, detail)
}

func (a *api) handleUpdateBoard(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		writeDetail(w, 401, authRequiredMsg)
		return
	}
	b, ok := a.loadBoard(w, r, u.ID)
	if !ok {
		return
	}
	var in struct {
		Title   *string  `json:"title"`
		Members *[]int64 `json:"members"`
	}
	if err := readJSON(w, r, &in); err != nil {
		writeDetail(w, 400, "Invalid JSON body.")
		return
	}
	if in.Title != nil && strings.TrimSpace(*in.Title) == "" {
		writeFields(w, map[string]string{"title": "This field may not be blank."})
		return
	}
	if in.Members != nil && !a.checkMembersExist(w, r, *in.Members) {
		return
	}
	updated, err := a.store.UpdateBoard(r.Context(), b.ID, in.Title, in.Members)
	if err != nil {
		a.serverError(w, err)
		return
	}
	writeJSON(w, 200, updated)
}

func (a *api) handleDeleteBoard(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		writeDetail(w, 401, authRequiredMsg)
		return
	}
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeDetail(w, 404, notFoundMsg)
		return
	}
	b, err := a.store.GetBoard(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeDetail(w, 404, notFoundMsg)
			return
		}
		a.serverError(w, err)
		return
	}
	// deletion is owner-only and, unlike reads, answers 403 rather than 404
	if canDeleteBoard(&b, u.ID) == decisionForbidden {
		writeDetail(w, 403, forbiddenMsg)
		return
	}
	if err := a.store.DeleteBoard(r.Context(), id); err != nil {
		a.serverError(w, err)
		return
	}
	w.WriteHeader(204)
}

package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

func (a *api) handleAssignedToMe(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		writeDetail(w, 401, authRequiredMsg)
		return
	}
	tasks, err := a.store.TasksAssignedTo(r.Context(), u.ID)
	if err != nil {
		a.serverError(w, err)
		return
	}
	writeJSON(w, 200, tasks)
}

func (a *api) handleReviewing(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		writeDetail(w, 401, authRequiredMsg)
		return
	}
	tasks, err := a.store.TasksReviewedBy(r.Context(), u.ID)
	if err != nil {
		a.serverError(w, err)
		return
	}
	writeJSON(w, 200, tasks)
}

// checkRole verifies that an assignee or reviewer id belongs to the board.
// nil ids pass, the role stays unset.
func checkRole(b *Board, id *int64, field string, errs map[string]string) {
	if id == nil {
		return
	}
	if !isOwnerOrMember(b, *id) {
		errs[field] = "User is not a member of this board."
	}
}

func (a *api) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		writeDetail(w, 401, authRequiredMsg)
		return
	}
	var in struct {
		Board       int64  `json:"board"`
		Title       string `json:"title"`
		Description string `json:"description"`
		Status      string `json:"status"`
		Priority    string `json:"priority"`
		AssigneeID  *int64 `json:"assignee_id"`
		ReviewerID  *int64 `json:"reviewer_id"`
		DueDate     *Date  `json:"due_date"`
	}
	if err := readJSON(w, r, &in); err != nil {
		writeDetail(w, 400, "Invalid JSON body.")
		return
	}
	b, err := a.store.GetBoard(r.Context(), in.Board)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeDetail(w, 404, notFoundMsg)
			return
		}
		a.serverError(w, err)
		return
	}
	if canTouchTask(&b, u.ID) == decisionForbidden {
		writeDetail(w, 403, forbiddenMsg)
		return
	}
	if in.Status == "" {
		in.Status = StatusToDo
	}
	if in.Priority == "" {
		in.Priority = PriorityMedium
	}
	ti := TaskInput{
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		Priority:    in.Priority,
		AssigneeID:  in.AssigneeID,
		ReviewerID:  in.ReviewerID,
	}
	if in.DueDate != nil {
		d := in.DueDate.Time
		ti.DueDate = &d
	}
	errs := validateTaskInput(ti)
	checkRole(&b, ti.AssigneeID, "assignee_id", errs)
	checkRole(&b, ti.ReviewerID, "reviewer_id", errs)
	if len(errs) > 0 {
		writeFields(w, errs)
		return
	}
	t, err := a.store.CreateTask(r.Context(), b.ID, u.ID, ti)
	if err != nil {
		a.serverError(w, err)
		return
	}
	writeJSON(w, 201, t)
}

// fetchTask resolves {id} to a task and its board. Unknown task ids answer
// 404; no authorization is applied here.
func (a *api) fetchTask(w http.ResponseWriter, r *http.Request) (*Task, *Board, bool) {
	id, err := parseID(r.PathValue("id"))
	if err != nil {
		writeDetail(w, 404, notFoundMsg)
		return nil, nil, false
	}
	t, err := a.store.GetTask(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			writeDetail(w, 404, notFoundMsg)
			return nil, nil, false
		}
		a.serverError(w, err)
		return nil, nil, false
	}
	b, err := a.store.GetBoard(r.Context(), t.BoardID)
	if err != nil {
		a.serverError(w, err)
		return nil, nil, false
	}
	return &t, &b, true
}

// loadTask additionally enforces board membership: known tasks on boards the
// caller has no part in answer 403.
func (a *api) loadTask(w http.ResponseWriter, r *http.Request, uid int64) (*Task, *Board, bool) {
	t, b, ok := a.fetchTask(w, r)
	if !ok {
		return nil, nil, false
	}
	if canTouchTask(b, uid) == decisionForbidden {
		writeDetail(w, 403, forbiddenMsg)
		return nil, nil, false
	}
	return t, b, true
}

func (a *api) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		writeDetail(w, 401, authRequiredMsg)
		return
	}
	t, b, ok := a.loadTask(w, r, u.ID)
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err != nil {
		writeDetail(w, 400, "Invalid JSON body.")
		return
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		writeDetail(w, 400, "Invalid JSON body.")
		return
	}
	if _, ok := raw["board"]; ok {
		writeFields(w, map[string]string{"board": "Changing the board is not allowed."})
		return
	}
	var p TaskPatch
	if err := json.Unmarshal(body, &p); err != nil {
		writeDetail(w, 400, "Invalid JSON body.")
		return
	}
	errs := validateTaskPatch(p)
	if p.Assignee.Set {
		checkRole(b, p.Assignee.ID, "assignee_id", errs)
	}
	if p.Reviewer.Set {
		checkRole(b, p.Reviewer.ID, "reviewer_id", errs)
	}
	if len(errs) > 0 {
		writeFields(w, errs)
		return
	}
	updated, err := a.store.UpdateTask(r.Context(), t.ID, p)
	if err != nil {
		a.serverError(w, err)
		return
	}
	writeJSON(w, 200, updated)
}

func (a *api) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	u, err := a.currentUser(r)
	if err != nil {
		writeDetail(w, 401, authRequiredMsg)
		return
	}
	// delete rights come from creatorship or board ownership alone; board
	// membership is neither required nor sufficient
	t, b, ok := a.fetchTask(w, r)
	if !ok {
		return
	}
	if canDeleteTask(t, b, u.ID) == decisionForbidden {
		writeDetail(w, 403, forbiddenMsg)
		return
	}
	if err := a.store.DeleteTask(r.Context(), t.ID); err != nil {
		a.serverError(w, err)
		return
	}
	w.WriteHeader(204)
}

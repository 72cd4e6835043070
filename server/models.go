package main

import (
	"fmt"
	"time"
)

// User is the public shape of an account. The credential hash never leaves
// the store.
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Fullname string `json:"fullname"`
}

// Board is the internal record used for authorization decisions. OwnerID and
// MemberIDs are loaded together so every downstream check is a plain
// equality/set test.
type Board struct {
	ID        int64
	Title     string
	OwnerID   int64
	MemberIDs []int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BoardSummary is the list/create response shape. The counters are derived
// per request, never stored.
type BoardSummary struct {
	ID                 int64  `json:"id"`
	Title              string `json:"title"`
	MemberCount        int    `json:"member_count"`
	TicketCount        int    `json:"ticket_count"`
	TasksToDoCount     int    `json:"tasks_to_do_count"`
	TasksHighPrioCount int    `json:"tasks_high_prio_count"`
	OwnerID            int64  `json:"owner_id"`
}

// BoardDetail is the retrieve response shape.
type BoardDetail struct {
	ID      int64  `json:"id"`
	Title   string `json:"title"`
	OwnerID int64  `json:"owner_id"`
	Members []User `json:"members"`
	Tasks   []Task `json:"tasks"`
}

// BoardUpdated is the partial-update response shape.
type BoardUpdated struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	OwnerData   User   `json:"owner_data"`
	MembersData []User `json:"members_data"`
}

const (
	StatusToDo       = "to-do"
	StatusInProgress = "in-progress"
	StatusReview     = "review"
	StatusDone       = "done"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

func validStatus(s string) bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusReview, StatusDone:
		return true
	}
	return false
}

func validPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

type Task struct {
	ID            int64     `json:"id"`
	BoardID       int64     `json:"board"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Status        string    `json:"status"`
	Priority      string    `json:"priority"`
	Assignee      *User     `json:"assignee"`
	Reviewer      *User     `json:"reviewer"`
	DueDate       *Date     `json:"due_date"`
	CommentsCount int       `json:"comments_count"`
	CreatedBy     int64     `json:"-"`
	CreatedAt     time.Time `json:"-"`
}

type Comment struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	// Author is the author's fullname; AuthorID drives the delete check.
	Author   string `json:"author"`
	Content  string `json:"content"`
	TaskID   int64  `json:"-"`
	AuthorID int64  `json:"-"`
}

// Date is a calendar day serialized as "2006-01-02" (task due dates carry no
// time component).
type Date struct{ time.Time }

const dateLayout = "2006-01-02"

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" {
		return nil
	}
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("invalid date %s", s)
	}
	t, err := time.Parse(dateLayout, s[1:len(s)-1])
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

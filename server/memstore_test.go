package main

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// memStore is the in-memory Store used by the handler tests. It mirrors the
// Postgres implementation's behavior including cascade deletes and the
// not-found/conflict sentinels.
type memStore struct {
	mu     sync.Mutex
	nextID int64

	users     map[int64]User
	passwords map[int64]string
	tokens    map[string]memToken
	boards    map[int64]*Board
	tasks     map[int64]*memTask
	comments  map[int64]*memComment
}

type memToken struct {
	userID    int64
	expiresAt time.Time
}

type memTask struct {
	id          int64
	boardID     int64
	title       string
	description string
	status      string
	priority    string
	assigneeID  *int64
	reviewerID  *int64
	dueDate     *time.Time
	createdBy   int64
	createdAt   time.Time
}

type memComment struct {
	id        int64
	taskID    int64
	authorID  int64
	content   string
	createdAt time.Time
}

func newMemStore() *memStore {
	return &memStore{
		users:     map[int64]User{},
		passwords: map[int64]string{},
		tokens:    map[string]memToken{},
		boards:    map[int64]*Board{},
		tasks:     map[int64]*memTask{},
		comments:  map[int64]*memComment{},
	}
}

func (m *memStore) id() int64 { m.nextID++; return m.nextID }

func (m *memStore) FindUserByEmail(_ context.Context, email string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *memStore) UsersByIDs(_ context.Context, ids []int64) ([]User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *memStore) CreateUser(_ context.Context, email, fullname, passwordHash string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			return User{}, ErrConflict
		}
	}
	u := User{ID: m.id(), Email: email, Fullname: fullname}
	m.users[u.ID] = u
	m.passwords[u.ID] = passwordHash
	return u, nil
}

func (m *memStore) Authenticate(_ context.Context, email, password string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			if bcrypt.CompareHashAndPassword([]byte(m.passwords[u.ID]), []byte(password)) != nil {
				return User{}, ErrNotFound
			}
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (m *memStore) CreateToken(_ context.Context, userID int64, ttl time.Duration) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	m.tokens[key] = memToken{userID: userID, expiresAt: time.Now().Add(ttl)}
	return key, nil
}

func (m *memStore) UserByToken(_ context.Context, token string) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tk, ok := m.tokens[token]
	if !ok || time.Now().After(tk.expiresAt) {
		return User{}, ErrNotFound
	}
	u, ok := m.users[tk.userID]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (m *memStore) summary(b *Board) BoardSummary {
	s := BoardSummary{ID: b.ID, Title: b.Title, MemberCount: len(b.MemberIDs), OwnerID: b.OwnerID}
	for _, t := range m.tasks {
		if t.boardID != b.ID {
			continue
		}
		s.TicketCount++
		if t.status == StatusToDo {
			s.TasksToDoCount++
		}
		if t.priority == PriorityHigh {
			s.TasksHighPrioCount++
		}
	}
	return s
}

func (m *memStore) ListBoardsFor(_ context.Context, userID int64) ([]BoardSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []BoardSummary{}
	for _, b := range m.boards {
		if isOwnerOrMember(b, userID) {
			out = append(out, m.summary(b))
		}
	}
	// newest first, like the SQL implementation
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *memStore) GetBoard(_ context.Context, id int64) (Board, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[id]
	if !ok {
		return Board{}, ErrNotFound
	}
	return *b, nil
}

func (m *memStore) taskView(t *memTask) Task {
	out := Task{
		ID:          t.id,
		BoardID:     t.boardID,
		Title:       t.title,
		Description: t.description,
		Status:      t.status,
		Priority:    t.priority,
		CreatedBy:   t.createdBy,
		CreatedAt:   t.createdAt,
	}
	if t.assigneeID != nil {
		u := m.users[*t.assigneeID]
		out.Assignee = &u
	}
	if t.reviewerID != nil {
		u := m.users[*t.reviewerID]
		out.Reviewer = &u
	}
	if t.dueDate != nil {
		out.DueDate = &Date{*t.dueDate}
	}
	for _, c := range m.comments {
		if c.taskID == t.id {
			out.CommentsCount++
		}
	}
	return out
}

func (m *memStore) BoardDetail(_ context.Context, id int64) (BoardDetail, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[id]
	if !ok {
		return BoardDetail{}, ErrNotFound
	}
	d := BoardDetail{ID: b.ID, Title: b.Title, OwnerID: b.OwnerID, Members: []User{}, Tasks: []Task{}}
	for _, mid := range b.MemberIDs {
		if u, ok := m.users[mid]; ok {
			d.Members = append(d.Members, u)
		}
	}
	for _, t := range m.tasks {
		if t.boardID == id {
			d.Tasks = append(d.Tasks, m.taskView(t))
		}
	}
	sort.Slice(d.Tasks, func(i, j int) bool { return d.Tasks[i].ID > d.Tasks[j].ID })
	return d, nil
}

func (m *memStore) CreateBoard(_ context.Context, ownerID int64, title string, memberIDs []int64) (BoardSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := &Board{ID: m.id(), Title: title, OwnerID: ownerID, MemberIDs: dedupe(memberIDs), CreatedAt: time.Now(), UpdatedAt: time.Now()}
	m.boards[b.ID] = b
	return m.summary(b), nil
}

func dedupe(ids []int64) []int64 {
	seen := map[int64]bool{}
	out := []int64{}
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

func (m *memStore) UpdateBoard(_ context.Context, id int64, title *string, memberIDs *[]int64) (BoardUpdated, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.boards[id]
	if !ok {
		return BoardUpdated{}, ErrNotFound
	}
	if title != nil {
		b.Title = *title
	}
	if memberIDs != nil {
		b.MemberIDs = dedupe(*memberIDs)
	}
	b.UpdatedAt = time.Now()
	out := BoardUpdated{ID: b.ID, Title: b.Title, OwnerData: m.users[b.OwnerID], MembersData: []User{}}
	for _, mid := range b.MemberIDs {
		if u, ok := m.users[mid]; ok {
			out.MembersData = append(out.MembersData, u)
		}
	}
	return out, nil
}

func (m *memStore) DeleteBoard(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.boards[id]; !ok {
		return ErrNotFound
	}
	delete(m.boards, id)
	for tid, t := range m.tasks {
		if t.boardID == id {
			delete(m.tasks, tid)
			for cid, c := range m.comments {
				if c.taskID == tid {
					delete(m.comments, cid)
				}
			}
		}
	}
	return nil
}

func (m *memStore) GetTask(_ context.Context, id int64) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	return m.taskView(t), nil
}

func (m *memStore) tasksWhere(match func(*memTask) bool) []Task {
	out := []Task{}
	for _, t := range m.tasks {
		if match(t) {
			out = append(out, m.taskView(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *memStore) TasksAssignedTo(_ context.Context, userID int64) ([]Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasksWhere(func(t *memTask) bool { return t.assigneeID != nil && *t.assigneeID == userID }), nil
}

func (m *memStore) TasksReviewedBy(_ context.Context, userID int64) ([]Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tasksWhere(func(t *memTask) bool { return t.reviewerID != nil && *t.reviewerID == userID }), nil
}

func (m *memStore) CreateTask(_ context.Context, boardID, creatorID int64, in TaskInput) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.boards[boardID]; !ok {
		return Task{}, ErrNotFound
	}
	t := &memTask{
		id:          m.id(),
		boardID:     boardID,
		title:       in.Title,
		description: in.Description,
		status:      in.Status,
		priority:    in.Priority,
		assigneeID:  in.AssigneeID,
		reviewerID:  in.ReviewerID,
		dueDate:     in.DueDate,
		createdBy:   creatorID,
		createdAt:   time.Now(),
	}
	m.tasks[t.id] = t
	return m.taskView(t), nil
}

func (m *memStore) UpdateTask(_ context.Context, id int64, p TaskPatch) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tasks[id]
	if !ok {
		return Task{}, ErrNotFound
	}
	if p.Title != nil {
		t.title = *p.Title
	}
	if p.Description != nil {
		t.description = *p.Description
	}
	if p.Status != nil {
		t.status = *p.Status
	}
	if p.Priority != nil {
		t.priority = *p.Priority
	}
	if p.Assignee.Set {
		t.assigneeID = p.Assignee.ID
	}
	if p.Reviewer.Set {
		t.reviewerID = p.Reviewer.ID
	}
	if p.DueDate.Set {
		t.dueDate = p.DueDate.Date
	}
	return m.taskView(t), nil
}

func (m *memStore) DeleteTask(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[id]; !ok {
		return ErrNotFound
	}
	delete(m.tasks, id)
	for cid, c := range m.comments {
		if c.taskID == id {
			delete(m.comments, cid)
		}
	}
	return nil
}

func (m *memStore) commentView(c *memComment) Comment {
	return Comment{
		ID:        c.id,
		CreatedAt: c.createdAt,
		Author:    m.users[c.authorID].Fullname,
		Content:   c.content,
		TaskID:    c.taskID,
		AuthorID:  c.authorID,
	}
}

func (m *memStore) CommentsByTask(_ context.Context, taskID int64) ([]Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []Comment{}
	for _, c := range m.comments {
		if c.taskID == taskID {
			out = append(out, m.commentView(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) AddComment(_ context.Context, taskID, authorID int64, content string) (Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tasks[taskID]; !ok {
		return Comment{}, ErrNotFound
	}
	c := &memComment{id: m.id(), taskID: taskID, authorID: authorID, content: content, createdAt: time.Now()}
	m.comments[c.id] = c
	return m.commentView(c), nil
}

func (m *memStore) GetComment(_ context.Context, taskID, commentID int64) (Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[commentID]
	if !ok || c.taskID != taskID {
		return Comment{}, ErrNotFound
	}
	return m.commentView(c), nil
}

func (m *memStore) DeleteComment(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.comments[id]; !ok {
		return ErrNotFound
	}
	delete(m.comments, id)
	return nil
}

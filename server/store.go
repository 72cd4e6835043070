package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// TaskInput carries the accepted fields for task creation. The creator is
// passed separately and always wins over anything in the payload.
type TaskInput struct {
	Title       string
	Description string
	Status      string
	Priority    string
	AssigneeID  *int64
	ReviewerID  *int64
	DueDate     *time.Time
}

// OptRef distinguishes "field absent" from "field set to null" for nullable
// user references in partial updates.
type OptRef struct {
	Set bool
	ID  *int64
}

func (o *OptRef) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.ID = nil
		return nil
	}
	return json.Unmarshal(b, &o.ID)
}

// OptDate is the due-date counterpart of OptRef.
type OptDate struct {
	Set  bool
	Date *time.Time
}

func (o *OptDate) UnmarshalJSON(b []byte) error {
	o.Set = true
	if string(b) == "null" {
		o.Date = nil
		return nil
	}
	var d Date
	if err := d.UnmarshalJSON(b); err != nil {
		return err
	}
	o.Date = &d.Time
	return nil
}

// TaskPatch is a partial task update. Nil pointer fields are left unchanged.
type TaskPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	Priority    *string `json:"priority"`
	Assignee    OptRef  `json:"assignee_id"`
	Reviewer    OptRef  `json:"reviewer_id"`
	DueDate     OptDate `json:"due_date"`
}

// Store is the persistence boundary the handlers talk to. Postgres backs it
// in production; tests use an in-memory implementation.
type Store interface {
	FindUserByEmail(ctx context.Context, email string) (User, error)
	UsersByIDs(ctx context.Context, ids []int64) ([]User, error)
	CreateUser(ctx context.Context, email, fullname, passwordHash string) (User, error)
	Authenticate(ctx context.Context, email, password string) (User, error)
	CreateToken(ctx context.Context, userID int64, ttl time.Duration) (string, error)
	UserByToken(ctx context.Context, token string) (User, error)

	ListBoardsFor(ctx context.Context, userID int64) ([]BoardSummary, error)
	GetBoard(ctx context.Context, id int64) (Board, error)
	BoardDetail(ctx context.Context, id int64) (BoardDetail, error)
	CreateBoard(ctx context.Context, ownerID int64, title string, memberIDs []int64) (BoardSummary, error)
	UpdateBoard(ctx context.Context, id int64, title *string, memberIDs *[]int64) (BoardUpdated, error)
	DeleteBoard(ctx context.Context, id int64) error

	GetTask(ctx context.Context, id int64) (Task, error)
	TasksAssignedTo(ctx context.Context, userID int64) ([]Task, error)
	TasksReviewedBy(ctx context.Context, userID int64) ([]Task, error)
	CreateTask(ctx context.Context, boardID, creatorID int64, in TaskInput) (Task, error)
	UpdateTask(ctx context.Context, id int64, p TaskPatch) (Task, error)
	DeleteTask(ctx context.Context, id int64) error

	CommentsByTask(ctx context.Context, taskID int64) ([]Comment, error)
	AddComment(ctx context.Context, taskID, authorID int64, content string) (Comment, error)
	GetComment(ctx context.Context, taskID, commentID int64) (Comment, error)
	DeleteComment(ctx context.Context, id int64) error
}

type DBStore struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *DBStore { return &DBStore{db: db} }

func (s *DBStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// isUniqueViolation reports whether err is a Postgres unique constraint error.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *DBStore) FindUserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		`select id, email, fullname from users where lower(email)=lower($1)`, email).
		Scan(&u.ID, &u.Email, &u.Fullname)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

func (s *DBStore) UsersByIDs(ctx context.Context, ids []int64) ([]User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`select id, email, fullname from users where id = any($1) order by id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Fullname); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *DBStore) CreateUser(ctx context.Context, email, fullname, passwordHash string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		`insert into users(email, fullname, password_hash) values($1,$2,$3) returning id, email, fullname`,
		email, fullname, passwordHash).
		Scan(&u.ID, &u.Email, &u.Fullname)
	if isUniqueViolation(err) {
		return User{}, ErrConflict
	}
	if err != nil {
		return User{}, err
	}
	return u, nil
}

// Authenticate verifies the password and returns the user on success.
func (s *DBStore) Authenticate(ctx context.Context, email, password string) (User, error) {
	var u User
	var hash string
	err := s.db.QueryRowContext(ctx,
		`select id, email, fullname, password_hash from users where lower(email)=lower($1)`, email).
		Scan(&u.ID, &u.Email, &u.Fullname, &hash)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *DBStore) CreateToken(ctx context.Context, userID int64, ttl time.Duration) (string, error) {
	key := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")
	expires := time.Now().Add(ttl)
	_, err := s.db.ExecContext(ctx,
		`insert into tokens(key, user_id, expires_at) values($1,$2,$3)`, key, userID, expires)
	if err != nil {
		return "", err
	}
	return key, nil
}

func (s *DBStore) UserByToken(ctx context.Context, token string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx,
		`select u.id, u.email, u.fullname from tokens t join users u on u.id=t.user_id
		 where t.key=$1 and t.expires_at > now()`, token).
		Scan(&u.ID, &u.Email, &u.Fullname)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	return u, err
}

const schema = `
create table if not exists users(
    id bigserial primary key,
    email text unique not null,
    fullname text not null default '',
    password_hash text not null,
    created_at timestamptz not null default now()
);
create unique index if not exists users_email_lower_idx on users(lower(email));

create table if not exists tokens(
    key text primary key,
    user_id bigint not null references users(id) on delete cascade,
    created_at timestamptz not null default now(),
    expires_at timestamptz not null
);

create table if not exists boards(
    id bigserial primary key,
    title text not null check (length(title) > 0),
    created_by bigint not null references users(id) on delete cascade,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
create index if not exists boards_created_by_idx on boards(created_by);

create table if not exists board_members(
    board_id bigint not null references boards(id) on delete cascade,
    user_id bigint not null references users(id) on delete cascade,
    primary key(board_id, user_id)
);

create table if not exists tasks(
    id bigserial primary key,
    board_id bigint not null references boards(id) on delete cascade,
    title text not null check (length(title) > 0),
    description text not null default '',
    status text not null default 'to-do',
    priority text not null default 'medium',
    created_by bigint not null references users(id) on delete cascade,
    assignee_id bigint references users(id) on delete set null,
    reviewer_id bigint references users(id) on delete set null,
    due_date date,
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
create index if not exists tasks_board_idx on tasks(board_id);
create index if not exists tasks_assignee_idx on tasks(assignee_id);
create index if not exists tasks_reviewer_idx on tasks(reviewer_id);

create table if not exists comments(
    id bigserial primary key,
    task_id bigint not null references tasks(id) on delete cascade,
    author_id bigint not null references users(id) on delete cascade,
    content text not null check (length(content) > 0),
    created_at timestamptz not null default now()
);
create index if not exists comments_task_idx on comments(task_id);
`

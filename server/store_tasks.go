package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

const taskSelect = `
	select t.id, t.board_id, t.title, t.description, t.status, t.priority,
	       t.created_by, t.due_date, t.created_at,
	       a.id, a.email, a.fullname,
	       r.id, r.email, r.fullname,
	       (select count(*) from comments c where c.task_id=t.id)
	from tasks t
	left join users a on a.id=t.assignee_id
	left join users r on r.id=t.reviewer_id`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (Task, error) {
	var t Task
	var due sql.NullTime
	var aID, rID sql.NullInt64
	var aEmail, aName, rEmail, rName sql.NullString
	err := row.Scan(&t.ID, &t.BoardID, &t.Title, &t.Description, &t.Status, &t.Priority,
		&t.CreatedBy, &due, &t.CreatedAt,
		&aID, &aEmail, &aName,
		&rID, &rEmail, &rName,
		&t.CommentsCount)
	if err != nil {
		return Task{}, err
	}
	if due.Valid {
		t.DueDate = &Date{due.Time}
	}
	if aID.Valid {
		t.Assignee = &User{ID: aID.Int64, Email: aEmail.String, Fullname: aName.String}
	}
	if rID.Valid {
		t.Reviewer = &User{ID: rID.Int64, Email: rEmail.String, Fullname: rName.String}
	}
	return t, nil
}

func (s *DBStore) queryTasks(ctx context.Context, where string, args ...any) ([]Task, error) {
	rows, err := s.db.QueryContext(ctx,
		taskSelect+` where `+where+` order by t.created_at desc, t.id desc`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *DBStore) GetTask(ctx context.Context, id int64) (Task, error) {
	t, err := scanTask(s.db.QueryRowContext(ctx, taskSelect+` where t.id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Task{}, ErrNotFound
	}
	return t, err
}

func (s *DBStore) TasksAssignedTo(ctx context.Context, userID int64) ([]Task, error) {
	return s.queryTasks(ctx, `t.assignee_id=$1`, userID)
}

func (s *DBStore) TasksReviewedBy(ctx context.Context, userID int64) ([]Task, error) {
	return s.queryTasks(ctx, `t.reviewer_id=$1`, userID)
}

func (s *DBStore) CreateTask(ctx context.Context, boardID, creatorID int64, in TaskInput) (Task, error) {
	var id int64
	err := s.db.QueryRowContext(ctx,
		`insert into tasks(board_id, title, description, status, priority, created_by, assignee_id, reviewer_id, due_date)
		 values($1,$2,$3,$4,$5,$6,$7,$8,$9) returning id`,
		boardID, in.Title, in.Description, in.Status, in.Priority, creatorID,
		in.AssigneeID, in.ReviewerID, in.DueDate).
		Scan(&id)
	if err != nil {
		return Task{}, err
	}
	return s.GetTask(ctx, id)
}

// UpdateTask applies a partial update. Only the provided columns land in the
// SET clause.
func (s *DBStore) UpdateTask(ctx context.Context, id int64, p TaskPatch) (Task, error) {
	set := []string{}
	args := []any{}
	idx := 1
	add := func(col string, v any) {
		set = append(set, fmt.Sprintf("%s=$%d", col, idx))
		args = append(args, v)
		idx++
	}
	if p.Title != nil {
		add("title", *p.Title)
	}
	if p.Description != nil {
		add("description", *p.Description)
	}
	if p.Status != nil {
		add("status", *p.Status)
	}
	if p.Priority != nil {
		add("priority", *p.Priority)
	}
	if p.Assignee.Set {
		add("assignee_id", p.Assignee.ID)
	}
	if p.Reviewer.Set {
		add("reviewer_id", p.Reviewer.ID)
	}
	if p.DueDate.Set {
		add("due_date", p.DueDate.Date)
	}
	if len(set) > 0 {
		set = append(set, "updated_at=now()")
		q := fmt.Sprintf("update tasks set %s where id=$%d", joinComma(set), idx)
		args = append(args, id)
		res, err := s.db.ExecContext(ctx, q, args...)
		if err != nil {
			return Task{}, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return Task{}, ErrNotFound
		}
	}
	return s.GetTask(ctx, id)
}

func (s *DBStore) DeleteTask(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from tasks where id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func joinComma(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}

// Comments are listed oldest first.
func (s *DBStore) CommentsByTask(ctx context.Context, taskID int64) ([]Comment, error) {
	rows, err := s.db.QueryContext(ctx,
		`select c.id, c.task_id, c.author_id, u.fullname, c.content, c.created_at
		 from comments c join users u on u.id=c.author_id
		 where c.task_id=$1 order by c.created_at, c.id`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Comment{}
	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.Author, &c.Content, &c.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *DBStore) AddComment(ctx context.Context, taskID, authorID int64, content string) (Comment, error) {
	var c Comment
	err := s.db.QueryRowContext(ctx,
		`with ins as (
		   insert into comments(task_id, author_id, content) values($1,$2,$3)
		   returning id, task_id, author_id, content, created_at
		 )
		 select ins.id, ins.task_id, ins.author_id, u.fullname, ins.content, ins.created_at
		 from ins join users u on u.id=ins.author_id`,
		taskID, authorID, content).
		Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.Author, &c.Content, &c.CreatedAt)
	return c, err
}

func (s *DBStore) GetComment(ctx context.Context, taskID, commentID int64) (Comment, error) {
	var c Comment
	err := s.db.QueryRowContext(ctx,
		`select c.id, c.task_id, c.author_id, u.fullname, c.content, c.created_at
		 from comments c join users u on u.id=c.author_id
		 where c.id=$1 and c.task_id=$2`, commentID, taskID).
		Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.Author, &c.Content, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Comment{}, ErrNotFound
	}
	return c, err
}

func (s *DBStore) DeleteComment(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from comments where id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

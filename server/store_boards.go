package main

import (
	"context"
	"database/sql"
	"errors"
)

const boardCountsSelect = `
	(select count(*) from board_members m where m.board_id=b.id),
	(select count(*) from tasks t where t.board_id=b.id),
	(select count(*) from tasks t where t.board_id=b.id and t.status='to-do'),
	(select count(*) from tasks t where t.board_id=b.id and t.priority='high')`

func (s *DBStore) ListBoardsFor(ctx context.Context, userID int64) ([]BoardSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`select b.id, b.title, b.created_by,`+boardCountsSelect+`
		 from boards b
		 where b.created_by=$1
		    or exists (select 1 from board_members m where m.board_id=b.id and m.user_id=$1)
		 order by b.created_at desc, b.id desc`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []BoardSummary{}
	for rows.Next() {
		var b BoardSummary
		if err := rows.Scan(&b.ID, &b.Title, &b.OwnerID,
			&b.MemberCount, &b.TicketCount, &b.TasksToDoCount, &b.TasksHighPrioCount); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// GetBoard loads the board record plus its member id set in one call so the
// authorization layer never re-derives membership.
func (s *DBStore) GetBoard(ctx context.Context, id int64) (Board, error) {
	var b Board
	err := s.db.QueryRowContext(ctx,
		`select id, title, created_by, created_at, updated_at from boards where id=$1`, id).
		Scan(&b.ID, &b.Title, &b.OwnerID, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Board{}, ErrNotFound
	}
	if err != nil {
		return Board{}, err
	}
	rows, err := s.db.QueryContext(ctx,
		`select user_id from board_members where board_id=$1 order by user_id`, id)
	if err != nil {
		return Board{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var uid int64
		if err := rows.Scan(&uid); err != nil {
			return Board{}, err
		}
		b.MemberIDs = append(b.MemberIDs, uid)
	}
	return b, rows.Err()
}

func (s *DBStore) BoardDetail(ctx context.Context, id int64) (BoardDetail, error) {
	var d BoardDetail
	err := s.db.QueryRowContext(ctx,
		`select id, title, created_by from boards where id=$1`, id).
		Scan(&d.ID, &d.Title, &d.OwnerID)
	if errors.Is(err, sql.ErrNoRows) {
		return BoardDetail{}, ErrNotFound
	}
	if err != nil {
		return BoardDetail{}, err
	}
	members, err := s.boardMembers(ctx, id)
	if err != nil {
		return BoardDetail{}, err
	}
	d.Members = members
	tasks, err := s.queryTasks(ctx, `t.board_id=$1`, id)
	if err != nil {
		return BoardDetail{}, err
	}
	d.Tasks = tasks
	return d, nil
}

func (s *DBStore) boardMembers(ctx context.Context, boardID int64) ([]User, error) {
	rows, err := s.db.QueryContext(ctx,
		`select u.id, u.email, u.fullname from board_members m join users u on u.id=m.user_id
		 where m.board_id=$1 order by u.id`, boardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Fullname); err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// CreateBoard inserts the board and its initial member set in one
// transaction; a failure partway leaves nothing behind.
func (s *DBStore) CreateBoard(ctx context.Context, ownerID int64, title string, memberIDs []int64) (BoardSummary, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return BoardSummary{}, err
	}
	defer func() { _ = tx.Rollback() }()
	var id int64
	if err := tx.QueryRowContext(ctx,
		`insert into boards(title, created_by) values($1,$2) returning id`, title, ownerID).
		Scan(&id); err != nil {
		return BoardSummary{}, err
	}
	for _, uid := range memberIDs {
		if _, err := tx.ExecContext(ctx,
			`insert into board_members(board_id, user_id) values($1,$2) on conflict do nothing`, id, uid); err != nil {
			return BoardSummary{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return BoardSummary{}, err
	}
	return s.boardSummary(ctx, id)
}

func (s *DBStore) boardSummary(ctx context.Context, id int64) (BoardSummary, error) {
	var b BoardSummary
	err := s.db.QueryRowContext(ctx,
		`select b.id, b.title, b.created_by,`+boardCountsSelect+` from boards b where b.id=$1`, id).
		Scan(&b.ID, &b.Title, &b.OwnerID,
			&b.MemberCount, &b.TicketCount, &b.TasksToDoCount, &b.TasksHighPrioCount)
	if errors.Is(err, sql.ErrNoRows) {
		return BoardSummary{}, ErrNotFound
	}
	return b, err
}

// UpdateBoard applies a partial update; a non-nil memberIDs replaces the
// whole member set atomically.
func (s *DBStore) UpdateBoard(ctx context.Context, id int64, title *string, memberIDs *[]int64) (BoardUpdated, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return BoardUpdated{}, err
	}
	defer func() { _ = tx.Rollback() }()
	if title != nil {
		res, err := tx.ExecContext(ctx,
			`update boards set title=$1, updated_at=now() where id=$2`, *title, id)
		if err != nil {
			return BoardUpdated{}, err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return BoardUpdated{}, ErrNotFound
		}
	}
	if memberIDs != nil {
		if _, err := tx.ExecContext(ctx, `delete from board_members where board_id=$1`, id); err != nil {
			return BoardUpdated{}, err
		}
		for _, uid := range *memberIDs {
			if _, err := tx.ExecContext(ctx,
				`insert into board_members(board_id, user_id) values($1,$2) on conflict do nothing`, id, uid); err != nil {
				return BoardUpdated{}, err
			}
		}
		if _, err := tx.ExecContext(ctx, `update boards set updated_at=now() where id=$1`, id); err != nil {
			return BoardUpdated{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return BoardUpdated{}, err
	}

	var out BoardUpdated
	err = s.db.QueryRowContext(ctx,
		`select b.id, b.title, u.id, u.email, u.fullname
		 from boards b join users u on u.id=b.created_by where b.id=$1`, id).
		Scan(&out.ID, &out.Title, &out.OwnerData.ID, &out.OwnerData.Email, &out.OwnerData.Fullname)
	if errors.Is(err, sql.ErrNoRows) {
		return BoardUpdated{}, ErrNotFound
	}
	if err != nil {
		return BoardUpdated{}, err
	}
	members, err := s.boardMembers(ctx, id)
	if err != nil {
		return BoardUpdated{}, err
	}
	out.MembersData = members
	return out, nil
}

func (s *DBStore) DeleteBoard(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `delete from boards where id=$1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

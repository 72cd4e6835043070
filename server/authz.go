package main

// Authorization is decided by pure functions over already-loaded records, so
// the whole decision table lives here and is testable without a request in
// flight. Handlers compose these per endpoint and short-circuit before any
// validation or mutation runs.

type decision int

const (
	decisionAllow decision = iota
	// decisionForbidden maps to 403: the requester exists for this resource
	// but lacks rights.
	decisionForbidden
	// decisionHidden maps to 404: the resource's existence is not disclosed
	// to the requester.
	decisionHidden
)

func isOwner(b *Board, userID int64) bool { return b.OwnerID == userID }

// isOwnerOrMember is the membership authority every downstream check builds
// on. The owner is not required to appear in the member set.
func isOwnerOrMember(b *Board, userID int64) bool {
	if b.OwnerID == userID {
		return true
	}
	for _, id := range b.MemberIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Board detail and partial update hide the board from outsiders.
func canViewBoard(b *Board, userID int64) decision {
	if isOwnerOrMember(b, userID) {
		return decisionAllow
	}
	return decisionHidden
}

func canUpdateBoard(b *Board, userID int64) decision {
	// Members may update, including editing the member set.
	if isOwnerOrMember(b, userID) {
		return decisionAllow
	}
	return decisionHidden
}

func canDeleteBoard(b *Board, userID int64) decision {
	if isOwner(b, userID) {
		return decisionAllow
	}
	return decisionForbidden
}

// canTouchTask covers task create, update and comment list/create: board
// owner or member. Unlike board detail, outsiders get a plain 403 here.
func canTouchTask(b *Board, userID int64) decision {
	if isOwnerOrMember(b, userID) {
		return decisionAllow
	}
	return decisionForbidden
}

// canDeleteTask: task creator or board owner only; plain board membership is
// not enough.
func canDeleteTask(t *Task, b *Board, userID int64) decision {
	if t.CreatedBy == userID || isOwner(b, userID) {
		return decisionAllow
	}
	return decisionForbidden
}

// canDeleteComment: strictly the author; board ownership grants nothing.
func canDeleteComment(c *Comment, userID int64) decision {
	if c.AuthorID == userID {
		return decisionAllow
	}
	return decisionForbidden
}

package board

import (
	"github.com/dvo/boardsync/internal/model"
)

// ThreadEntry is one comment prepared for display: the comment itself
// plus its resolved parent, if any. A reply whose parent was deleted
// degrades to a plain comment with no quoted context.
type ThreadEntry struct {
	Comment *model.Element
	Parent  *model.Element
	// Orphan is true when the comment carries a reply reference that
	// no longer resolves.
	Orphan bool
}

// ResolveReply looks up the element a reply points at within one
// task's element set. A missing or dangling reference resolves to nil,
// never an error.
func ResolveReply(list []*model.Element, replyToID string) *model.Element {
	if replyToID == "" {
		return nil
	}
	for _, e := range list {
		if e.ID == replyToID {
			return e
		}
	}
	return nil
}

// replyAuthor names the author of a resolved parent for log messages,
// degrading gracefully when the parent is gone.
func replyAuthor(parent *model.Element) string {
	if parent == nil || parent.AuthorName == "" {
		return "a deleted comment"
	}
	return parent.AuthorName
}

// Thread returns a loaded task's comments in creation order, each with
// its reply parent resolved.
func (s *Session) Thread(taskID string) ([]ThreadEntry, error) {
	elements, err := s.Elements(taskID)
	if err != nil {
		return nil, err
	}

	var entries []ThreadEntry
	for _, e := range elements {
		if e.Kind != model.ElementComment {
			continue
		}
		entry := ThreadEntry{Comment: e}
		if ref := e.Comment.ReplyToID; ref != "" {
			entry.Parent = ResolveReply(elements, ref)
			entry.Orphan = entry.Parent == nil
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// StartReply marks a comment of the current task as the target of the
// next submitted comment.
func (s *Session) StartReply(elementID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.currentTaskID == "" {
		return &model.ValidationError{Field: "task", Message: "no task loaded"}
	}
	for _, e := range s.elements[s.currentTaskID] {
		if e.ID == elementID && e.Kind == model.ElementComment {
			s.pendingReply = elementID
			return nil
		}
	}
	return &model.NotFoundError{Entity: "comment", ID: elementID}
}

// CancelReply clears the pending-reply pointer.
func (s *Session) CancelReply() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingReply = ""
}

// PendingReply returns the id of the comment the next submission will
// reply to, or empty.
func (s *Session) PendingReply() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingReply
}

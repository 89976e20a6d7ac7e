package board

import (
	"context"
	"log"

	"github.com/dvo/boardsync/internal/model"
)

// Pending is the handle for one dispatched mutation. The local apply
// has already happened by the time a Pending exists; Wait blocks until
// the remote persist settles and returns nil on success or the
// *model.PersistenceError surfaced after rollback.
type Pending struct {
	done   chan struct{}
	err    error
	logErr error
}

// Wait blocks until the mutation settles.
func (p *Pending) Wait() error {
	<-p.done
	return p.err
}

// LogErr returns the *model.PartialLogError recorded if the history
// append failed after a successful persist. Valid after Wait returns.
func (p *Pending) LogErr() error {
	<-p.done
	return p.logErr
}

// logPartial records a history-append failure that follows an already
// successful primary mutation. Internal only, never surfaced.
func logPartial(err *model.PartialLogError) {
	log.Printf("boardsync: %v", err)
}

// mutation is one instance of the optimistic pattern: a synchronous
// local apply that yields a rollback closure, an asynchronous remote
// persist, and an optional history record appended only on success.
type mutation struct {
	entity string
	id     string
	action string

	// apply mutates the in-memory model and returns the closure that
	// restores the exact pre-mutation snapshot. It runs, like the
	// rollback closure, with the session mutex held. A returned error
	// means nothing was touched.
	apply func() (rollback func(), err error)

	persist func(ctx context.Context) error

	// record builds the history entry for a successful persist. It
	// runs outside the mutex; nil means no history is written.
	record func() *model.HistoryEntry
}

// dispatch runs the optimistic protocol for one mutation.
//
// The local apply is synchronous: when dispatch returns without error
// the new state is already observable. The persist runs on its own
// goroutine; on failure the rollback closure restores the snapshot
// before the error becomes observable through the Pending handle, so
// the caller never sees a half-applied model. A history-append failure
// after a successful persist is logged and reported as LogErr but
// never undoes the primary mutation.
//
// At most one mutation per entity id may be in flight; a second is
// rejected with *model.ConflictError before any state is touched.
func (s *Session) dispatch(ctx context.Context, m mutation) (*Pending, error) {
	s.mu.Lock()
	if _, busy := s.inflight[m.id]; busy {
		s.mu.Unlock()
		return nil, &model.ConflictError{Entity: m.entity, ID: m.id}
	}

	rollback, err := m.apply()
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.inflight[m.id] = struct{}{}
	s.mu.Unlock()

	p := &Pending{done: make(chan struct{})}

	go func() {
		defer close(p.done)

		if err := m.persist(ctx); err != nil {
			s.mu.Lock()
			rollback()
			delete(s.inflight, m.id)
			s.mu.Unlock()

			p.err = &model.PersistenceError{Op: m.action + " " + m.entity, Err: err}
			log.Printf("boardsync: rolled back %s %s: %v", m.action, m.entity, err)
			s.emit(Event{EntityID: m.id, Action: m.action, Err: p.err})
			return
		}

		if m.record != nil {
			entry := m.record()
			if logErr := s.gw.AppendHistory(ctx, *entry); logErr != nil {
				p.logErr = &model.PartialLogError{Action: entry.Action, Err: logErr}
				log.Printf("boardsync: %v", p.logErr)
			}
		}

		s.mu.Lock()
		delete(s.inflight, m.id)
		s.mu.Unlock()

		s.emit(Event{EntityID: m.id, Action: m.action, LogErr: p.logErr})
	}()

	return p, nil
}

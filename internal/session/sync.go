package session

import (
	"context"
	"time"
)

// scheduleSync (re)arms the debounce timer. Callers hold s.mu.
func (s *Session) scheduleSync() {
	if s.opts.Backend == nil {
		return
	}
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	s.dirty = true
	if s.syncTimer != nil {
		s.syncTimer.Stop()
	}
	s.syncTimer = time.AfterFunc(s.opts.SyncDebounce, func() {
		if err := s.flushSync(); err != nil {
			s.log.Warn("state sync failed", "err", err)
		}
	})
}

// flushSync uploads the current stand if anything changed since the last
// upload.
func (s *Session) flushSync() error {
	s.flushMu.Lock()
	defer s.flushMu.Unlock()
	s.syncMu.Lock()
	if !s.dirty {
		s.syncMu.Unlock()
		return nil
	}
	s.dirty = false
	s.syncMu.Unlock()

	snapshot := s.State()
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.RemoteTimeout)
	defer cancel()
	if err := s.opts.Backend.SyncState(ctx, snapshot); err != nil {
		s.syncMu.Lock()
		s.dirty = true
		s.syncMu.Unlock()
		return err
	}
	return nil
}

package platform

import (
	"go.uber.org/zap"

	"gamedock/internal/store"
)

// Register creates a fresh account for the given role. Credentials are
// stored as given and compared by equality; hashing them would change the
// wire contract with existing clients.
func (s *Service) Register(role, username, password string) error {
	if username == "" || password == "" {
		return ErrEmptyCredentials
	}
	return s.store.Update(func(d *store.Document) error {
		switch role {
		case RoleDeveloper:
			if _, ok := d.Developers[username]; ok {
				return ErrUsernameTaken
			}
			d.Developers[username] = &store.Developer{Password: password, Games: []string{}}
		case RolePlayer:
			if _, ok := d.Players[username]; ok {
				return ErrUsernameTaken
			}
			d.Players[username] = &store.Player{Password: password, PlayedGames: map[string]int{}}
		default:
			return badRequest("unknown role: %s", role)
		}
		return nil
	})
}

// Login validates credentials and opens a session. A fresh session for the
// same account blocks re-login for the concurrent-login lock window.
func (s *Service) Login(role, username, password string) error {
	return s.store.Update(func(d *store.Document) error {
		stored, ok := s.lookupPassword(d, role, username)
		if !ok || stored != password {
			return ErrBadCredentials
		}
		sessions := d.Sessions.ByRole(role)
		if sessions == nil {
			return badRequest("unknown role: %s", role)
		}
		now := s.unix()
		if last, ok := sessions[username]; ok && now-last < int64(s.cfg.Sessions.ConcurrentLockSeconds) {
			return ErrConcurrentLogin
		}
		sessions[username] = now
		s.setOnline(d, role, username, true)
		return nil
	})
}

// Logout drops the session. Idempotent; never fails from the caller's
// point of view.
func (s *Service) Logout(role, username string) {
	err := s.store.Update(func(d *store.Document) error {
		if sessions := d.Sessions.ByRole(role); sessions != nil {
			delete(sessions, username)
		}
		s.setOnline(d, role, username, false)
		return nil
	})
	if err != nil {
		s.log.Warn("logout persist failed", zap.Error(err))
	}
}

// IsLoggedIn reports whether the session is fresh. Strictly read-only:
// per-request sliding renewal would turn every API call into a disk write,
// so session freshness moves only on explicit heartbeats.
func (s *Service) IsLoggedIn(role, username string) bool {
	d := s.store.Snapshot()
	sessions := d.Sessions.ByRole(role)
	if sessions == nil {
		return false
	}
	last, ok := sessions[username]
	if !ok {
		return false
	}
	return s.unix()-last <= int64(s.cfg.Sessions.TimeoutSeconds)
}

// SessionHeartbeat refreshes an existing session; a missing session is a
// no-op, never an implicit login.
func (s *Service) SessionHeartbeat(role, username string) {
	_ = s.store.Update(func(d *store.Document) error {
		sessions := d.Sessions.ByRole(role)
		if sessions == nil {
			return nil
		}
		if _, ok := sessions[username]; ok {
			sessions[username] = s.unix()
		}
		return nil
	})
}

func (s *Service) lookupPassword(d *store.Document, role, username string) (string, bool) {
	switch role {
	case RoleDeveloper:
		if u, ok := d.Developers[username]; ok {
			return u.Password, true
		}
	case RolePlayer:
		if u, ok := d.Players[username]; ok {
			return u.Password, true
		}
	}
	return "", false
}

func (s *Service) setOnline(d *store.Document, role, username string, online bool) {
	switch role {
	case RoleDeveloper:
		if u, ok := d.Developers[username]; ok {
			u.Online = online
		}
	case RolePlayer:
		if u, ok := d.Players[username]; ok {
			u.Online = online
		}
	}
}

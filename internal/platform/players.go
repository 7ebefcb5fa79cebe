package platform

import (
	"sort"

	"gamedock/internal/store"
)

// PlayerStatus is one row of the public player list
type PlayerStatus struct {
	Name   string `json:"name"`
	Online bool   `json:"online"`
}

// Profile is a player's own record: play counts and the ratings they left
type Profile struct {
	Name        string          `json:"name"`
	PlayedGames map[string]int  `json:"played_games"`
	Ratings     []*store.Rating `json:"ratings"`
}

// ListPlayers reports every player with an online badge derived from
// session freshness, not from the stored online flag: a crashed client
// goes dark once its heartbeats stop.
func (s *Service) ListPlayers() []PlayerStatus {
	d := s.store.Snapshot()
	now := s.unix()
	window := int64(s.cfg.Sessions.OnlineWindowSeconds)
	out := make([]PlayerStatus, 0, len(d.Players))
	for name := range d.Players {
		last, ok := d.Sessions.Player[name]
		out = append(out, PlayerStatus{
			Name:   name,
			Online: ok && now-last <= window,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// PlayerProfile returns the player's play counts and own ratings
func (s *Service) PlayerProfile(username string) (*Profile, error) {
	d := s.store.Snapshot()
	player, ok := d.Players[username]
	if !ok {
		return nil, ErrPlayerNotFound
	}
	profile := &Profile{
		Name:        username,
		PlayedGames: player.PlayedGames,
		Ratings:     []*store.Rating{},
	}
	if profile.PlayedGames == nil {
		profile.PlayedGames = map[string]int{}
	}
	for _, r := range d.Ratings {
		if r.Player == username {
			profile.Ratings = append(profile.Ratings, r)
		}
	}
	sort.Slice(profile.Ratings, func(i, j int) bool { return profile.Ratings[i].ID < profile.Ratings[j].ID })
	return profile, nil
}

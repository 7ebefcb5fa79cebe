package store

// RoomStatus represents the lifecycle state of a room
type RoomStatus string

const (
	RoomWaiting  RoomStatus = "waiting"
	RoomInGame   RoomStatus = "in_game"
	RoomFinished RoomStatus = "finished"
)

// Developer is an account that publishes games
type Developer struct {
	Password string   `json:"password"`
	Games    []string `json:"games"`
	Online   bool     `json:"online"`
}

// Player is an account that joins rooms and plays games
type Player struct {
	Password    string         `json:"password"`
	PlayedGames map[string]int `json:"played_games"`
	Online      bool           `json:"online"`
}

// Version is one uploaded revision of a game bundle
type Version struct {
	Version    string `json:"version"`
	Path       string `json:"path"`
	UploadedAt int64  `json:"uploaded_at"`
	Notes      string `json:"notes"`
}

// Game is a published game with its version history
type Game struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Developer      string     `json:"developer"`
	Description    string     `json:"description"`
	MinPlayers     int        `json:"min_players"`
	MaxPlayers     int        `json:"max_players"`
	Active         bool       `json:"active"`
	AcceptNewRooms bool       `json:"accept_new_rooms"`
	Versions       []*Version `json:"versions"`
	LatestVersion  string     `json:"latest_version"`
	Ratings        []int      `json:"ratings"`
	DeactivatedAt  int64      `json:"deactivated_at,omitempty"`
}

// FindVersion returns the version record matching v, or nil
func (g *Game) FindVersion(v string) *Version {
	for _, rec := range g.Versions {
		if rec.Version == v {
			return rec
		}
	}
	return nil
}

// GameServer is the advertised endpoint of a running game server
type GameServer struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// Room is a coordinated session for one game+version
type Room struct {
	ID              int              `json:"id"`
	GameID          string           `json:"game_id"`
	Version         string           `json:"version"`
	Host            string           `json:"host"`
	Players         []string         `json:"players"`
	MaxPlayers      int              `json:"max_players"`
	MinPlayers      int              `json:"min_players"`
	Status          RoomStatus       `json:"status"`
	CreatedAt       int64            `json:"created_at"`
	StartedAt       int64            `json:"started_at,omitempty"`
	Heartbeats      map[string]int64 `json:"heartbeats"`
	EndedAt         int64            `json:"ended_at,omitempty"`
	EndedReason     string           `json:"ended_reason,omitempty"`
	PlayedCounted   bool             `json:"played_counted,omitempty"`
	PlayedCountedAt int64            `json:"played_counted_at,omitempty"`
	GameServer      *GameServer      `json:"game_server,omitempty"`
}

// HasPlayer reports whether name is currently a member of the room
func (r *Room) HasPlayer(name string) bool {
	for _, p := range r.Players {
		if p == name {
			return true
		}
	}
	return false
}

// RemovePlayer drops name from the member list and heartbeat table
func (r *Room) RemovePlayer(name string) {
	kept := r.Players[:0]
	for _, p := range r.Players {
		if p != name {
			kept = append(kept, p)
		}
	}
	r.Players = kept
	delete(r.Heartbeats, name)
}

// Rating is one player's review of a game
type Rating struct {
	ID        int    `json:"id"`
	Player    string `json:"player"`
	GameID    string `json:"game_id"`
	Score     int    `json:"score"`
	Comment   string `json:"comment"`
	CreatedAt int64  `json:"created_at"`
}

// Sessions holds the per-role login tables (username -> last-seen unix seconds)
type Sessions struct {
	Developer map[string]int64 `json:"developer"`
	Player    map[string]int64 `json:"player"`
}

// ByRole returns the session table for the given role, or nil
func (s *Sessions) ByRole(role string) map[string]int64 {
	switch role {
	case "developer":
		return s.Developer
	case "player":
		return s.Player
	}
	return nil
}

// NextIDs holds the monotonic id counters
type NextIDs struct {
	Room   int `json:"room"`
	Rating int `json:"rating"`
}

// Document is the single persisted state of the platform
type Document struct {
	Developers map[string]*Developer `json:"developers"`
	Players    map[string]*Player    `json:"players"`
	Games      map[string]*Game      `json:"games"`
	Rooms      map[int]*Room         `json:"rooms"`
	Ratings    map[int]*Rating       `json:"ratings"`
	Sessions   Sessions              `json:"sessions"`
	NextIDs    NextIDs               `json:"next_ids"`
}

// NewDocument returns the empty schema with counters starting at 1
func NewDocument() *Document {
	return &Document{
		Developers: make(map[string]*Developer),
		Players:    make(map[string]*Player),
		Games:      make(map[string]*Game),
		Rooms:      make(map[int]*Room),
		Ratings:    make(map[int]*Rating),
		Sessions: Sessions{
			Developer: make(map[string]int64),
			Player:    make(map[string]int64),
		},
		NextIDs: NextIDs{Room: 1, Rating: 1},
	}
}

// ActiveRoomCount counts rooms for gameID that have not finished
func (d *Document) ActiveRoomCount(gameID string) int {
	n := 0
	for _, r := range d.Rooms {
		if r.GameID == gameID && r.Status != RoomFinished {
			n++
		}
	}
	return n
}

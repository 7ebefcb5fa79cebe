package platform

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"gamedock/internal/runtime"
	"gamedock/internal/store"
)

// PlayedReceipt acknowledges a play-count increment for a room
type PlayedReceipt struct {
	RoomID  int  `json:"room_id"`
	Counted bool `json:"counted"`
}

// CreateRoom opens a waiting room for gameID hosted by host, pinned to the
// game's latest version.
func (s *Service) CreateRoom(host, gameID string) (*store.Room, error) {
	var created *store.Room
	err := s.store.Update(func(d *store.Document) error {
		s.cleanupRooms(d)
		game, ok := d.Games[gameID]
		if !ok {
			return ErrUnknownGame
		}
		if !game.Active {
			return ErrGameInactive
		}
		if !game.AcceptNewRooms {
			return ErrNoNewRooms
		}
		if _, ok := d.Players[host]; !ok {
			return ErrUnknownPlayer
		}
		if max := s.cfg.Rooms.MaxRooms; max > 0 && len(d.Rooms) >= max {
			return ErrRoomCapExceeded
		}
		now := s.unix()
		id := d.NextIDs.Room
		d.NextIDs.Room++
		room := &store.Room{
			ID:         id,
			GameID:     gameID,
			Version:    game.LatestVersion,
			Host:       host,
			Players:    []string{host},
			MaxPlayers: game.MaxPlayers,
			MinPlayers: game.MinPlayers,
			Status:     store.RoomWaiting,
			CreatedAt:  now,
			Heartbeats: map[string]int64{host: now},
		}
		d.Rooms[id] = room
		created = cloneJSON(room)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("room created",
		zap.Int("room", created.ID),
		zap.String("game", gameID),
		zap.String("host", host))
	return created, nil
}

// JoinRoom adds player to a waiting room. Downlisted games keep their
// existing rooms joinable.
func (s *Service) JoinRoom(player string, roomID int) (*store.Room, error) {
	var joined *store.Room
	err := s.store.Update(func(d *store.Document) error {
		s.cleanupRooms(d)
		room, ok := d.Rooms[roomID]
		if !ok {
			return ErrRoomGone
		}
		if room.Status == store.RoomFinished {
			return roomEnded(room.EndedReason)
		}
		if room.Status != store.RoomWaiting {
			return ErrAlreadyStarted
		}
		if _, ok := d.Games[room.GameID]; !ok {
			return ErrUnknownGame
		}
		if _, ok := d.Players[player]; !ok {
			return ErrUnknownPlayer
		}
		if room.HasPlayer(player) {
			return ErrAlreadyInRoom
		}
		if len(room.Players) >= room.MaxPlayers {
			return ErrRoomFull
		}
		room.Players = append(room.Players, player)
		room.Heartbeats[player] = s.unix()
		joined = cloneJSON(room)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return joined, nil
}

// LeaveRoom removes player. A guest leaving a waiting room shrinks it; a
// host leaving, or anyone leaving mid-game, finishes the room.
func (s *Service) LeaveRoom(player string, roomID int) (*store.Room, error) {
	var left *store.Room
	err := s.store.Update(func(d *store.Document) error {
		s.cleanupRooms(d)
		room, ok := d.Rooms[roomID]
		if !ok {
			return ErrRoomGone
		}
		if room.Status == store.RoomFinished {
			return roomEnded(room.EndedReason)
		}
		if !room.HasPlayer(player) {
			return ErrNotMember
		}
		if room.Status == store.RoomWaiting && player != room.Host {
			room.RemovePlayer(player)
			left = cloneJSON(room)
			return nil
		}
		room.RemovePlayer(player)
		reason := fmt.Sprintf("%s left during the match, room closed", player)
		if player == room.Host {
			reason = fmt.Sprintf("host %s left, room closed", player)
		}
		s.finishRoom(room, reason)
		left = cloneJSON(room)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return left, nil
}

// CloseRoom lets any member shut the room down
func (s *Service) CloseRoom(player string, roomID int) (*store.Room, error) {
	var closed *store.Room
	err := s.store.Update(func(d *store.Document) error {
		s.cleanupRooms(d)
		room, ok := d.Rooms[roomID]
		if !ok {
			return ErrRoomGone
		}
		if !room.HasPlayer(player) {
			return ErrNotMember
		}
		if room.Status == store.RoomFinished {
			return roomEnded(room.EndedReason)
		}
		s.finishRoom(room, fmt.Sprintf("%s closed the room", player))
		closed = cloneJSON(room)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return closed, nil
}

// StartRoom launches the room's game server and moves the room into play.
// Only the host may start, and only once enough players have gathered. The
// room record is mutated only after the supervisor reports success, so a
// failed spawn leaves the room waiting.
func (s *Service) StartRoom(player string, roomID int) (*store.Room, error) {
	var started *store.Room
	err := s.store.Update(func(d *store.Document) error {
		s.cleanupRooms(d)
		room, ok := d.Rooms[roomID]
		if !ok {
			return ErrRoomGone
		}
		if room.Status == store.RoomFinished {
			return roomEnded(room.EndedReason)
		}
		game, ok := d.Games[room.GameID]
		if !ok {
			return ErrUnknownGame
		}
		if room.Status != store.RoomWaiting {
			return ErrAlreadyStarted
		}
		if player != room.Host {
			return ErrNotHost
		}
		if len(room.Players) < room.MinPlayers {
			return ErrBelowMinPlayers
		}
		rec := game.FindVersion(room.Version)
		if rec == nil {
			return badRequest("bundle for version %s is missing", room.Version)
		}

		endpoint, err := s.rt.Start(game.ID, room.Version, room.ID, rec.Path)
		if err != nil {
			return runtimeError(err)
		}

		now := s.unix()
		room.Status = store.RoomInGame
		room.StartedAt = now
		if endpoint != nil {
			room.GameServer = &store.GameServer{Host: endpoint.Host, Port: endpoint.Port}
		} else {
			// Client-only game: players talk to the platform itself
			room.GameServer = &store.GameServer{Host: s.platformHost(), Port: s.platformPort()}
		}
		for _, p := range room.Players {
			room.Heartbeats[p] = now
		}
		started = cloneJSON(room)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("room started",
		zap.Int("room", started.ID),
		zap.String("game", started.GameID),
		zap.String("server", started.GameServer.Host),
		zap.Int("port", started.GameServer.Port))
	return started, nil
}

// RoomHeartbeat records that player is still present in the room
func (s *Service) RoomHeartbeat(player string, roomID int) (*store.Room, error) {
	var beat *store.Room
	err := s.store.Update(func(d *store.Document) error {
		s.cleanupRooms(d)
		room, ok := d.Rooms[roomID]
		if !ok {
			return ErrRoomGone
		}
		if !room.HasPlayer(player) {
			return ErrNotMember
		}
		if room.Status == store.RoomFinished {
			return roomEnded(room.EndedReason)
		}
		room.Heartbeats[player] = s.unix()
		beat = cloneJSON(room)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return beat, nil
}

// ListRooms returns the open rooms (waiting or in game), oldest first
func (s *Service) ListRooms() ([]*store.Room, error) {
	var rooms []*store.Room
	err := s.store.Update(func(d *store.Document) error {
		s.cleanupRooms(d)
		for _, room := range d.Rooms {
			if room.Status == store.RoomFinished {
				continue
			}
			rooms = append(rooms, cloneJSON(room))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i].ID < rooms[j].ID })
	return rooms, nil
}

// GetRoom returns one room, including finished rooms that are still inside
// the grace window so clients can show the final reason.
func (s *Service) GetRoom(roomID int) (*store.Room, error) {
	var room *store.Room
	err := s.store.Update(func(d *store.Document) error {
		s.cleanupRooms(d)
		r, ok := d.Rooms[roomID]
		if !ok {
			return ErrRoomNotFound
		}
		room = cloneJSON(r)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

// MarkRoomPlayed increments the play count of every member of an in-game
// room, at most once per room.
func (s *Service) MarkRoomPlayed(player string, roomID int) (*PlayedReceipt, error) {
	receipt := &PlayedReceipt{RoomID: roomID, Counted: true}
	err := s.store.Update(func(d *store.Document) error {
		s.cleanupRooms(d)
		room, ok := d.Rooms[roomID]
		if !ok {
			return ErrRoomGone
		}
		if room.Status != store.RoomInGame {
			return ErrRoomNotStarted
		}
		if !room.HasPlayer(player) {
			return ErrNotMember
		}
		if room.PlayedCounted {
			return nil
		}
		for _, p := range room.Players {
			if rec, ok := d.Players[p]; ok {
				if rec.PlayedGames == nil {
					rec.PlayedGames = map[string]int{}
				}
				rec.PlayedGames[room.GameID]++
			}
		}
		room.PlayedCounted = true
		room.PlayedCountedAt = s.unix()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// FinishAbandonedRooms is the cold-boot pass: the supervisor's handle map
// did not survive the restart, so any room still marked in_game has lost
// its server and is finished outright.
func (s *Service) FinishAbandonedRooms() error {
	finished := 0
	err := s.store.Update(func(d *store.Document) error {
		for _, room := range d.Rooms {
			if room.Status == store.RoomInGame {
				s.finishRoom(room, "server restart")
				finished++
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if finished > 0 {
		s.log.Warn("finished rooms abandoned by restart", zap.Int("count", finished))
	}
	return nil
}

// cleanupRooms runs at the top of every registry transaction: it drops
// finished rooms past their grace window, prunes stale guests from waiting
// rooms, and finishes rooms whose host (waiting) or any member (in game)
// stopped heartbeating.
func (s *Service) cleanupRooms(d *store.Document) {
	now := s.unix()
	hbTimeout := int64(s.cfg.Rooms.HeartbeatTimeoutSeconds)
	grace := int64(s.cfg.Rooms.FinishedGraceSeconds)

	var expired []int
	for id, room := range d.Rooms {
		if room.Status == store.RoomFinished {
			if now-room.EndedAt > grace {
				expired = append(expired, id)
			}
			continue
		}
		if room.Heartbeats == nil {
			room.Heartbeats = map[string]int64{}
		}
		for _, p := range room.Players {
			if _, ok := room.Heartbeats[p]; !ok {
				room.Heartbeats[p] = room.CreatedAt
			}
		}
		var stale []string
		for p, ts := range room.Heartbeats {
			if now-ts > hbTimeout {
				stale = append(stale, p)
			}
		}
		if len(stale) == 0 {
			continue
		}
		sort.Strings(stale)
		if room.Status == store.RoomWaiting {
			if contains(stale, room.Host) {
				s.finishRoom(room, fmt.Sprintf("host %s disconnected, room closed", room.Host))
				continue
			}
			for _, p := range stale {
				room.RemovePlayer(p)
			}
			continue
		}
		s.finishRoom(room, fmt.Sprintf("players disconnected: %s", strings.Join(stale, ", ")))
	}
	for _, id := range expired {
		s.rt.Stop(id)
		delete(d.Rooms, id)
	}
}

// finishRoom stamps the terminal state and tears down the game server
func (s *Service) finishRoom(room *store.Room, reason string) {
	room.Status = store.RoomFinished
	room.EndedAt = s.unix()
	room.EndedReason = reason
	s.rt.Stop(room.ID)
}

func (s *Service) platformHost() string {
	if h := s.cfg.Runtime.PublicHost; h != "" {
		return h
	}
	return s.cfg.Server.Host
}

func (s *Service) platformPort() int {
	port, err := strconv.Atoi(s.cfg.Server.Port)
	if err != nil {
		return 0
	}
	return port
}

// runtimeError maps supervisor failures onto reported errors
func runtimeError(err error) error {
	var spawn *runtime.SpawnError
	if errors.As(err, &spawn) {
		return badRequest("game server failed to start (exit %d)", spawn.ExitCode)
	}
	var missing *runtime.MissingEntryError
	if errors.As(err, &missing) {
		return badRequest("server entry not found: %s", missing.Entry)
	}
	if errors.Is(err, runtime.ErrStartupTimeout) {
		return badRequest("game server startup timed out")
	}
	return badRequest("game server could not be started: %v", err)
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

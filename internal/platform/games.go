package platform

import (
	"encoding/base64"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"gamedock/internal/store"
)

// GameView is a game as reported to clients: rating ids expanded into the
// rating records and the running average attached.
type GameView struct {
	*store.Game
	Ratings      []*store.Rating  `json:"ratings"`
	AverageScore *float64         `json:"average_score"`
	PlayerStats  *PlayerGameStats `json:"player_stats,omitempty"`
}

// PlayerGameStats is the per-player slice of a game detail
type PlayerGameStats struct {
	Plays int `json:"plays"`
}

// DownloadView carries a bundle back to a client
type DownloadView struct {
	FileData string `json:"file_data"`
	Version  string `json:"version"`
	Name     string `json:"name"`
	GameID   string `json:"game_id"`
}

// CreateGame validates and publishes a new game. The slug derived from the
// display name becomes the immutable game id.
func (s *Service) CreateGame(developer, name, description, version, fileData string) (*GameView, error) {
	raw, manifest, err := validateBundle(fileData)
	if err != nil {
		return nil, err
	}
	if err := validVersionString(version); err != nil {
		return nil, err
	}
	slug := slugify(name)

	var created *store.Game
	err = s.store.Update(func(d *store.Document) error {
		if _, ok := d.Developers[developer]; !ok {
			return ErrUnknownDeveloper
		}
		if _, ok := d.Games[slug]; ok {
			return ErrNameTaken
		}
		path, err := s.saveBundle(slug, version, raw)
		if err != nil {
			return err
		}
		game := &store.Game{
			ID:             slug,
			Name:           name,
			Developer:      developer,
			Description:    description,
			MinPlayers:     manifest.MinPlayers,
			MaxPlayers:     manifest.MaxPlayers,
			Active:         true,
			AcceptNewRooms: true,
			Versions: []*store.Version{{
				Version:    version,
				Path:       path,
				UploadedAt: s.unix(),
				Notes:      "Initial release",
			}},
			LatestVersion: version,
			Ratings:       []int{},
		}
		d.Games[slug] = game
		d.Developers[developer].Games = append(d.Developers[developer].Games, slug)
		created = cloneJSON(game)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("game published",
		zap.String("game", slug),
		zap.String("developer", developer),
		zap.String("version", version))
	return &GameView{Game: created, Ratings: []*store.Rating{}}, nil
}

// UpdateGameVersion appends a new version to an existing game. The player
// count bounds are pinned at first release and may not drift.
func (s *Service) UpdateGameVersion(developer, gameID, version, fileData, notes string) (*GameView, error) {
	raw, manifest, err := validateBundle(fileData)
	if err != nil {
		return nil, err
	}
	if err := validVersionString(version); err != nil {
		return nil, err
	}
	if notes == "" {
		notes = "Version update"
	}

	var updated *store.Game
	err = s.store.Update(func(d *store.Document) error {
		game, ok := d.Games[gameID]
		if !ok {
			return ErrUnknownGame
		}
		if game.Developer != developer {
			return ErrNotOwner
		}
		if !game.Active {
			return ErrGameInactive
		}
		if manifest.MinPlayers != game.MinPlayers || manifest.MaxPlayers != game.MaxPlayers {
			return ErrBoundsChanged
		}
		if game.FindVersion(version) != nil {
			return ErrDuplicateVersion
		}
		path, err := s.saveBundle(gameID, version, raw)
		if err != nil {
			return err
		}
		game.Versions = append(game.Versions, &store.Version{
			Version:    version,
			Path:       path,
			UploadedAt: s.unix(),
			Notes:      notes,
		})
		game.LatestVersion = version
		updated = cloneJSON(game)
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("game version uploaded",
		zap.String("game", gameID),
		zap.String("version", version))
	return &GameView{Game: updated, Ratings: []*store.Rating{}}, nil
}

// RemoveGame downlists a game: no new rooms, invisible in the default
// listing, but bundles and in-flight rooms stay alive. Returns how many
// active rooms were retained.
func (s *Service) RemoveGame(developer, gameID string) (int, error) {
	retained := 0
	err := s.store.Update(func(d *store.Document) error {
		game, ok := d.Games[gameID]
		if !ok {
			return ErrUnknownGame
		}
		if game.Developer != developer {
			return ErrNotOwner
		}
		retained = d.ActiveRoomCount(gameID)
		game.Active = false
		game.AcceptNewRooms = false
		game.DeactivatedAt = s.unix()
		return nil
	})
	if err != nil {
		return 0, err
	}
	s.log.Info("game delisted",
		zap.String("game", gameID),
		zap.Int("active_rooms", retained))
	return retained, nil
}

// ListGames enumerates games, hiding delisted ones unless asked
func (s *Service) ListGames(includeInactive bool) []*GameView {
	d := s.store.Snapshot()
	views := make([]*GameView, 0, len(d.Games))
	for _, game := range d.Games {
		if !includeInactive && !game.Active {
			continue
		}
		views = append(views, gameView(d, game, ""))
	}
	sort.Slice(views, func(i, j int) bool { return views[i].ID < views[j].ID })
	return views
}

// GameDetail returns one game with its ratings expanded. Delisted games
// report not-found; player, when set, attaches that player's play stats.
func (s *Service) GameDetail(gameID, player string) (*GameView, error) {
	d := s.store.Snapshot()
	game, ok := d.Games[gameID]
	if !ok || !game.Active {
		return nil, ErrGameNotFound
	}
	return gameView(d, game, player), nil
}

// DownloadGame returns the stored zip for the requested (or latest)
// version. Delisted games stay downloadable only while a room still needs
// them.
func (s *Service) DownloadGame(gameID, version string) (*DownloadView, error) {
	d := s.store.Snapshot()
	game, ok := d.Games[gameID]
	if !ok {
		return nil, ErrGameNotFound
	}
	if !game.Active && d.ActiveRoomCount(gameID) == 0 {
		return nil, ErrGameInactive
	}
	target := version
	if target == "" {
		target = game.LatestVersion
	}
	rec := game.FindVersion(target)
	if rec == nil {
		return nil, ErrVersionNotFound
	}
	raw, err := os.ReadFile(rec.Path)
	if err != nil {
		return nil, ErrArtifactMissing
	}
	return &DownloadView{
		FileData: base64.StdEncoding.EncodeToString(raw),
		Version:  target,
		Name:     game.Name,
		GameID:   gameID,
	}, nil
}

// saveBundle persists the raw zip under storage/games/<id>/<version>.zip
func (s *Service) saveBundle(gameID, version string, raw []byte) (string, error) {
	dir := filepath.Join(s.cfg.Storage.GamesDir(), gameID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, version+".zip")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// validVersionString guards the version against path tricks; it becomes
// part of the bundle's on-disk name.
func validVersionString(version string) error {
	if version == "" {
		return badRequest("version must not be empty")
	}
	if strings.ContainsAny(version, `/\`) || strings.Contains(version, "..") {
		return badRequest("invalid version string")
	}
	return nil
}

func gameView(d *store.Document, game *store.Game, player string) *GameView {
	view := &GameView{Game: game, Ratings: make([]*store.Rating, 0, len(game.Ratings))}
	for _, id := range game.Ratings {
		if r, ok := d.Ratings[id]; ok {
			view.Ratings = append(view.Ratings, r)
		}
	}
	sort.Slice(view.Ratings, func(i, j int) bool { return view.Ratings[i].ID < view.Ratings[j].ID })
	if len(view.Ratings) > 0 {
		sum := 0
		for _, r := range view.Ratings {
			sum += r.Score
		}
		avg := math.Round(float64(sum)/float64(len(view.Ratings))*100) / 100
		view.AverageScore = &avg
	}
	if player != "" {
		if p, ok := d.Players[player]; ok {
			view.PlayerStats = &PlayerGameStats{Plays: p.PlayedGames[game.ID]}
		}
	}
	return view
}

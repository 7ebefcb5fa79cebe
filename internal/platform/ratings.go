package platform

import (
	"gamedock/internal/store"
)

// AddRating records a score for a game the player has actually played.
// A repeat rating by the same player overwrites the previous one instead
// of piling up.
func (s *Service) AddRating(player, gameID string, score int, comment string) error {
	if score < 1 || score > 5 {
		return ErrRatingOutOfRange
	}
	return s.store.Update(func(d *store.Document) error {
		rec, ok := d.Players[player]
		if !ok {
			return ErrUnknownPlayer
		}
		if rec.PlayedGames[gameID] <= 0 {
			return ErrNeverPlayed
		}
		game, ok := d.Games[gameID]
		if !ok {
			return ErrUnknownGame
		}
		if !game.Active {
			return ErrGameInactive
		}
		now := s.unix()
		for _, id := range game.Ratings {
			existing, ok := d.Ratings[id]
			if ok && existing.Player == player {
				existing.Score = score
				existing.Comment = comment
				existing.CreatedAt = now
				return nil
			}
		}
		id := d.NextIDs.Rating
		d.NextIDs.Rating++
		d.Ratings[id] = &store.Rating{
			ID:        id,
			Player:    player,
			GameID:    gameID,
			Score:     score,
			Comment:   comment,
			CreatedAt: now,
		}
		game.Ratings = append(game.Ratings, id)
		return nil
	})
}

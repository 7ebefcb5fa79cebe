package platform

import (
	"encoding/base64"
	"net/http"
	"os"
	"testing"

	"gamedock/internal/store"
)

func TestCreateGame(t *testing.T) {
	svc, _, _ := newTestService(t)
	seedDeveloper(t, svc, "dev")

	view, err := svc.CreateGame("dev", "Dice Battle", "roll dice", "1.0.0", validBundle(t))
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if view.ID != "dice-battle" {
		t.Errorf("expected slug dice-battle, got %s", view.ID)
	}
	if view.MinPlayers != 2 || view.MaxPlayers != 4 {
		t.Errorf("bounds should come from the manifest, got [%d,%d]", view.MinPlayers, view.MaxPlayers)
	}
	if !view.Active || !view.AcceptNewRooms {
		t.Error("new games should be active and accepting rooms")
	}
	if len(view.Versions) != 1 || view.Versions[0].Notes != "Initial release" {
		t.Errorf("expected one version noted 'Initial release', got %+v", view.Versions)
	}
	if view.LatestVersion != "1.0.0" {
		t.Errorf("expected latest version 1.0.0, got %s", view.LatestVersion)
	}

	// The bundle lands on disk under the game's directory.
	if _, err := os.Stat(view.Versions[0].Path); err != nil {
		t.Errorf("stored bundle missing: %v", err)
	}

	// The developer's game list tracks ownership.
	doc := svc.Store().Snapshot()
	if games := doc.Developers["dev"].Games; len(games) != 1 || games[0] != "dice-battle" {
		t.Errorf("expected developer to own dice-battle, got %v", games)
	}
}

func TestCreateGame_Rejections(t *testing.T) {
	svc, _, _ := newTestService(t)
	seedDeveloper(t, svc, "dev")
	publishGame(t, svc, "dev")

	// Slug collision, even via a differently-cased name.
	if _, err := svc.CreateGame("dev", "DICE battle", "d", "1.0.0", validBundle(t)); err != ErrNameTaken {
		t.Errorf("expected ErrNameTaken, got %v", err)
	}

	if _, err := svc.CreateGame("ghost", "Other", "d", "1.0.0", validBundle(t)); err != ErrUnknownDeveloper {
		t.Errorf("expected ErrUnknownDeveloper, got %v", err)
	}

	if _, err := svc.CreateGame("dev", "Other", "d", "../1.0.0", validBundle(t)); err == nil {
		t.Error("expected version path check to reject ../")
	}
	if _, err := svc.CreateGame("dev", "Other", "d", "", validBundle(t)); err == nil {
		t.Error("expected empty version to be rejected")
	}
}

func TestUpdateGameVersion(t *testing.T) {
	svc, _, _ := newTestService(t)
	seedDeveloper(t, svc, "dev")
	id := publishGame(t, svc, "dev")

	view, err := svc.UpdateGameVersion("dev", id, "1.1.0", validBundle(t), "balance pass")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if view.LatestVersion != "1.1.0" {
		t.Errorf("expected latest 1.1.0, got %s", view.LatestVersion)
	}
	if len(view.Versions) != 2 || view.Versions[1].Notes != "balance pass" {
		t.Errorf("expected second version with custom notes, got %+v", view.Versions)
	}

	// Empty notes get the stock text.
	view, err = svc.UpdateGameVersion("dev", id, "1.2.0", validBundle(t), "")
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if view.Versions[2].Notes != "Version update" {
		t.Errorf("expected default notes, got %q", view.Versions[2].Notes)
	}
}

func TestUpdateGameVersion_Rejections(t *testing.T) {
	svc, _, _ := newTestService(t)
	seedDeveloper(t, svc, "dev")
	seedDeveloper(t, svc, "rival")
	id := publishGame(t, svc, "dev")

	if _, err := svc.UpdateGameVersion("rival", id, "2.0.0", validBundle(t), ""); err != ErrNotOwner {
		t.Errorf("expected ErrNotOwner, got %v", err)
	}
	if _, err := svc.UpdateGameVersion("dev", "nope", "2.0.0", validBundle(t), ""); err != ErrUnknownGame {
		t.Errorf("expected ErrUnknownGame, got %v", err)
	}
	if _, err := svc.UpdateGameVersion("dev", id, "1.0.0", validBundle(t), ""); err != ErrDuplicateVersion {
		t.Errorf("expected ErrDuplicateVersion, got %v", err)
	}

	// Player bounds are pinned at first release.
	widened := makeBundle(t, map[string]string{
		"manifest.json": `{"entry": "client.py", "server_entry": "server.py", "min_players": 2, "max_players": 8}`,
		"client.py":     "x",
		"server.py":     "x",
	})
	if _, err := svc.UpdateGameVersion("dev", id, "2.0.0", widened, ""); err != ErrBoundsChanged {
		t.Errorf("expected ErrBoundsChanged, got %v", err)
	}

	// Delisted games take no further uploads.
	if _, err := svc.RemoveGame("dev", id); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := svc.UpdateGameVersion("dev", id, "2.0.0", validBundle(t), ""); err != ErrGameInactive {
		t.Errorf("expected ErrGameInactive, got %v", err)
	}
}

func TestRemoveGame_Downlists(t *testing.T) {
	svc, _, _ := newTestService(t)
	seedDeveloper(t, svc, "dev")
	seedPlayer(t, svc, "alice")
	id := publishGame(t, svc, "dev")

	if _, err := svc.CreateRoom("alice", id); err != nil {
		t.Fatalf("create room: %v", err)
	}

	retained, err := svc.RemoveGame("dev", id)
	if err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if retained != 1 {
		t.Errorf("expected 1 retained room, got %d", retained)
	}

	// The record survives; it is only delisted.
	doc := svc.Store().Snapshot()
	game := doc.Games[id]
	if game == nil {
		t.Fatal("game record should survive a downlist")
	}
	if game.Active || game.AcceptNewRooms {
		t.Error("downlisted game should be inactive and closed to new rooms")
	}
	if game.DeactivatedAt == 0 {
		t.Error("expected a deactivation timestamp")
	}

	// The bundle stays on disk for running rooms.
	if _, err := os.Stat(game.Versions[0].Path); err != nil {
		t.Errorf("bundle should survive a downlist: %v", err)
	}

	// Only the owner may downlist.
	seedDeveloper(t, svc, "rival")
	if _, err := svc.RemoveGame("rival", id); err != ErrNotOwner {
		t.Errorf("expected ErrNotOwner, got %v", err)
	}
}

func TestListGames(t *testing.T) {
	svc, _, _ := newTestService(t)
	seedDeveloper(t, svc, "dev")
	publishGame(t, svc, "dev")
	if _, err := svc.CreateGame("dev", "Chess", "c", "1.0.0", validBundle(t)); err != nil {
		t.Fatalf("create chess: %v", err)
	}
	if _, err := svc.RemoveGame("dev", "chess"); err != nil {
		t.Fatalf("remove chess: %v", err)
	}

	visible := svc.ListGames(false)
	if len(visible) != 1 || visible[0].ID != "dice-battle" {
		t.Errorf("default listing should hide delisted games, got %d entries", len(visible))
	}

	all := svc.ListGames(true)
	if len(all) != 2 {
		t.Fatalf("expected 2 games with includeInactive, got %d", len(all))
	}
	// Sorted by id: chess before dice-battle.
	if all[0].ID != "chess" || all[1].ID != "dice-battle" {
		t.Errorf("expected [chess dice-battle], got [%s %s]", all[0].ID, all[1].ID)
	}
}

func TestGameDetail(t *testing.T) {
	svc, _, _ := newTestService(t)
	seedDeveloper(t, svc, "dev")
	seedPlayer(t, svc, "alice")
	id := publishGame(t, svc, "dev")

	detail, err := svc.GameDetail(id, "")
	if err != nil {
		t.Fatalf("detail failed: %v", err)
	}
	if detail.AverageScore != nil {
		t.Error("unrated game should have nil average")
	}
	if detail.PlayerStats != nil {
		t.Error("no player stats requested")
	}

	// With a player, play stats are attached.
	bumpPlayCount(t, svc, "alice", id, 3)
	detail, err = svc.GameDetail(id, "alice")
	if err != nil {
		t.Fatalf("detail failed: %v", err)
	}
	if detail.PlayerStats == nil || detail.PlayerStats.Plays != 3 {
		t.Errorf("expected 3 plays for alice, got %+v", detail.PlayerStats)
	}

	if _, err := svc.GameDetail("nope", ""); err != ErrGameNotFound {
		t.Errorf("expected ErrGameNotFound, got %v", err)
	}

	// Delisted games 404 on detail.
	if _, err := svc.RemoveGame("dev", id); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := svc.GameDetail(id, ""); err != ErrGameNotFound {
		t.Errorf("expected ErrGameNotFound for delisted game, got %v", err)
	}
}

func TestDownloadGame(t *testing.T) {
	svc, _, _ := newTestService(t)
	seedDeveloper(t, svc, "dev")
	id := publishGame(t, svc, "dev")
	if _, err := svc.UpdateGameVersion("dev", id, "1.1.0", validBundle(t), ""); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	// Empty version resolves to latest.
	dl, err := svc.DownloadGame(id, "")
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	if dl.Version != "1.1.0" || dl.GameID != id || dl.Name != "Dice Battle" {
		t.Errorf("unexpected download view: %+v", dl)
	}
	if _, err := base64.StdEncoding.DecodeString(dl.FileData); err != nil {
		t.Errorf("file data should be base64: %v", err)
	}

	// Pinned versions still resolve.
	dl, err = svc.DownloadGame(id, "1.0.0")
	if err != nil {
		t.Fatalf("pinned download failed: %v", err)
	}
	if dl.Version != "1.0.0" {
		t.Errorf("expected 1.0.0, got %s", dl.Version)
	}

	if _, err := svc.DownloadGame(id, "9.9.9"); err != ErrVersionNotFound {
		t.Errorf("expected ErrVersionNotFound, got %v", err)
	}
	if _, err := svc.DownloadGame("nope", ""); err != ErrGameNotFound {
		t.Errorf("expected ErrGameNotFound, got %v", err)
	}
}

func TestDownloadGame_DelistedGating(t *testing.T) {
	svc, _, _ := newTestService(t)
	seedDeveloper(t, svc, "dev")
	seedPlayer(t, svc, "alice")
	id := publishGame(t, svc, "dev")

	// A room pinned to the game keeps the download alive after a downlist.
	room, err := svc.CreateRoom("alice", id)
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	if _, err := svc.RemoveGame("dev", id); err != nil {
		t.Fatalf("remove failed: %v", err)
	}
	if _, err := svc.DownloadGame(id, ""); err != nil {
		t.Errorf("download should work while a room needs the bundle: %v", err)
	}

	// Once no active room remains, the download gate closes.
	if _, err := svc.CloseRoom("alice", room.ID); err != nil {
		t.Fatalf("close room: %v", err)
	}
	if _, err := svc.DownloadGame(id, ""); err != ErrGameInactive {
		t.Errorf("expected ErrGameInactive, got %v", err)
	}
}

func TestDownloadGame_MissingArtifact(t *testing.T) {
	svc, _, _ := newTestService(t)
	seedDeveloper(t, svc, "dev")
	id := publishGame(t, svc, "dev")

	doc := svc.Store().Snapshot()
	if err := os.Remove(doc.Games[id].Versions[0].Path); err != nil {
		t.Fatalf("remove bundle: %v", err)
	}
	_, err := svc.DownloadGame(id, "")
	if err != ErrArtifactMissing {
		t.Errorf("expected ErrArtifactMissing, got %v", err)
	}
	wantPlatformError(t, err, http.StatusNotFound)
}

func TestValidVersionString(t *testing.T) {
	for _, bad := range []string{"", "a/b", `a\b`, "..", "1..0"} {
		if err := validVersionString(bad); err == nil {
			t.Errorf("expected %q to be rejected", bad)
		}
	}
	for _, good := range []string{"1.0.0", "v2", "2024-01-15", "rc.1"} {
		if err := validVersionString(good); err != nil {
			t.Errorf("expected %q to be accepted: %v", good, err)
		}
	}
}

// bumpPlayCount seeds play counts directly; the room-driven path has its own
// tests.
func bumpPlayCount(t *testing.T, svc *Service, player, gameID string, n int) {
	t.Helper()
	err := svc.Store().Update(func(d *store.Document) error {
		rec := d.Players[player]
		if rec.PlayedGames == nil {
			rec.PlayedGames = map[string]int{}
		}
		rec.PlayedGames[gameID] += n
		return nil
	})
	if err != nil {
		t.Fatalf("bump play count: %v", err)
	}
}

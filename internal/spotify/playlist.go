package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"
)

const maxTracksPerRequest = 100

// PublishedPlaylist describes a playlist created on Spotify.
type PublishedPlaylist struct {
	ID          string `json:"spotifyPlaylistId"`
	Name        string `json:"name"`
	ExternalURL string `json:"externalUrl"`
}

// Publish creates a public playlist for the credential's owner and adds the tracks to it.
func (c *Client) Publish(ctx context.Context, credential, name, description string, trackIDs []string) (*PublishedPlaylist, error) {
	api, err := c.api(ctx, credential)
	if err != nil {
		return nil, err
	}

	user, err := api.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: getting current user: %w", ErrSourceUnavailable, err)
	}

	playlist, err := api.CreatePlaylistForUser(ctx, user.ID, name, description, true, false)
	if err != nil {
		return nil, fmt.Errorf("%w: creating playlist: %w", ErrSourceUnavailable, err)
	}

	if err := addTracks(ctx, api, playlist.ID, trackIDs); err != nil {
		return nil, err
	}

	return &PublishedPlaylist{
		ID:          playlist.ID.String(),
		Name:        playlist.Name,
		ExternalURL: playlist.ExternalURLs["spotify"],
	}, nil
}

// addTracks adds tracks to a playlist, handling batching for large sets.
// Spotify allows max 100 tracks per request.
func addTracks(ctx context.Context, api *spotify.Client, playlistID spotify.ID, trackIDs []string) error {
	ids := make([]spotify.ID, len(trackIDs))
	for i, id := range trackIDs {
		ids[i] = spotify.ID(id)
	}

	for i := 0; i < len(ids); i += maxTracksPerRequest {
		end := min(i+maxTracksPerRequest, len(ids))
		batch := ids[i:end]

		if _, err := api.AddTracksToPlaylist(ctx, playlistID, batch...); err != nil {
			return fmt.Errorf("%w: adding tracks (batch %d-%d): %w", ErrSourceUnavailable, i+1, end, err)
		}
	}
	return nil
}

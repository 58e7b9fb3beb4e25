package spotify

import (
	"context"
	"fmt"

	"github.com/zmb3/spotify/v2"

	"github.com/justestif/vibecheck/internal/music"
)

// API limits.
const (
	maxSearchLimit         = 50
	maxRecommendationLimit = 100
	maxRecommendationSeeds = 5
)

// Search returns up to limit tracks matching query.
func (c *Client) Search(ctx context.Context, query string, limit int, credential string) ([]music.Track, error) {
	api, err := c.api(ctx, credential)
	if err != nil {
		return nil, err
	}

	limit = clamp(limit, 1, maxSearchLimit)
	result, err := api.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("%w: searching %q: %w", ErrSourceUnavailable, query, err)
	}
	if result.Tracks == nil {
		return []music.Track{}, nil
	}

	tracks := make([]music.Track, 0, len(result.Tracks.Tracks))
	for _, t := range result.Tracks.Tracks {
		tracks = append(tracks, convertFullTrack(t))
	}
	return tracks, nil
}

// Recommend returns up to limit tracks seeded by seedIDs (at most 5 are used)
// and steered towards the given audio feature targets.
func (c *Client) Recommend(ctx context.Context, seedIDs []string, targets music.Targets, limit int, credential string) ([]music.Track, error) {
	api, err := c.api(ctx, credential)
	if err != nil {
		return nil, err
	}

	seeds := spotify.Seeds{}
	for _, id := range seedIDs[:min(len(seedIDs), maxRecommendationSeeds)] {
		seeds.Tracks = append(seeds.Tracks, spotify.ID(id))
	}

	attrs := spotify.NewTrackAttributes()
	if targets.Energy != nil {
		attrs = attrs.TargetEnergy(*targets.Energy)
	}
	if targets.Valence != nil {
		attrs = attrs.TargetValence(*targets.Valence)
	}

	limit = clamp(limit, 1, maxRecommendationLimit)
	recs, err := api.GetRecommendations(ctx, seeds, attrs, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("%w: getting recommendations: %w", ErrSourceUnavailable, err)
	}

	tracks := make([]music.Track, 0, len(recs.Tracks))
	for _, t := range recs.Tracks {
		tracks = append(tracks, convertSimpleTrack(t))
	}
	return tracks, nil
}

// convertFullTrack converts a Spotify FullTrack to music.Track.
// FullTrack has its own Album field that shadows the embedded one.
func convertFullTrack(t spotify.FullTrack) music.Track {
	track := convertSimpleTrack(t.SimpleTrack)
	track.Album = t.Album.Name
	track.ImageURL = firstImage(t.Album.Images)
	return track
}

// convertSimpleTrack converts a Spotify SimpleTrack, such as a
// recommendation, to music.Track.
func convertSimpleTrack(t spotify.SimpleTrack) music.Track {
	artists := make([]string, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
	}

	return music.Track{
		ID:          t.ID.String(),
		Name:        t.Name,
		Artists:     artists,
		PreviewURL:  t.PreviewURL,
		ExternalURL: t.ExternalURLs["spotify"],
		DurationMs:  int(t.Duration),
		Album:       t.Album.Name,
		ImageURL:    firstImage(t.Album.Images),
	}
}

func firstImage(images []spotify.Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}

func clamp(v, lo, hi int) int {
	return max(lo, min(v, hi))
}

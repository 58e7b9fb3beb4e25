// Package music holds the transient catalog types shared between the track
// source, the language model and the chat pipeline.
package music

import "strings"

// Track is a catalog track as returned by the track source. Only its ID is
// ever persisted.
type Track struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Artists     []string `json:"artists"`
	Album       string   `json:"album"`
	PreviewURL  string   `json:"previewUrl,omitempty"`
	ExternalURL string   `json:"externalUrl,omitempty"`
	ImageURL    string   `json:"image,omitempty"`
	DurationMs  int      `json:"duration"`
}

// ArtistNames joins the artist list with ", ".
func (t Track) ArtistNames() string {
	return strings.Join(t.Artists, ", ")
}

// IDs returns the track IDs in order.
func IDs(tracks []Track) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}

// Names returns up to limit track names in order.
func Names(tracks []Track, limit int) []string {
	n := min(limit, len(tracks))
	names := make([]string, n)
	for i := range n {
		names[i] = tracks[i].Name
	}
	return names
}

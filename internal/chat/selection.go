package chat

import "github.com/justestif/vibecheck/internal/music"

// dedupe removes repeated track IDs. Each ID keeps the position of its first
// occurrence but takes the attributes of its last occurrence.
func dedupe(tracks []music.Track) []music.Track {
	index := make(map[string]int, len(tracks))
	out := make([]music.Track, 0, len(tracks))
	for _, t := range tracks {
		if i, ok := index[t.ID]; ok {
			out[i] = t
			continue
		}
		index[t.ID] = len(out)
		out = append(out, t)
	}
	return out
}

// truncate returns at most n tracks from the front of tracks.
func truncate(tracks []music.Track, n int) []music.Track {
	if len(tracks) <= n {
		return tracks
	}
	return tracks[:n]
}

// seedIDs returns up to n track IDs from the front of tracks.
func seedIDs(tracks []music.Track, n int) []string {
	return music.IDs(truncate(tracks, n))
}

// appendBackfill appends recommended tracks after the selected ones,
// skipping recommendations that are already selected or repeated.
func appendBackfill(selected, backfill []music.Track) []music.Track {
	out := make([]music.Track, len(selected), len(selected)+len(backfill))
	copy(out, selected)

	seen := make(map[string]bool, len(out)+len(backfill))
	for _, t := range out {
		seen[t.ID] = true
	}
	for _, t := range backfill {
		if seen[t.ID] {
			continue
		}
		seen[t.ID] = true
		out = append(out, t)
	}
	return out
}

// stored returns the tracks behind ids, in ids order. IDs without a track
// are skipped.
func stored(tracks []music.Track, ids []string) []music.Track {
	byID := make(map[string]music.Track, len(tracks))
	for _, t := range tracks {
		byID[t.ID] = t
	}
	out := make([]music.Track, 0, len(ids))
	for _, id := range ids {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return out
}

// ceilDiv returns ceil(a / b) for positive b.
func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

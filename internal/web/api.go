package web

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/justestif/vibecheck/internal/chat"
	"github.com/justestif/vibecheck/internal/db"
	"github.com/justestif/vibecheck/internal/llm"
	"github.com/justestif/vibecheck/internal/playlists"
)

type messageView struct {
	ID        int64     `json:"id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type chatView struct {
	ID           uuid.UUID     `json:"id"`
	Participants []string      `json:"participants"`
	Messages     []messageView `json:"messages,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

func newChatView(c *db.Chat) chatView {
	v := chatView{
		ID:           c.ID,
		Participants: c.Participants,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
	if c.Messages != nil {
		v.Messages = make([]messageView, len(c.Messages))
		for i, m := range c.Messages {
			v.Messages[i] = messageView{ID: m.ID, Sender: m.Sender, Content: m.Content, Timestamp: m.CreatedAt}
		}
	}
	return v
}

type playlistView struct {
	ID                uuid.UUID `json:"id"`
	OwnerID           string    `json:"ownerId"`
	Title             string    `json:"title"`
	Description       string    `json:"description"`
	Tracks            []string  `json:"tracks"`
	SpotifyPlaylistID *string   `json:"spotifyPlaylistId"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func newPlaylistView(p *db.Playlist) playlistView {
	tracks := p.TrackIDs
	if tracks == nil {
		tracks = []string{}
	}
	return playlistView{
		ID:                p.ID,
		OwnerID:           p.OwnerID,
		Title:             p.Title,
		Description:       p.Description,
		Tracks:            tracks,
		SpotifyPlaylistID: p.SpotifyPlaylistID,
		CreatedAt:         p.CreatedAt,
		UpdatedAt:         p.UpdatedAt,
	}
}

// CreateChat starts a chat for the current user (POST /api/chats).
func (h *Handlers) CreateChat(w http.ResponseWriter, r *http.Request) {
	c, err := h.chats.CreateChat(r.Context(), currentUser(r.Context()).id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]chatView{"chat": newChatView(c)})
}

// ListChats lists the current user's chats (GET /api/chats).
func (h *Handlers) ListChats(w http.ResponseWriter, r *http.Request) {
	chats, err := h.chats.ListChats(r.Context(), currentUser(r.Context()).id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	views := make([]chatView, len(chats))
	for i := range chats {
		views[i] = newChatView(&chats[i])
	}
	writeJSON(w, http.StatusOK, map[string][]chatView{"chats": views})
}

// GetChat returns a chat with its messages (GET /api/chats/{chatID}).
func (h *Handlers) GetChat(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathUUID(w, r, "chatID")
	if !ok {
		return
	}

	c, err := h.chats.GetChat(r.Context(), chatID, currentUser(r.Context()).id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]chatView{"chat": newChatView(c)})
}

type sendMessageRequest struct {
	Message            string `json:"message"`
	MusicCredential    string `json:"musicCredential"`
	SpotifyAccessToken string `json:"spotifyAccessToken"`
}

type sendMessageResponse struct {
	Message  string                `json:"message"`
	Response string                `json:"response"`
	Analysis *llm.MoodAnalysis     `json:"analysis"`
	Playlist *chat.PlaylistSummary `json:"playlist"`
}

// SendMessage runs one chat turn (POST /api/chats/{chatID}/messages).
func (h *Handlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	chatID, ok := pathUUID(w, r, "chatID")
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	override := req.MusicCredential
	if override == "" {
		override = req.SpotifyAccessToken
	}
	credential := h.credential(r.Context(), override)

	result, err := h.chats.ProcessUserMessage(r.Context(), chatID, currentUser(r.Context()).id, req.Message, credential)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sendMessageResponse{
		Message:  req.Message,
		Response: result.Response,
		Analysis: result.Analysis,
		Playlist: result.Playlist,
	})
}

type createPlaylistRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tracks      []string `json:"tracks"`
}

// CreatePlaylist stores a playlist (POST /api/playlists).
func (h *Handlers) CreatePlaylist(w http.ResponseWriter, r *http.Request) {
	var req createPlaylistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	p, err := h.playlists.Create(r.Context(), currentUser(r.Context()).id, req.Title, req.Description, req.Tracks)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]playlistView{"playlist": newPlaylistView(p)})
}

// ListPlaylists lists the current user's playlists (GET /api/playlists).
func (h *Handlers) ListPlaylists(w http.ResponseWriter, r *http.Request) {
	list, err := h.playlists.ListForOwner(r.Context(), currentUser(r.Context()).id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	views := make([]playlistView, len(list))
	for i := range list {
		views[i] = newPlaylistView(&list[i])
	}
	writeJSON(w, http.StatusOK, map[string][]playlistView{"playlists": views})
}

// GetPlaylist returns one playlist (GET /api/playlists/{playlistID}).
func (h *Handlers) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "playlistID")
	if !ok {
		return
	}

	p, err := h.playlists.Get(r.Context(), id)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]playlistView{"playlist": newPlaylistView(p)})
}

type updatePlaylistRequest struct {
	Title       *string  `json:"title"`
	Description *string  `json:"description"`
	Tracks      []string `json:"tracks"`
}

// UpdatePlaylist edits a playlist (PUT /api/playlists/{playlistID}).
func (h *Handlers) UpdatePlaylist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "playlistID")
	if !ok {
		return
	}

	var req updatePlaylistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	p, err := h.playlists.Update(r.Context(), id, currentUser(r.Context()).id, playlists.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		TrackIDs:    req.Tracks,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]playlistView{"playlist": newPlaylistView(p)})
}

// DeletePlaylist removes a playlist (DELETE /api/playlists/{playlistID}).
func (h *Handlers) DeletePlaylist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "playlistID")
	if !ok {
		return
	}

	if err := h.playlists.Delete(r.Context(), id, currentUser(r.Context()).id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Playlist deleted successfully"})
}

type tracksRequest struct {
	TrackIDs []string `json:"trackIds"`
}

// AddTracks appends tracks (POST /api/playlists/{playlistID}/tracks).
func (h *Handlers) AddTracks(w http.ResponseWriter, r *http.Request) {
	h.changeTracks(w, r, h.playlists.AddTracks)
}

// RemoveTracks removes tracks (DELETE /api/playlists/{playlistID}/tracks).
func (h *Handlers) RemoveTracks(w http.ResponseWriter, r *http.Request) {
	h.changeTracks(w, r, h.playlists.RemoveTracks)
}

type tracksChange func(ctx context.Context, id uuid.UUID, ownerID string, trackIDs []string) (*db.Playlist, error)

func (h *Handlers) changeTracks(w http.ResponseWriter, r *http.Request, change tracksChange) {
	id, ok := pathUUID(w, r, "playlistID")
	if !ok {
		return
	}

	var req tracksRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeBodyError(w, err)
		return
	}

	p, err := change(r.Context(), id, currentUser(r.Context()).id, req.TrackIDs)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]playlistView{"playlist": newPlaylistView(p)})
}

type publishRequest struct {
	SpotifyAccessToken string `json:"spotifyAccessToken"`
}

// PublishPlaylist creates the playlist on Spotify (POST /api/playlists/{playlistID}/publish).
func (h *Handlers) PublishPlaylist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r, "playlistID")
	if !ok {
		return
	}

	var req publishRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		writeBodyError(w, err)
		return
	}

	credential := h.credential(r.Context(), req.SpotifyAccessToken)
	published, err := h.playlists.Publish(r.Context(), id, currentUser(r.Context()).id, credential)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, published)
}

func pathUUID(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}

package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type MediaKind string

const (
	MediaKindVideo MediaKind = "video"
	MediaKindAudio MediaKind = "audio"
)

// KindFromMime derives the playback kind from a MIME type. Anything that is
// not audio is treated as video, matching how uploads are classified.
func KindFromMime(mimeType string) MediaKind {
	if strings.HasPrefix(mimeType, "audio") {
		return MediaKindAudio
	}
	return MediaKindVideo
}

// MediaFile is an uploaded file record as kept by the room registry.
type MediaFile struct {
	ID              uuid.UUID `json:"id"`
	RoomID          uuid.UUID `json:"room_id"`
	Name            string    `json:"file_name"`
	URL             string    `json:"file_url"`
	MimeType        string    `json:"file_type"`
	SizeBytes       int64     `json:"file_size"`
	DurationSeconds float64   `json:"duration"`
	UploadedBy      uuid.UUID `json:"uploaded_by"`
	CreatedAt       time.Time `json:"created_at"`
}

// PlaylistItem is the playable view of a media file. The session holds the
// currently selected item as a pointer into the playlist, so play position
// and play state are always relative to one authoritative selection.
type PlaylistItem struct {
	ID              string
	Name            string
	URL             string
	MimeType        string
	DurationSeconds float64
	Kind            MediaKind
}

func (f *MediaFile) ToPlaylistItem() *PlaylistItem {
	return &PlaylistItem{
		ID:              f.ID.String(),
		Name:            f.Name,
		URL:             f.URL,
		MimeType:        f.MimeType,
		DurationSeconds: f.DurationSeconds,
		Kind:            KindFromMime(f.MimeType),
	}
}

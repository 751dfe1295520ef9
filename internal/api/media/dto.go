package media

import "SnapSight/internal/entity"

// UploadVideoRequest is the body of POST /api/videos. Video is a data URI.
type UploadVideoRequest struct {
	Video string `json:"video" validate:"required"`
}

type UploadVideoResponse struct {
	Status     string `json:"status"`
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	FileID     string `json:"fileId,omitempty"`
}

// SocketMessage is one client→relay envelope received on the media socket.
type SocketMessage struct {
	Type   string `json:"type"`
	Image  string `json:"image,omitempty"`
	Video  string `json:"video,omitempty"`
	UserID string `json:"userId"`
	Date   string `json:"date"`
	Time   int64  `json:"time"`
}

// MediaItem is one gallery entry: the stored ref plus a short-lived
// download URL when the blob is reachable.
type MediaItem struct {
	entity.StoredMediaRef
	Url string `json:"url,omitempty"`
}

type MediaListResponse struct {
	Items       []MediaItem `json:"items"`
	Length      int         `json:"length"`
	TotalPages  int         `json:"totalPages"`
	CurrentPage int         `json:"currentPage"`
	Limit       int         `json:"pageSize"`
}

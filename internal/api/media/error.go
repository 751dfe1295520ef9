package media

import (
	"SnapSight/pkg/response"
	"errors"
	"net/http"
)

var (
	ErrMediaLookup = response.NewError(http.StatusInternalServerError, "failed to list stored media")

	// ErrMissingVideo is the upload endpoint's validation failure. The
	// handler reports it with the structured 422 body the clients expect.
	ErrMissingVideo = errors.New("missing fields: video")

	// ErrPublish means the artifact is lost; delivery is at-most-once and
	// there is no retry queue.
	ErrPublish = errors.New("failed to publish envelope to broker")
)

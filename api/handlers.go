package api

import (
	"encoding/json"
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/replay/pkg/storage"
	"github.com/papercomputeco/replay/pkg/trajectory"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AddTrajectoryRequest is the body of POST /v1/trajectories.
type AddTrajectoryRequest struct {
	// ID is optional; one is generated when empty.
	ID      string          `json:"id,omitempty"`
	Tags    []string        `json:"tags"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// FetchResponse is one page of a bucket.
type FetchResponse struct {
	Tags         []string                 `json:"tags"`
	Page         int                      `json:"page"`
	PageSize     int                      `json:"page_size"`
	Count        int                      `json:"count"`
	Trajectories []*trajectory.Trajectory `json:"trajectories"`
}

// KeysResponse lists every bucket's tag sequence.
type KeysResponse struct {
	Count int        `json:"count"`
	Keys  [][]string `json:"keys"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleStats returns bucket and trajectory counts.
func (s *Server) handleStats(c *fiber.Ctx) error {
	stats, err := s.storer.Stats(c.Context())
	if err != nil {
		s.logger.Error("failed to read stats", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to read stats"})
	}

	return c.JSON(stats)
}

// handleKeys lists the tag sequence of every bucket.
func (s *Server) handleKeys(c *fiber.Ctx) error {
	kl, ok := s.storer.(storage.KeyLister)
	if !ok {
		return c.Status(fiber.StatusNotImplemented).JSON(ErrorResponse{Error: storage.ErrKeysUnsupported.Error()})
	}

	keys, err := kl.Keys(c.Context())
	if err != nil {
		if errors.Is(err, storage.ErrKeysUnsupported) {
			return c.Status(fiber.StatusNotImplemented).JSON(ErrorResponse{Error: err.Error()})
		}
		s.logger.Error("failed to list keys", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "failed to list keys"})
	}

	resp := KeysResponse{Count: len(keys), Keys: make([][]string, 0, len(keys))}
	for _, k := range keys {
		resp.Keys = append(resp.Keys, k.Tags())
	}

	return c.JSON(resp)
}

// handleAddTrajectory appends a trajectory to the bucket for its tags.
func (s *Server) handleAddTrajectory(c *fiber.Ctx) error {
	var req AddTrajectoryRequest
	if err := json.Unmarshal(c.Body(), &req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	if len(req.Payload) > 0 && !json.Valid(req.Payload) {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "payload must be valid JSON"})
	}

	t := trajectory.New(req.Tags, req.Payload)
	if req.ID != "" {
		t.ID = req.ID
	}

	if err := s.storer.Add(c.Context(), t); err != nil {
		s.logger.Error("failed to add trajectory",
			"id", t.ID,
			"tags", t.Tags,
			"error", err,
		)
		return c.Status(errorStatus(err)).JSON(ErrorResponse{Error: err.Error()})
	}

	s.logger.Debug("added trajectory",
		"id", t.ID,
		"tags", t.Tags,
	)

	return c.Status(fiber.StatusCreated).JSON(t)
}

// handleFetchTrajectories returns one page of the bucket for the repeated
// tag query parameters, in the order given.
func (s *Server) handleFetchTrajectories(c *fiber.Ctx) error {
	tags := queryTags(c)
	page := c.QueryInt("page", 0)
	pageSize := c.QueryInt("page_size", s.config.PageSize)

	ts, err := s.storer.Fetch(c.Context(), tags, page, pageSize)
	if err != nil {
		return c.Status(errorStatus(err)).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.JSON(FetchResponse{
		Tags:         tags,
		Page:         page,
		PageSize:     pageSize,
		Count:        len(ts),
		Trajectories: ts,
	})
}

// handleSnapshot forces a full snapshot write.
func (s *Server) handleSnapshot(c *fiber.Ctx) error {
	snap, ok := s.storer.(storage.Snapshotter)
	if !ok {
		return c.Status(fiber.StatusNotImplemented).JSON(ErrorResponse{Error: storage.ErrSnapshotUnsupported.Error()})
	}

	if err := snap.SaveToDisk(c.Context()); err != nil {
		if errors.Is(err, storage.ErrSnapshotUnsupported) {
			return c.Status(fiber.StatusNotImplemented).JSON(ErrorResponse{Error: err.Error()})
		}
		s.logger.Error("failed to save snapshot", "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: err.Error()})
	}

	return c.JSON(map[string]string{"status": "saved"})
}

func queryTags(c *fiber.Ctx) []string {
	raw := c.Context().QueryArgs().PeekMulti("tag")
	tags := make([]string, 0, len(raw))
	for _, b := range raw {
		tags = append(tags, string(b))
	}
	return tags
}

// errorStatus maps storage errors onto HTTP status codes.
func errorStatus(err error) int {
	var invalid *storage.InvalidArgumentError
	if errors.As(err, &invalid) {
		return fiber.StatusBadRequest
	}
	return fiber.StatusInternalServerError
}

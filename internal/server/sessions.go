package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/signifyapp/signify-server/internal/session"
)

// handleSessionInfo answers GET /session-info/:session_id.
func (s *Server) handleSessionInfo(c echo.Context) error {
	view, err := s.config.Sessions.Get(c.Param("session_id"))
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "Session not found"})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusOK, view)
}

// handleRemoveLastWord answers DELETE /remove-last-word-from-session/:session_id.
// "Last" means the highest sequence number, which is what the undo button
// in the client needs.
func (s *Server) handleRemoveLastWord(c echo.Context) error {
	sessionID := c.Param("session_id")

	view, removed, err := s.config.Sessions.RemoveLast(sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "Session not found or empty"})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}

	s.logger.Info("removed last word from session",
		zap.String("session_id", sessionID),
		zap.String("word", removed))

	return c.JSON(http.StatusOK, removeWordResponse{View: view, RemovedWord: removed})
}

// handleRemoveWord answers DELETE /remove-word-from-session/:session_id/:sequence_number.
func (s *Server) handleRemoveWord(c echo.Context) error {
	sessionID := c.Param("session_id")
	seq, err := strconv.Atoi(c.Param("sequence_number"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: "sequence_number must be an integer"})
	}

	view, removed, err := s.config.Sessions.RemoveAt(sessionID, seq)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "Session or word not found"})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}

	s.logger.Info("removed word from session",
		zap.String("session_id", sessionID),
		zap.Int("sequence_number", seq),
		zap.String("word", removed))

	return c.JSON(http.StatusOK, removeWordResponse{View: view, RemovedWord: removed})
}

// handleClearSession answers DELETE /clear-session/:session_id.
func (s *Server) handleClearSession(c echo.Context) error {
	sessionID := c.Param("session_id")

	if err := s.config.Sessions.Clear(sessionID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "Session not found"})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message":    "Session cleared",
		"session_id": sessionID,
	})
}

// handleRegenerateSentence answers POST /regenerate-sentence/:session_id,
// re-running the composer over the session's current words (for example
// after an undo) without replaying any video.
func (s *Server) handleRegenerateSentence(c echo.Context) error {
	sessionID := c.Param("session_id")

	view, err := s.config.Sessions.Regenerate(c.Request().Context(), sessionID)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "Session not found or has no valid words"})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}

	return c.JSON(http.StatusOK, regenerateResponse{
		SessionID: sessionID,
		Sentence:  view.ComposedSentence,
		Words:     view.Words,
	})
}

// handleListSessions answers GET /list-sessions with an operational dump
// of all active sessions.
func (s *Server) handleListSessions(c echo.Context) error {
	sessions := s.config.Sessions.ListAll()
	return c.JSON(http.StatusOK, listSessionsResponse{
		ActiveSessions: len(sessions),
		Sessions:       sessions,
	})
}

// handleHistory answers GET /history with the finalized-session archive.
func (s *Server) handleHistory(c echo.Context) error {
	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	recordings, err := s.config.Archive.Recordings().List(limit)
	if err != nil {
		s.logger.Error("failed to list history", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed to list history"})
	}

	resp := historyResponse{Recordings: make([]historyEntry, 0, len(recordings))}
	for _, rec := range recordings {
		resp.Recordings = append(resp.Recordings, historyEntry{
			ID:                rec.ID,
			SessionID:         rec.SessionID,
			Sentence:          rec.Sentence,
			ComposedSentence:  rec.ComposedSentence,
			Words:             rec.Words,
			TotalSigns:        rec.TotalSigns,
			OverallConfidence: rec.OverallConfidence,
			CompletedAt:       rec.CompletedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	resp.Total = len(resp.Recordings)

	return c.JSON(http.StatusOK, resp)
}

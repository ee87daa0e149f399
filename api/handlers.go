package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/rehearse/pkg/llm"
	"github.com/papercomputeco/rehearse/pkg/prompt"
	"github.com/papercomputeco/rehearse/pkg/session"
	"github.com/papercomputeco/rehearse/pkg/sse"
	"github.com/papercomputeco/rehearse/pkg/stream"
)

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleCreate streams a new training dialog for the posted scene.
func (s *Server) handleCreate(c *fiber.Ctx) error {
	params := s.sceneFromForm(c)

	reference, err := attachmentText(c)
	if err != nil {
		s.logger.Warn("rejecting attachment", "error", err)
		status := fiber.StatusBadRequest
		if errors.Is(err, errAttachmentSize) {
			status = fiber.StatusRequestEntityTooLarge
		}
		return c.Status(status).JSON(ErrorResponse{Error: err.Error()})
	}

	return s.stream(c, session.ModeCreate, llm.Request{
		System: prompt.CreateSystemPrompt(params, reference),
	})
}

// handleAdjust streams a revision of the posted prior dialog.
func (s *Server) handleAdjust(c *fiber.Ctx) error {
	params := s.sceneFromForm(c)

	prior := c.FormValue(session.FieldPriorContent)
	if prior == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "priorContent is required"})
	}

	return s.stream(c, session.ModeAdjust, llm.Request{
		System: prompt.AdjustSystemPrompt(params, prior, c.FormValue(session.FieldAdjustment)),
	})
}

// stream answers with an event stream fed by the upstream completion.
func (s *Server) stream(c *fiber.Ctx, mode session.Mode, req llm.Request) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")

	// pw.Write blocks until fasthttp's chunked writer consumes the frame, so
	// every frame reaches the socket as it is produced.
	pr, pw := io.Pipe()
	go s.generate(mode, req, pw)

	c.Context().Response.SetBodyStream(pr, -1)
	return nil
}

// generate runs one completion, writing each fragment as a frame. An upstream
// failure aborts the response so the client sees a broken stream rather than
// a clean end.
func (s *Server) generate(mode session.Mode, req llm.Request, pw *io.PipeWriter) {
	ctx := s.ctx
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	frames := 0
	err := s.streamer.Stream(ctx, req, func(f llm.Fragment) error {
		frames++
		return writeFrame(pw, f)
	})
	if err != nil {
		s.logger.Error("generation failed",
			"mode", mode.String(),
			"frames", frames,
			"error", err,
		)
		pw.CloseWithError(err)
		return
	}

	s.logger.Info("generation completed",
		"mode", mode.String(),
		"frames", frames,
	)
	pw.Close()
}

func writeFrame(w io.Writer, f llm.Fragment) error {
	payload := stream.Payload{Type: stream.ContentType, Text: f.Text}
	if f.Reasoning {
		payload.Type = stream.ReasoningType
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding frame: %w", err)
	}

	if _, err := fmt.Fprintf(w, "%s%s\n\n", sse.DataPrefix, data); err != nil {
		return fmt.Errorf("writing frame: %w", err)
	}
	return nil
}

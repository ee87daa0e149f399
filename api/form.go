package api

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/rehearse/pkg/session"
)

// maxAttachment caps the inlined reference material.
const maxAttachment = 1 << 20

var (
	errUnsupportedFile = errors.New("unsupported file format")
	errAttachmentSize  = errors.New("attachment too large")
)

// sceneFromForm reads the scene fields shared by both endpoints.
func (s *Server) sceneFromForm(c *fiber.Ctx) session.SceneParameters {
	turns := s.config.DialogTurns
	if raw := c.FormValue(session.FieldDialogTurns); raw != "" {
		turns = session.ParseTurns(raw)
	}

	return session.SceneParameters{
		SceneDescription: c.FormValue(session.FieldSceneDescription),
		SceneName:        c.FormValue(session.FieldSceneName),
		SceneGoal:        c.FormValue(session.FieldSceneGoal),
		AIRole:           c.FormValue(session.FieldAIRole),
		MyRole:           c.FormValue(session.FieldMyRole),
		OpeningLine:      c.FormValue(session.FieldOpeningLine),
		Instructions:     c.FormValue(session.FieldInstructions),
		DialogTurns:      turns,
	}
}

// attachmentText returns the uploaded file as text, or "" when none was
// sent. Only UTF-8 text is accepted.
func attachmentText(c *fiber.Ctx) (string, error) {
	form, err := c.MultipartForm()
	if err != nil {
		// Not multipart, so there is no file part.
		return "", nil
	}

	files := form.File[session.FieldFile]
	if len(files) == 0 {
		return "", nil
	}
	header := files[0]
	if header.Size > maxAttachment {
		return "", errAttachmentSize
	}

	f, err := header.Open()
	if err != nil {
		return "", fmt.Errorf("opening attachment: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxAttachment))
	if err != nil {
		return "", fmt.Errorf("reading attachment: %w", err)
	}
	if !utf8.Valid(data) {
		return "", errUnsupportedFile
	}

	return string(data), nil
}

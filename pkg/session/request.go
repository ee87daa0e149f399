package session

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
)

// Endpoint paths served by the generation service.
const (
	CreatePath = "/ai_create_course"
	AdjustPath = "/ai_adjust_course"
)

// Multipart form field names shared by the client and the server.
const (
	FieldSceneDescription = "scene_description"
	FieldSceneName        = "sceneName"
	FieldSceneGoal        = "sceneGoal"
	FieldAIRole           = "aiRole"
	FieldMyRole           = "myRole"
	FieldOpeningLine      = "openingLine"
	FieldInstructions     = "instructions"
	FieldDialogTurns      = "dialogTurns"
	FieldFile             = "file"
	FieldPriorContent     = "priorContent"
	FieldAdjustment       = "adjustment"
)

// StatusError is returned when the generation service answers with a
// non-success status.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("generation service returned status %d", e.Code)
	}
	return fmt.Sprintf("generation service returned status %d: %s", e.Code, e.Body)
}

// generationForm is everything one request carries.
type generationForm struct {
	mode        Mode
	params      SceneParameters
	file        *Attachment
	prior       string
	instruction string
}

// encode writes the form as multipart and returns the body and its content
// type. The attachment is read fully here so the request is replayable.
func (f generationForm) encode() (*bytes.Buffer, string, error) {
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)

	fields := [][2]string{
		{FieldSceneDescription, f.params.SceneDescription},
		{FieldSceneName, f.params.SceneName},
		{FieldSceneGoal, f.params.SceneGoal},
		{FieldAIRole, f.params.AIRole},
		{FieldMyRole, f.params.MyRole},
		{FieldOpeningLine, f.params.OpeningLine},
		{FieldInstructions, f.params.Instructions},
		{FieldDialogTurns, strconv.Itoa(ClampTurns(f.params.DialogTurns))},
	}
	if f.mode == ModeAdjust {
		fields = append(fields,
			[2]string{FieldPriorContent, f.prior},
			[2]string{FieldAdjustment, f.instruction},
		)
	}

	for _, field := range fields {
		if err := w.WriteField(field[0], field[1]); err != nil {
			return nil, "", fmt.Errorf("writing field %s: %w", field[0], err)
		}
	}

	if f.file != nil && f.file.Content != nil {
		name := f.file.Name
		if name == "" {
			name = "attachment"
		}
		part, err := w.CreateFormFile(FieldFile, name)
		if err != nil {
			return nil, "", fmt.Errorf("creating file part: %w", err)
		}
		if _, err := io.Copy(part, f.file.Content); err != nil {
			return nil, "", fmt.Errorf("reading attachment %s: %w", name, err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing multipart body: %w", err)
	}

	return body, w.FormDataContentType(), nil
}

// newRequest builds the POST for f against target.
func (f generationForm) newRequest(ctx context.Context, target string) (*http.Request, error) {
	body, contentType, err := f.encode()
	if err != nil {
		return nil, err
	}

	path := CreatePath
	if f.mode == ModeAdjust {
		path = AdjustPath
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimSuffix(target, "/")+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "text/event-stream")

	return req, nil
}

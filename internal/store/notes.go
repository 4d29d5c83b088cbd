package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"verba/internal/domain"
	"verba/internal/ports"
	"verba/internal/textfmt"
)

const titleWords = 6

// NotesRepository keeps each user's saved notes as one JSON list keyed by
// user ID. Notes are append-only; a corrupt list is treated as empty rather
// than blocking new saves.
type NotesRepository struct {
	blobs  ports.BlobStore
	logger *zap.Logger
	now    func() time.Time
}

func NewNotesRepository(blobs ports.BlobStore, logger *zap.Logger) *NotesRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotesRepository{blobs: blobs, logger: logger, now: time.Now}
}

func notesKey(userID string) string {
	return "notes_" + userID
}

// List returns the user's notes, newest first.
func (r *NotesRepository) List(ctx context.Context, userID string) ([]domain.Note, error) {
	if userID == "" {
		return nil, domain.ErrNotAuthenticated
	}
	return r.load(ctx, userID)
}

// Append stores a new note built from the processed transcript. The title is
// derived from the first words of the content.
func (r *NotesRepository) Append(ctx context.Context, userID, content string, durationSeconds int) (domain.Note, error) {
	if userID == "" {
		return domain.Note{}, domain.ErrNotAuthenticated
	}

	notes, err := r.load(ctx, userID)
	if err != nil {
		return domain.Note{}, err
	}

	note := domain.Note{
		ID:        uuid.NewString(),
		Title:     textfmt.TitleFromContent(content, titleWords),
		Content:   content,
		CreatedAt: r.now().UTC(),
		Duration:  textfmt.DurationLabel(durationSeconds),
	}
	notes = append([]domain.Note{note}, notes...)

	payload, err := json.Marshal(notes)
	if err != nil {
		return domain.Note{}, fmt.Errorf("encode notes: %w", err)
	}
	if err := r.blobs.Put(ctx, notesKey(userID), payload); err != nil {
		return domain.Note{}, err
	}
	return note, nil
}

func (r *NotesRepository) load(ctx context.Context, userID string) ([]domain.Note, error) {
	payload, found, err := r.blobs.Get(ctx, notesKey(userID))
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	var notes []domain.Note
	if err := json.Unmarshal(payload, &notes); err != nil {
		r.logger.Warn("discarding corrupt notes list",
			zap.String("user_id", userID), zap.Error(err))
		return nil, nil
	}
	return notes, nil
}

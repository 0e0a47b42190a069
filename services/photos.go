package services

import (
	"context"
	"fmt"
	"log/slog"
	"mime/multipart"
	"strings"
	"time"

	"jansarthi-be/models"
	"jansarthi-be/store"
)

// RequestError is a user facing rejection of a request, surfaced as 400.
type RequestError struct {
	Message string
}

func (e *RequestError) Error() string { return e.Message }

type PhotoService struct {
	Storage      ObjectStorage
	IDs          store.Issues
	MaxSize      int64
	AllowedTypes []string
	URLExpiry    time.Duration
	Now          func() time.Time
}

func (p *PhotoService) allowed(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	for _, t := range p.AllowedTypes {
		if ct == t {
			return true
		}
	}
	return false
}

// Validate checks count, content type and size of the uploaded files.
func (p *PhotoService) Validate(files []*multipart.FileHeader, max int, tooMany string) error {
	if len(files) > max {
		return &RequestError{Message: tooMany}
	}
	for _, f := range files {
		ct := f.Header.Get("Content-Type")
		if !p.allowed(ct) {
			return &RequestError{Message: fmt.Sprintf("Invalid file type: %s. Allowed types: [%s]", ct, quoteList(p.AllowedTypes))}
		}
		if f.Size > p.MaxSize {
			return &RequestError{Message: fmt.Sprintf("File %s exceeds maximum size of %dMB", f.Filename, p.MaxSize>>20)}
		}
	}
	return nil
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = "'" + s + "'"
	}
	return strings.Join(quoted, ", ")
}

// Upload stores every file and returns the photo records for issueID.
// Objects already written are removed again if a later file fails.
func (p *PhotoService) Upload(ctx context.Context, issueID int64, files []*multipart.FileHeader) ([]models.IssuePhoto, error) {
	photos := make([]models.IssuePhoto, 0, len(files))
	cleanup := func() {
		for _, ph := range photos {
			if err := p.Storage.Delete(ctx, ph.ObjectName); err != nil {
				slog.Warn("Failed to remove orphaned photo", "object", ph.ObjectName, "error", err)
			}
		}
	}

	now := time.Now().UTC()
	if p.Now != nil {
		now = p.Now()
	}
	for _, fh := range files {
		ph, err := p.uploadOne(ctx, issueID, fh, now)
		if err != nil {
			cleanup()
			return nil, err
		}
		photos = append(photos, ph)
	}
	return photos, nil
}

func (p *PhotoService) uploadOne(ctx context.Context, issueID int64, fh *multipart.FileHeader, now time.Time) (models.IssuePhoto, error) {
	f, err := fh.Open()
	if err != nil {
		return models.IssuePhoto{}, fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	name := ObjectName(fh.Filename)
	ct := fh.Header.Get("Content-Type")
	if err := p.Storage.Upload(ctx, name, f, fh.Size, ct); err != nil {
		return models.IssuePhoto{}, err
	}
	id, err := p.IDs.NextPhotoID(ctx)
	if err != nil {
		_ = p.Storage.Delete(ctx, name)
		return models.IssuePhoto{}, err
	}
	return models.IssuePhoto{
		ID:          id,
		IssueID:     issueID,
		ObjectName:  name,
		Filename:    fh.Filename,
		FileSize:    fh.Size,
		ContentType: ct,
		CreatedAt:   now,
	}, nil
}

// Presign fills in the URL of every photo. A photo whose URL cannot be
// signed keeps an empty URL.
func (p *PhotoService) Presign(ctx context.Context, photos []models.IssuePhoto) []models.IssuePhoto {
	out := make([]models.IssuePhoto, len(photos))
	for i, ph := range photos {
		url, err := p.Storage.PresignedURL(ctx, ph.ObjectName, p.URLExpiry)
		if err != nil {
			slog.Warn("Failed to presign photo", "object", ph.ObjectName, "error", err)
		}
		ph.URL = url
		out[i] = ph
	}
	return out
}

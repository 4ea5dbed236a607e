package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kwalsh/prsession/internal/domain/model"
	"github.com/kwalsh/prsession/internal/domain/port/driven"
)

// ErrNoFetcher is returned by Refresh when the service was built without a
// remote fetcher (no credentials configured).
var ErrNoFetcher = errors.New("no remote fetcher configured")

// ErrNoCurrentPath is returned by write-tracking operations when the review
// has no current path to attach progress to.
var ErrNoCurrentPath = errors.New("no current path selected")

// SessionService implements the domain operations of a review session: review
// lifecycle, current-path selection, and comment write tracking. It depends
// only on port interfaces.
type SessionService struct {
	reviews  driven.ReviewStore
	buffers  driven.BufferStore
	comments driven.CommentStore
	fetcher  driven.RemoteFetcher // May be nil; Refresh then fails with ErrNoFetcher.
	ids      driven.IDGenerator
	log      *slog.Logger
}

// NewSessionService creates a SessionService with the required dependencies.
// fetcher may be nil when no forge credentials are configured.
func NewSessionService(
	reviews driven.ReviewStore,
	buffers driven.BufferStore,
	comments driven.CommentStore,
	fetcher driven.RemoteFetcher,
	ids driven.IDGenerator,
	log *slog.Logger,
) *SessionService {
	if log == nil {
		log = slog.Default()
	}
	return &SessionService{
		reviews:  reviews,
		buffers:  buffers,
		comments: comments,
		fetcher:  fetcher,
		ids:      ids,
		log:      log,
	}
}

// prInfos mirrors the two payload paths the session reads. Everything else in
// the infos payload is opaque and stored verbatim.
type prInfos struct {
	HeadRef struct {
		Target struct {
			Oid string `json:"oid"`
		} `json:"target"`
	} `json:"headRef"`
	Reviews struct {
		Nodes []json.RawMessage `json:"nodes"`
	} `json:"reviews"`
}

// CreateReview assigns a fresh random id to the review and saves it. The
// collision probability of the generated id is negligible and not checked.
func (s *SessionService) CreateReview(ctx context.Context, review *model.Review) error {
	review.ID = s.ids.NewID()
	if err := s.reviews.Save(ctx, *review); err != nil {
		return fmt.Errorf("create review %s: %w", review.Slug(), err)
	}
	s.log.Info("review session created", "id", review.ID, "review", review.Slug())
	return nil
}

// DeleteReview removes the review and, by cascade, its whole buffer hierarchy.
func (s *SessionService) DeleteReview(ctx context.Context, id string) error {
	return s.reviews.Delete(ctx, id)
}

// loadReview loads the review row and its owned subtree: buffers, their
// paths, and each path's comments. One query per child table per parent.
// Returns nil, nil when the review does not exist.
func (s *SessionService) loadReview(ctx context.Context, id string) (*model.Review, error) {
	review, err := s.reviews.Get(ctx, id)
	if err != nil || review == nil {
		return review, err
	}

	bufs, err := s.buffers.GetByReview(ctx, id)
	if err != nil {
		return nil, err
	}
	for i := range bufs {
		paths, err := s.buffers.GetPaths(ctx, bufs[i].ID)
		if err != nil {
			return nil, err
		}
		for j := range paths {
			comments, err := s.comments.GetByPath(ctx, paths[j].ID)
			if err != nil {
				return nil, err
			}
			paths[j].Comments = comments
		}
		bufs[i].Paths = paths
	}
	review.Buffers = bufs

	return review, nil
}

// requireReview loads the full review or fails with ErrReviewNotFound when no
// row exists. Mutating operations need the row to exist; reads tolerate
// absence with zero-value defaults instead.
func (s *SessionService) requireReview(ctx context.Context, id string) (*model.Review, error) {
	review, err := s.loadReview(ctx, id)
	if err != nil {
		return nil, err
	}
	if review == nil {
		return nil, fmt.Errorf("review %s: %w", id, driven.ErrReviewNotFound)
	}
	return review, nil
}

// UpdateInfos stores the raw infos payload verbatim and extracts the head
// commit sha and the review node list from its two well-known paths.
// Idempotent for identical payloads.
func (s *SessionService) UpdateInfos(ctx context.Context, id string, infos json.RawMessage) error {
	review, err := s.requireReview(ctx, id)
	if err != nil {
		return err
	}

	var parsed prInfos
	if err := json.Unmarshal(infos, &parsed); err != nil {
		return fmt.Errorf("parse infos payload: %w", err)
	}

	review.RawInfos = infos
	review.SHA = parsed.HeadRef.Target.Oid
	review.RawComments = parsed.Reviews.Nodes

	return s.reviews.Save(ctx, *review)
}

// UpdateDiff stores the raw diff text.
func (s *SessionService) UpdateDiff(ctx context.Context, id, diff string) error {
	review, err := s.requireReview(ctx, id)
	if err != nil {
		return err
	}

	review.RawDiff = diff
	return s.reviews.Save(ctx, *review)
}

// AppendRawComment prepends a comment payload to the review's cached raw
// comment list; the stored order is newest first.
func (s *SessionService) AppendRawComment(ctx context.Context, id string, comment json.RawMessage) error {
	review, err := s.requireReview(ctx, id)
	if err != nil {
		return err
	}

	review.RawComments = append([]json.RawMessage{comment}, review.RawComments...)
	return s.reviews.Save(ctx, *review)
}

// UpdateSHA records a new head commit sha.
func (s *SessionService) UpdateSHA(ctx context.Context, id, sha string) error {
	review, err := s.requireReview(ctx, id)
	if err != nil {
		return err
	}

	review.SHA = sha
	return s.reviews.Save(ctx, *review)
}

// GetInfos returns the stored raw infos payload, or nil when the review or
// payload is absent.
func (s *SessionService) GetInfos(ctx context.Context, id string) (json.RawMessage, error) {
	review, err := s.reviews.Get(ctx, id)
	if err != nil || review == nil {
		return nil, err
	}
	return review.RawInfos, nil
}

// GetRawDiff returns the stored diff text, or "" when absent.
func (s *SessionService) GetRawDiff(ctx context.Context, id string) (string, error) {
	review, err := s.reviews.Get(ctx, id)
	if err != nil || review == nil {
		return "", err
	}
	return review.RawDiff, nil
}

// GetRawComments returns the cached raw comment list, newest first, or nil
// when absent.
func (s *SessionService) GetRawComments(ctx context.Context, id string) ([]json.RawMessage, error) {
	review, err := s.reviews.Get(ctx, id)
	if err != nil || review == nil {
		return nil, err
	}
	return review.RawComments, nil
}

// GetReviewSummary returns the owner/repo/number/sha projection, or nil when
// the review does not exist.
func (s *SessionService) GetReviewSummary(ctx context.Context, id string) (*model.ReviewSummary, error) {
	review, err := s.reviews.Get(ctx, id)
	if err != nil || review == nil {
		return nil, err
	}
	return &model.ReviewSummary{
		Owner:  review.Owner,
		Repo:   review.Repo,
		Number: review.Number,
		SHA:    review.SHA,
	}, nil
}

// SetCurrentPath makes pathName the review's current path. When the review
// has no buffer yet, a buffer (id = review id) and the first path are created
// together. Otherwise every sibling's current flag is cleared and a brand-new
// path row is inserted, so revisiting a file accumulates rows; only one is
// ever current. Both shapes run as one transaction in the store.
func (s *SessionService) SetCurrentPath(ctx context.Context, reviewID, pathName string) error {
	review, err := s.requireReview(ctx, reviewID)
	if err != nil {
		return err
	}

	buf := review.ActiveBuffer()
	if buf == nil {
		newBuf := model.Buffer{ID: reviewID, ReviewID: reviewID}
		p := model.Path{ID: s.ids.NewID(), BufferID: newBuf.ID, Name: pathName, AtPos: true}
		return s.buffers.CreateWithPath(ctx, newBuf, p)
	}

	p := model.Path{ID: s.ids.NewID(), BufferID: buf.ID, Name: pathName, AtPos: true}
	return s.buffers.ReplaceCurrentPath(ctx, buf.ID, p)
}

// GetCurrentPath returns the review's current path, or nil when the review,
// its buffer, or a current selection is absent.
func (s *SessionService) GetCurrentPath(ctx context.Context, reviewID string) (*model.Path, error) {
	review, err := s.loadReview(ctx, reviewID)
	if err != nil || review == nil {
		return nil, err
	}

	buf := review.ActiveBuffer()
	if buf == nil {
		return nil, nil
	}
	return buf.CurrentPath(), nil
}

// SetHeadPosition records the first-hunk position on every path whose name
// equals pathName, including historical rows from earlier visits.
func (s *SessionService) SetHeadPosition(ctx context.Context, reviewID, pathName string, pos int) error {
	review, err := s.requireReview(ctx, reviewID)
	if err != nil {
		return err
	}

	buf := review.ActiveBuffer()
	if buf == nil {
		return nil
	}

	for i := range buf.Paths {
		if buf.Paths[i].Name != pathName {
			continue
		}
		p := buf.Paths[i]
		p.HeadPos = &pos
		if err := s.buffers.SavePath(ctx, p); err != nil {
			return err
		}
	}

	return nil
}

// GetHeadPosition returns the recorded first-hunk position for the first path
// matching pathName, or nil when no match or no position exists.
func (s *SessionService) GetHeadPosition(ctx context.Context, reviewID, pathName string) (*int, error) {
	review, err := s.loadReview(ctx, reviewID)
	if err != nil || review == nil {
		return nil, err
	}

	buf := review.ActiveBuffer()
	if buf == nil {
		return nil, nil
	}

	for i := range buf.Paths {
		if buf.Paths[i].Name == pathName {
			return buf.Paths[i].HeadPos, nil
		}
	}
	return nil, nil
}

// RecordWrittenLines adds count to the current path's tracking comment,
// creating the comment (id = path id) when none exists yet. A missing counter
// value reads as zero.
func (s *SessionService) RecordWrittenLines(ctx context.Context, reviewID string, count int) error {
	cur, err := s.GetCurrentPath(ctx, reviewID)
	if err != nil {
		return err
	}
	if cur == nil {
		return fmt.Errorf("review %s: %w", reviewID, ErrNoCurrentPath)
	}

	c := cur.TrackingComment()
	if c == nil {
		c = &model.Comment{ID: cur.ID, PathID: cur.ID}
	}
	c.LocWritten += count

	return s.comments.Save(ctx, *c)
}

// MarkIdentifierWritten records an identifier on the current path's tracking
// comment, creating the comment when none exists. Identifiers are prepended
// and never deduplicated; AlreadyWritten only needs membership.
func (s *SessionService) MarkIdentifierWritten(ctx context.Context, reviewID, identifier string) error {
	cur, err := s.GetCurrentPath(ctx, reviewID)
	if err != nil {
		return err
	}
	if cur == nil {
		return fmt.Errorf("review %s: %w", reviewID, ErrNoCurrentPath)
	}

	c := cur.TrackingComment()
	if c == nil {
		c = &model.Comment{ID: cur.ID, PathID: cur.ID, Identifiers: []string{identifier}}
	} else {
		c.Identifiers = append([]string{identifier}, c.Identifiers...)
	}

	return s.comments.Save(ctx, *c)
}

// AlreadyWritten reports whether identifier was recorded on any path's
// tracking comment under the review's buffer, across all visits.
func (s *SessionService) AlreadyWritten(ctx context.Context, reviewID, identifier string) (bool, error) {
	review, err := s.loadReview(ctx, reviewID)
	if err != nil || review == nil {
		return false, err
	}

	buf := review.ActiveBuffer()
	if buf == nil {
		return false, nil
	}

	written := false
	for i := range buf.Paths {
		if c := buf.Paths[i].TrackingComment(); c != nil && c.HasIdentifier(identifier) {
			written = true
		}
	}
	return written, nil
}

// GetWrittenPosition returns the accumulated written-line count of a comment,
// or 0 when the comment does not exist.
func (s *SessionService) GetWrittenPosition(ctx context.Context, commentID string) (int, error) {
	c, err := s.comments.Get(ctx, commentID)
	if err != nil || c == nil {
		return 0, err
	}
	return c.LocWritten, nil
}

// Refresh fetches the review's infos and diff from the forge and applies them
// through UpdateInfos and UpdateDiff.
func (s *SessionService) Refresh(ctx context.Context, id string) error {
	if s.fetcher == nil {
		return ErrNoFetcher
	}

	review, err := s.requireReview(ctx, id)
	if err != nil {
		return err
	}

	infos, err := s.fetcher.FetchInfos(ctx, review.Owner, review.Repo, review.Number)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", review.Slug(), err)
	}
	if err := s.UpdateInfos(ctx, id, infos); err != nil {
		return err
	}

	diff, err := s.fetcher.FetchDiff(ctx, review.Owner, review.Repo, review.Number)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", review.Slug(), err)
	}
	if err := s.UpdateDiff(ctx, id, diff); err != nil {
		return err
	}

	s.log.Info("review session refreshed", "id", id, "review", review.Slug())
	return nil
}

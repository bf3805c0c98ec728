// Package services – SessionService
//
// This file implements SessionService, which manages human test sessions.
// It validates the marker batch against the configured minimum, normalizes
// participant names, stamps markers as human contributions, and persists the
// whole session atomically so readers never observe a partial marker set.
package services

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lemtool/lem-backend/internal/domain"
)

// DefaultMinMarkers is the minimum contribution size for a session when the
// service is constructed without an explicit limit.
const DefaultMinMarkers = 3

// defaultParticipantName replaces blank participant names.
const defaultParticipantName = "Anonymous"

// SessionRepo defines the repository contract required by SessionService.
type SessionRepo interface {
	// CreateSession inserts a session with its full marker batch.
	CreateSession(ctx context.Context, db *gorm.DB, id, projectID, participantName string, ms []domain.Marker) (*domain.TestSession, error)

	// ListSessions returns a project's sessions in arrival order.
	ListSessions(ctx context.Context, db *gorm.DB, projectID string) ([]domain.TestSession, error)

	// CountSessions returns the number of sessions for the project.
	CountSessions(ctx context.Context, db *gorm.DB, projectID string) (int64, error)
}

// SessionService provides test-session operations: submitting a participant's
// marker batch and listing a project's sessions.
type SessionService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the session repository used by this service.
	Repo SessionRepo
	// Projects resolves the target project: by ID alone for participant
	// submission, owner-scoped for listing.
	Projects ProjectRepo

	// MinMarkers is the smallest accepted marker batch.
	MinMarkers int
	// NameMaxLen caps stored participant names by rune length.
	NameMaxLen int
	// NameLocale selects the casing rules for participant names.
	NameLocale language.Tag
}

// NewSessionService constructs a SessionService with sane defaults.
func NewSessionService(db *gorm.DB, r SessionRepo, projects ProjectRepo) *SessionService {
	return &SessionService{
		DB:         db,
		Repo:       r,
		Projects:   projects,
		MinMarkers: DefaultMinMarkers,
		NameMaxLen: 80,
		NameLocale: language.Und,
	}
}

// Submit validates and persists a participant's marker batch as a new test
// session. Participants are not the project owner, so the project is resolved
// by ID alone; only the archived state gates submission. Markers are clamped,
// stamped with the human source and the new session ID, and stored in a
// single insert so the batch is all-or-nothing.
func (s *SessionService) Submit(ctx context.Context, projectID, participantName string, ms []domain.Marker) (*domain.TestSession, error) {
	tr := otel.Tracer("services/SessionService")
	ctx, span := tr.Start(ctx, "Submit",
		trace.WithAttributes(
			attribute.String("project.id", projectID),
			attribute.Int("markers", len(ms)),
		),
	)
	defer span.End()

	project, err := s.Projects.GetProjectByID(ctx, s.DB, projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	if project.Archived {
		return nil, ErrProjectArchived
	}

	min := s.MinMarkers
	if min <= 0 {
		min = DefaultMinMarkers
	}
	if len(ms) < min {
		return nil, ErrTooFewMarkers{Got: len(ms), Min: min}
	}

	sessionID := uuid.NewString()
	stamped := make([]domain.Marker, 0, len(ms))
	for _, m := range ms {
		if !m.Layer.Valid() || m.Payload() == "" {
			return nil, ErrInvalidMarker
		}
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		m.Source = domain.SourceHuman
		m.SessionID = sessionID
		m.Clamp()
		stamped = append(stamped, m)
	}

	name := s.normalizeName(participantName)
	return s.Repo.CreateSession(ctx, s.DB, sessionID, projectID, name, stamped)
}

// List returns the project's sessions in arrival order, after verifying the
// project belongs to the user.
func (s *SessionService) List(ctx context.Context, userID, projectID string) ([]domain.TestSession, error) {
	tr := otel.Tracer("services/SessionService")
	ctx, span := tr.Start(ctx, "List",
		trace.WithAttributes(attribute.String("project.id", projectID)),
	)
	defer span.End()

	if _, err := s.Projects.GetProject(ctx, s.DB, projectID, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return s.Repo.ListSessions(ctx, s.DB, projectID)
}

// normalizeName trims and collapses whitespace, title-cases the result, and
// clips it to the configured rune length. Blank names become a default.
func (s *SessionService) normalizeName(name string) string {
	name = nameSpaceRE.ReplaceAllString(strings.TrimSpace(name), " ")
	if name == "" {
		return defaultParticipantName
	}
	name = cases.Title(s.nameLocaleOrDefault()).String(name)

	max := s.NameMaxLen
	if max <= 0 {
		max = 80
	}
	if utf8.RuneCountInString(name) > max {
		name = string([]rune(name)[:max])
	}
	return name
}

func (s *SessionService) nameLocaleOrDefault() language.Tag {
	if s.NameLocale == language.Und {
		return language.English
	}
	return s.NameLocale
}

// nameSpaceRE collapses consecutive whitespace to a single space.
var nameSpaceRE = regexp.MustCompile(`\s+`)

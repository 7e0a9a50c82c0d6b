package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/smallbiznis/healx/internal/clock"
	journaldomain "github.com/smallbiznis/healx/internal/journal/domain"
	"github.com/smallbiznis/healx/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	entryDateLayout = "2006-01-02"
	maxTags         = 32
	maxTagLength    = 64
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Clock clock.Clock
}

type Service struct {
	log     *zap.Logger
	clock   clock.Clock
	entries repository.Repository[journaldomain.JournalEntry]
}

func New(p Params) journaldomain.Service {
	clk := p.Clock
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Service{
		log:     p.Log.Named("journal.service"),
		clock:   clk,
		entries: repository.ProvideStore[journaldomain.JournalEntry](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, userID string, req journaldomain.CreateRequest) (*journaldomain.CreateResponse, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, journaldomain.ErrInvalidUser
	}

	entryDate, err := time.Parse(entryDateLayout, strings.TrimSpace(req.EntryDate))
	if err != nil {
		return nil, journaldomain.ErrInvalidEntryDate
	}

	if req.MoodScore != nil && (*req.MoodScore < 1 || *req.MoodScore > 10) {
		return nil, journaldomain.ErrInvalidMoodScore
	}

	tags, err := normalizeTags(req.Tags)
	if err != nil {
		return nil, err
	}

	entry := &journaldomain.JournalEntry{
		ID:              uuid.New(),
		UserID:          userID,
		EntryDate:       datatypes.Date(entryDate),
		ContentMarkdown: req.Content,
		MoodScore:       req.MoodScore,
		Tags:            datatypes.JSONSlice[string](tags),
		CreatedAt:       s.clock.Now(),
	}
	if err := s.entries.Create(ctx, entry); err != nil {
		return nil, err
	}

	s.log.Debug("journal entry saved",
		zap.String("entry_id", entry.ID.String()),
		zap.String("entry_date", entryDate.Format(entryDateLayout)),
	)
	return &journaldomain.CreateResponse{ID: entry.ID.String()}, nil
}

func normalizeTags(tags []string) ([]string, error) {
	if len(tags) > maxTags {
		return nil, journaldomain.ErrInvalidTags
	}
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if len(tag) > maxTagLength {
			return nil, journaldomain.ErrInvalidTags
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out, nil
}

package service

import (
	"context"
	"math"
	"strings"

	"macrotrack/internal/model"
	"macrotrack/internal/notifier"
	"macrotrack/internal/repository"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	MinMultiplier  = 0.5
	MaxMultiplier  = 5.0
	MultiplierStep = 0.5

	unnamedFood = "Unnamed food"
)

// Photo is the meal image attached to a confirmation.
type Photo struct {
	Data        []byte
	ContentType string
}

// ConfirmInput saves analysis proposals as entries.
type ConfirmInput struct {
	Items []model.AnalysisItem
	Photo *Photo
}

// EntryUpdate edits an entry. Nil fields are left unchanged.
type EntryUpdate struct {
	Multiplier *float64
	Name       *string
	Notes      *string
}

type EntryService interface {
	// Confirm stores every item as an entry captured now, all or nothing.
	// Items carrying an id are upserted under it, so a retried confirm does
	// not duplicate entries. When a photo is attached it is stored once and
	// every entry references it. Webhooks go out only after the save.
	Confirm(ctx context.Context, userID string, in ConfirmInput) ([]model.FoodEntry, error)
	Update(ctx context.Context, userID, entryID string, upd EntryUpdate) (*model.FoodEntry, error)
	Delete(ctx context.Context, userID, entryID string) error
}

type entryService struct {
	entries  repository.EntryRepository
	users    UserService
	images   ImageStore
	notifier notifier.Notifier
	// defaultWebhookURL is used when the user has not set their own.
	defaultWebhookURL string
	clock             quartz.Clock
	logger            zerolog.Logger
}

// NewEntryService creates an EntryService. images and n may be nil, which
// disables photo storage and webhooks respectively.
func NewEntryService(
	entries repository.EntryRepository,
	users UserService,
	images ImageStore,
	n notifier.Notifier,
	defaultWebhookURL string,
	clock quartz.Clock,
	logger zerolog.Logger,
) EntryService {
	return &entryService{
		entries:           entries,
		users:             users,
		images:            images,
		notifier:          n,
		defaultWebhookURL: defaultWebhookURL,
		clock:             clock,
		logger:            logger.With().Str("service", "EntryService").Logger(),
	}
}

var titleCaser = cases.Title(language.English)

// normalizeName collapses whitespace and title-cases names that arrive all
// lower case. Names with any capitals are kept as written.
func normalizeName(name string) string {
	name = strings.Join(strings.Fields(name), " ")
	if name == "" {
		return unnamedFood
	}
	if name == strings.ToLower(name) {
		return titleCaser.String(name)
	}
	return name
}

func (s *entryService) Confirm(ctx context.Context, userID string, in ConfirmInput) ([]model.FoodEntry, error) {
	user, err := s.users.GetOrCreate(ctx, userID)
	if err != nil {
		return nil, err
	}

	var imageRef *string
	if in.Photo != nil && len(in.Photo.Data) > 0 && s.images != nil {
		key, err := s.images.Put(ctx, userID, in.Photo.Data, in.Photo.ContentType)
		if err != nil {
			// The entries are still worth keeping without the photo.
			s.logger.Warn().Err(err).Str("user_id", userID).Msg("Saving entries without photo")
		} else {
			imageRef = &key
		}
	}

	now := s.clock.Now()
	saved := make([]model.FoodEntry, 0, len(in.Items))
	for _, item := range in.Items {
		id := item.ID
		if id == "" {
			id = uuid.NewString()
		}
		saved = append(saved, model.FoodEntry{
			ID:         id,
			UserID:     userID,
			Name:       normalizeName(item.Name),
			Notes:      strings.TrimSpace(item.Notes),
			Macros:     item.Macros.Sanitize(),
			CapturedAt: now,
			ImageRef:   imageRef,
		})
	}
	if err := s.entries.PutEntries(ctx, userID, saved); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Int("count", len(saved)).Msg("Failed to save entries")
		return nil, storageErr(err, nil, "save entries")
	}
	for _, e := range saved {
		s.notify(ctx, user, e)
	}
	s.logger.Info().Str("user_id", userID).Int("count", len(saved)).Msg("Entries confirmed")
	return saved, nil
}

func (s *entryService) notify(ctx context.Context, user *model.UserAccount, e model.FoodEntry) {
	if s.notifier == nil {
		return
	}
	target := user.WebhookURL
	if target == "" {
		target = s.defaultWebhookURL
	}
	if target == "" {
		return
	}
	if err := s.notifier.Notify(ctx, notifier.ForEntry(target, e)); err != nil {
		s.logger.Warn().Err(err).Str("entry_id", e.ID).Msg("Failed to schedule webhook")
	}
}

// ValidMultiplier reports whether m is in [0.5, 5] and a multiple of 0.5.
func ValidMultiplier(m float64) bool {
	if math.IsNaN(m) || m < MinMultiplier || m > MaxMultiplier {
		return false
	}
	steps := m / MultiplierStep
	return math.Abs(steps-math.Round(steps)) < 1e-9
}

func (s *entryService) Update(ctx context.Context, userID, entryID string, upd EntryUpdate) (*model.FoodEntry, error) {
	if upd.Multiplier != nil && !ValidMultiplier(*upd.Multiplier) {
		return nil, ErrInvalidMultiplier
	}

	e, err := s.entries.GetEntry(ctx, userID, entryID)
	if err != nil {
		return nil, storageErr(err, ErrEntryNotFound, "get entry")
	}

	if upd.Multiplier != nil {
		e.Macros = e.Macros.Scale(*upd.Multiplier)
	}
	if upd.Name != nil {
		e.Name = normalizeName(*upd.Name)
	}
	if upd.Notes != nil {
		e.Notes = strings.TrimSpace(*upd.Notes)
	}

	if err := s.entries.PutEntry(ctx, userID, *e); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Str("entry_id", entryID).Msg("Failed to update entry")
		return nil, storageErr(err, nil, "update entry")
	}
	return e, nil
}

func (s *entryService) Delete(ctx context.Context, userID, entryID string) error {
	if err := s.entries.DeleteEntry(ctx, userID, entryID); err != nil {
		if !isNotFound(err) {
			s.logger.Error().Err(err).Str("user_id", userID).Str("entry_id", entryID).Msg("Failed to delete entry")
		}
		return storageErr(err, ErrEntryNotFound, "delete entry")
	}
	return nil
}

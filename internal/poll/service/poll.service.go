package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"time"

	"growset/config"
	"growset/internal/poll/model"
	"growset/internal/poll/repository"
	"growset/pkg/logger"
)

const (
	maxCreateAttempts = 3
	notifyTimeout     = 30 * time.Second

	ReasonRemoved = "removed"
	ReasonExpired = "expired"
)

// Publisher pushes poll activity to live viewers.
type Publisher interface {
	PublishEntry(pollID string, entry model.Entry)
	ClosePoll(pollID string)
}

// Notifier announces new entries out of band.
type Notifier interface {
	NotifyEntry(ctx context.Context, poll model.Poll, entry model.Entry) error
}

// Archiver records a poll summary before its files are deleted.
type Archiver interface {
	Archive(ctx context.Context, poll model.Poll, entryCount int, reason string) error
}

type PollService struct {
	Repo      *repository.PollRepository
	Publisher Publisher
	Notifier  Notifier
	Archiver  Archiver

	IDBytes int
	Order   string
	Now     func() time.Time

	pending sync.WaitGroup
}

func NewPollService(repo *repository.PollRepository, cfg config.Config) *PollService {
	return &PollService{
		Repo:    repo,
		IDBytes: cfg.IDBytes,
		Order:   cfg.EntryOrder,
		Now:     time.Now,
	}
}

// ValidID reports whether id has the shape of a poll identifier of any
// supported size, not only the one new polls are created with.
func (s *PollService) ValidID(id string) bool {
	return model.IsID(id)
}

// CreatePoll stores a new poll under a fresh identifier and returns it.
func (s *PollService) CreatePoll(req model.CreatePollRequest) (string, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return "", fmt.Errorf("%w: title is required", model.ErrValidation)
	}

	poll := model.Poll{
		Title:     title,
		CreatedAt: s.Now().UTC(),
		Choices:   cleanChoices(req.Choices),
	}

	for attempt := 1; attempt <= maxCreateAttempts; attempt++ {
		id, err := NewID(s.IDBytes)
		if err != nil {
			return "", err
		}
		poll.ID = id
		err = s.Repo.Create(poll)
		if err == nil {
			logger.Sugar.Infof("Created poll %s", id)
			return id, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", err
		}
		logger.Sugar.Warnf("Poll id %s already taken, retrying", id)
	}
	return "", errors.New("failed to allocate an unused poll id")
}

// Poll loads only a poll's metadata.
func (s *PollService) Poll(id string) (model.Poll, error) {
	if !s.ValidID(id) {
		return model.Poll{}, model.ErrNotFound
	}
	return s.Repo.Get(id)
}

// GetPoll loads a poll with its entries ordered by the configured policy.
func (s *PollService) GetPoll(id string) (model.PollView, error) {
	if !s.ValidID(id) {
		return model.PollView{}, model.ErrNotFound
	}
	poll, err := s.Repo.Get(id)
	if err != nil {
		return model.PollView{}, err
	}
	entries, err := s.Repo.Entries(id)
	if err != nil {
		return model.PollView{}, err
	}
	s.sortEntries(entries)

	return model.PollView{
		Poll:    poll,
		Address: "/" + id,
		Entries: entries,
		Tallies: tally(poll, entries),
	}, nil
}

// ListPolls returns every readable poll, newest first.
func (s *PollService) ListPolls(ctx context.Context) ([]model.Summary, error) {
	polls, err := s.Repo.List(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]model.Summary, len(polls))
	for i, p := range polls {
		summaries[i] = model.Summary{Poll: p, Address: "/" + p.ID}
	}
	return summaries, nil
}

// AddEntry validates and appends a response, then fans it out to live
// viewers and the notifier. Notification runs in the background.
func (s *PollService) AddEntry(id string, req model.EntryRequest) (model.Entry, error) {
	if !s.ValidID(id) {
		return model.Entry{}, model.ErrNotFound
	}
	poll, err := s.Repo.Get(id)
	if err != nil {
		return model.Entry{}, err
	}

	entry, err := buildEntry(poll, req)
	if err != nil {
		return model.Entry{}, err
	}
	entry.Date = s.Now().UTC()

	if err := s.Repo.Append(id, entry); err != nil {
		return model.Entry{}, err
	}

	if s.Publisher != nil {
		s.Publisher.PublishEntry(id, entry)
	}
	if s.Notifier != nil {
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()
			if err := s.Notifier.NotifyEntry(ctx, poll, entry); err != nil {
				logger.Sugar.Errorf("Failed to send notification for poll %s: %v", id, err)
			}
		}()
	}
	return entry, nil
}

// Remove archives (when configured) and deletes a poll. Removing a poll that
// is already gone succeeds.
func (s *PollService) Remove(ctx context.Context, id, reason string) error {
	if !s.ValidID(id) {
		return fmt.Errorf("%w: invalid id", model.ErrValidation)
	}

	if s.Archiver != nil {
		s.archive(ctx, id, reason)
	}
	if err := s.Repo.Delete(id); err != nil {
		return err
	}
	if s.Publisher != nil {
		s.Publisher.ClosePoll(id)
	}
	logger.Sugar.Infof("Deleted %s (%s)", id, reason)
	return nil
}

func (s *PollService) archive(ctx context.Context, id, reason string) {
	poll, err := s.Repo.Get(id)
	if err != nil {
		if !errors.Is(err, model.ErrNotFound) {
			logger.Sugar.Errorf("Failed to read poll %s for archiving: %v", id, err)
		}
		return
	}
	entries, err := s.Repo.Entries(id)
	if err != nil {
		logger.Sugar.Errorf("Failed to read entries of poll %s for archiving: %v", id, err)
	}
	if err := s.Archiver.Archive(ctx, poll, len(entries), reason); err != nil {
		logger.Sugar.Errorf("Failed to archive poll %s: %v", id, err)
	}
}

// Wait blocks until background notifications have finished.
func (s *PollService) Wait() {
	s.pending.Wait()
}

func (s *PollService) sortEntries(entries []model.Entry) {
	if s.Order != config.OrderAlphabetical {
		return
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return strings.ToLower(entries[i].SortKey()) < strings.ToLower(entries[j].SortKey())
	})
}

func buildEntry(poll model.Poll, req model.EntryRequest) (model.Entry, error) {
	if !poll.IsVote() {
		element := strings.TrimSpace(req.Element)
		if element == "" {
			return model.Entry{}, fmt.Errorf("%w: element is required", model.ErrValidation)
		}
		return model.Entry{Element: element}, nil
	}

	responder := strings.TrimSpace(req.Responder)
	if responder == "" {
		return model.Entry{}, fmt.Errorf("%w: responder is required", model.ErrValidation)
	}
	choices := cleanChoices(req.Choices)
	if len(choices) == 0 {
		return model.Entry{}, fmt.Errorf("%w: at least one choice is required", model.ErrValidation)
	}
	allowed := make(map[string]bool, len(poll.Choices))
	for _, c := range poll.Choices {
		allowed[c] = true
	}
	for _, c := range choices {
		if !allowed[c] {
			return model.Entry{}, fmt.Errorf("%w: %w %q", model.ErrValidation, model.ErrUnknownChoice, c)
		}
	}
	return model.Entry{Responder: responder, Choices: choices}, nil
}

// cleanChoices trims choices and drops blanks and repeats, keeping order.
func cleanChoices(choices []string) []string {
	seen := make(map[string]bool, len(choices))
	var cleaned []string
	for _, c := range choices {
		c = strings.TrimSpace(c)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		cleaned = append(cleaned, c)
	}
	return cleaned
}

func tally(poll model.Poll, entries []model.Entry) []model.Tally {
	if !poll.IsVote() {
		return nil
	}
	counts := make(map[string]int, len(poll.Choices))
	for _, e := range entries {
		for _, c := range e.Choices {
			counts[c]++
		}
	}
	tallies := make([]model.Tally, len(poll.Choices))
	for i, c := range poll.Choices {
		tallies[i] = model.Tally{Choice: c, Count: counts[c]}
	}
	return tallies
}

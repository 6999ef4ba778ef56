package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"growset/internal/poll/model"
	"growset/pkg/logger"
)

const (
	DefaultMetadataFile = "set.json"
	DefaultLogFile      = "elements.ndjson"
)

// PollRepository stores each poll in its own directory under Dir: a JSON
// metadata file plus an append-only newline-delimited JSON entry log.
type PollRepository struct {
	Dir          string
	MetadataFile string
	LogFile      string
	// Concurrency caps the number of polls read at once by List.
	Concurrency int
}

func NewPollRepository(dir string, concurrency int) *PollRepository {
	if concurrency < 1 {
		concurrency = 1
	}
	return &PollRepository{
		Dir:          dir,
		MetadataFile: DefaultMetadataFile,
		LogFile:      DefaultLogFile,
		Concurrency:  concurrency,
	}
}

func (r *PollRepository) pollDir(id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", model.ErrNotFound
	}
	return filepath.Join(r.Dir, id), nil
}

// Create makes the poll directory and writes its metadata. It returns
// fs.ErrExist when the id is already taken.
func (r *PollRepository) Create(poll model.Poll) error {
	dir, err := r.pollDir(poll.ID)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(r.Dir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	if err := os.Mkdir(dir, 0o755); err != nil {
		return fmt.Errorf("create poll directory %s: %w", poll.ID, err)
	}
	data, err := json.Marshal(poll)
	if err != nil {
		return fmt.Errorf("encode poll %s: %w", poll.ID, err)
	}
	if err := os.WriteFile(filepath.Join(dir, r.MetadataFile), data, 0o644); err != nil {
		logger.Sugar.Errorf("Failed to write metadata for poll %s: %v", poll.ID, err)
		return fmt.Errorf("write poll %s: %w", poll.ID, err)
	}
	return nil
}

// Get reads a poll's metadata.
func (r *PollRepository) Get(id string) (model.Poll, error) {
	dir, err := r.pollDir(id)
	if err != nil {
		return model.Poll{}, err
	}
	data, err := os.ReadFile(filepath.Join(dir, r.MetadataFile))
	if errors.Is(err, fs.ErrNotExist) {
		return model.Poll{}, model.ErrNotFound
	}
	if err != nil {
		return model.Poll{}, fmt.Errorf("read poll %s: %w", id, err)
	}
	var poll model.Poll
	if err := json.Unmarshal(data, &poll); err != nil {
		return model.Poll{}, fmt.Errorf("decode poll %s: %w", id, err)
	}
	poll.ID = id
	return poll, nil
}

// Append writes one entry as a single line at the end of the poll's log.
func (r *PollRepository) Append(id string, entry model.Entry) error {
	dir, err := r.pollDir(id)
	if err != nil {
		return err
	}
	line, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode entry: %w", err)
	}
	line = append(line, '\n')

	f, err := os.OpenFile(filepath.Join(dir, r.LogFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if errors.Is(err, fs.ErrNotExist) {
		return model.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("open log for poll %s: %w", id, err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("append to poll %s: %w", id, err)
	}
	return f.Close()
}

// Entries returns the poll's log in insertion order. A missing log is an
// empty one; lines that do not parse are skipped.
func (r *PollRepository) Entries(id string) ([]model.Entry, error) {
	dir, err := r.pollDir(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, r.LogFile))
	if errors.Is(err, fs.ErrNotExist) {
		return []model.Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read log for poll %s: %w", id, err)
	}
	return ParseEntries(data), nil
}

// ParseEntries decodes newline-delimited entries, dropping malformed lines.
func ParseEntries(data []byte) []model.Entry {
	entries := []model.Entry{}
	for _, line := range bytes.Split(data, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		var entry model.Entry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		if entry.Element == "" && entry.Responder == "" {
			continue
		}
		entries = append(entries, entry)
	}
	return entries
}

// IDs lists the poll directories. Entries that are not poll identifiers are
// left out. A missing data directory yields no ids.
func (r *PollRepository) IDs() ([]string, error) {
	dirEntries, err := os.ReadDir(r.Dir)
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read data directory: %w", err)
	}
	ids := make([]string, 0, len(dirEntries))
	for _, e := range dirEntries {
		if !e.IsDir() {
			continue
		}
		if !model.IsID(e.Name()) {
			logger.Sugar.Debugf("Ignoring %s in data directory: not a poll id", e.Name())
			continue
		}
		ids = append(ids, e.Name())
	}
	return ids, nil
}

// List reads every poll's metadata, newest first. Polls whose metadata
// cannot be read are logged and left out.
func (r *PollRepository) List(ctx context.Context) ([]model.Poll, error) {
	ids, err := r.IDs()
	if err != nil {
		return nil, err
	}

	results := make([]*model.Poll, len(ids))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.Concurrency)
	for i, id := range ids {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			poll, err := r.Get(id)
			if err != nil {
				logger.Sugar.Warnf("Skipping poll %s in listing: %v", id, err)
				return nil
			}
			results[i] = &poll
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	polls := make([]model.Poll, 0, len(results))
	for _, p := range results {
		if p != nil {
			polls = append(polls, *p)
		}
	}
	sort.SliceStable(polls, func(i, j int) bool {
		return polls[i].CreatedAt.After(polls[j].CreatedAt)
	})
	return polls, nil
}

// Delete removes the poll directory and everything in it. Deleting a poll
// that does not exist is not an error.
func (r *PollRepository) Delete(id string) error {
	dir, err := r.pollDir(id)
	if err != nil {
		return err
	}
	if err := os.RemoveAll(dir); err != nil {
		logger.Sugar.Errorf("Failed to delete poll %s: %v", id, err)
		return fmt.Errorf("delete poll %s: %w", id, err)
	}
	return nil
}

// Package filestore keeps users and transactions in a single JSON document
// on disk. It is the stand-in backend for local use and tests; every write
// rewrites the whole document.
package filestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"fintrack/models"
	"fintrack/pkg/apperr"
	"fintrack/pkg/store"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

type userRecord struct {
	ID                   uint            `json:"id"`
	Username             string          `json:"username"`
	DisplayName          string          `json:"displayName"`
	Password             string          `json:"password"`
	MonthlyBudget        decimal.Decimal `json:"monthlyBudget"`
	BudgetAlertThreshold int             `json:"budgetAlertThreshold"`
	CreatedAt            time.Time       `json:"createdAt"`
	UpdatedAt            time.Time       `json:"updatedAt"`
}

func (r userRecord) toModel() *models.User {
	return &models.User{
		ID:                   r.ID,
		CreatedAt:            r.CreatedAt,
		UpdatedAt:            r.UpdatedAt,
		Username:             r.Username,
		DisplayName:          r.DisplayName,
		HashedPassword:       []byte(r.Password),
		MonthlyBudget:        r.MonthlyBudget,
		BudgetAlertThreshold: r.BudgetAlertThreshold,
	}
}

type document struct {
	LastUserID        uint                 `json:"lastUserId"`
	LastTransactionID uint                 `json:"lastTransactionId"`
	Users             []userRecord         `json:"users"`
	Transactions      []models.Transaction `json:"transactions"`
}

func (d document) clone() document {
	c := d
	c.Users = append([]userRecord(nil), d.Users...)
	c.Transactions = append([]models.Transaction(nil), d.Transactions...)
	return c
}

// Store is safe for concurrent use. Writers hold the lock across the file
// rewrite so the document on disk always matches memory.
type Store struct {
	path string
	log  zerolog.Logger

	mu  sync.RWMutex
	doc document

	watcher *fsnotify.Watcher
	done    chan struct{}
}

type Option func(*Store)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Store) { s.log = l }
}

var _ store.Store = (*Store)(nil)

// Open loads the document at path, creating it (and its directory) when it
// does not exist yet.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("filestore: empty path")
	}
	s := &Store{path: filepath.Clean(path), log: zerolog.Nop()}
	for _, o := range opts {
		o(s)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return nil, fmt.Errorf("filestore: create dir: %w", err)
	}
	doc, err := readDocument(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist), errors.Is(err, errEmptyDocument):
		s.doc = document{Users: []userRecord{}, Transactions: []models.Transaction{}}
		if err := s.flush(); err != nil {
			return nil, fmt.Errorf("filestore: init %s: %w", s.path, err)
		}
	case err != nil:
		return nil, fmt.Errorf("filestore: load %s: %w", s.path, err)
	default:
		s.doc = doc
	}
	return s, nil
}

var errEmptyDocument = errors.New("empty document")

func readDocument(path string) (document, error) {
	var doc document
	b, err := os.ReadFile(path)
	if err != nil {
		return doc, err
	}
	if len(strings.TrimSpace(string(b))) == 0 {
		return doc, errEmptyDocument
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return doc, err
	}
	// documents edited by hand may lack the counters
	for _, u := range doc.Users {
		if u.ID > doc.LastUserID {
			doc.LastUserID = u.ID
		}
	}
	for _, t := range doc.Transactions {
		if t.ID > doc.LastTransactionID {
			doc.LastTransactionID = t.ID
		}
	}
	return doc, nil
}

// flush writes the document through a temp file and rename. Caller holds mu.
func (s *Store) flush() error {
	b, err := json.MarshalIndent(s.doc, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".fintrack-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, s.path)
}

// errUnchanged tells mutate that fn found nothing to modify.
var errUnchanged = errors.New("unchanged")

// mutate applies fn and persists the result, restoring the previous state
// when either step fails.
func (s *Store) mutate(op string, fn func(doc *document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.doc.clone()
	if err := fn(&s.doc); err != nil {
		s.doc = prev
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}
	if err := s.flush(); err != nil {
		s.doc = prev
		return apperr.StorageErr(op, err)
	}
	return nil
}

func (s *Store) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.doc.Users {
		if u.Username == username {
			return u.toModel(), nil
		}
	}
	return nil, nil
}

func (s *Store) FindUserByID(_ context.Context, id uint) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.doc.Users {
		if u.ID == id {
			return u.toModel(), nil
		}
	}
	return nil, nil
}

func (s *Store) InsertUser(_ context.Context, u *models.User) error {
	return s.mutate("insert user", func(doc *document) error {
		for _, existing := range doc.Users {
			if existing.Username == u.Username {
				return apperr.New(apperr.Conflict, "username already exists")
			}
		}
		now := time.Now().UTC()
		doc.LastUserID++
		u.ID = doc.LastUserID
		u.CreatedAt, u.UpdatedAt = now, now
		doc.Users = append(doc.Users, userRecord{
			ID:                   u.ID,
			Username:             u.Username,
			DisplayName:          u.DisplayName,
			Password:             string(u.HashedPassword),
			MonthlyBudget:        u.MonthlyBudget,
			BudgetAlertThreshold: u.BudgetAlertThreshold,
			CreatedAt:            u.CreatedAt,
			UpdatedAt:            u.UpdatedAt,
		})
		return nil
	})
}

func (s *Store) UpdateUser(_ context.Context, id uint, upd store.UserUpdate) (*models.User, error) {
	var updated *models.User
	err := s.mutate("update user", func(doc *document) error {
		for i := range doc.Users {
			r := &doc.Users[i]
			if r.ID != id {
				continue
			}
			if upd.MonthlyBudget != nil {
				r.MonthlyBudget = *upd.MonthlyBudget
			}
			if upd.BudgetAlertThreshold != nil {
				r.BudgetAlertThreshold = *upd.BudgetAlertThreshold
			}
			if upd.HashedPassword != nil {
				r.Password = string(upd.HashedPassword)
			}
			r.UpdatedAt = time.Now().UTC()
			updated = r.toModel()
			return nil
		}
		return errUnchanged
	})
	return updated, err
}

func (s *Store) FindTransactions(_ context.Context, ownerID uint, f store.Filter) ([]models.Transaction, error) {
	s.mu.RLock()
	out := make([]models.Transaction, 0)
	for i := range s.doc.Transactions {
		t := &s.doc.Transactions[i]
		if t.UserID == ownerID && f.Match(t) {
			out = append(out, *t)
		}
	}
	s.mu.RUnlock()
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *Store) FindTransaction(_ context.Context, ownerID, id uint) (*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.doc.Transactions {
		if t.ID == id && t.UserID == ownerID {
			found := t
			return &found, nil
		}
	}
	return nil, nil
}

func (s *Store) InsertTransaction(_ context.Context, t *models.Transaction) error {
	return s.mutate("insert transaction", func(doc *document) error {
		now := time.Now().UTC()
		doc.LastTransactionID++
		t.ID = doc.LastTransactionID
		t.CreatedAt, t.UpdatedAt = now, now
		doc.Transactions = append(doc.Transactions, *t)
		return nil
	})
}

func (s *Store) UpdateTransaction(_ context.Context, ownerID, id uint, fields store.TransactionFields) (*models.Transaction, error) {
	var updated *models.Transaction
	err := s.mutate("update transaction", func(doc *document) error {
		for i := range doc.Transactions {
			t := &doc.Transactions[i]
			if t.ID != id || t.UserID != ownerID {
				continue
			}
			t.Title = fields.Title
			t.Amount = fields.Amount
			t.Type = fields.Type
			t.Category = fields.Category
			t.Date = fields.Date
			t.UpdatedAt = time.Now().UTC()
			cp := *t
			updated = &cp
			return nil
		}
		return errUnchanged
	})
	return updated, err
}

func (s *Store) DeleteTransaction(_ context.Context, ownerID, id uint) (bool, error) {
	deleted := false
	err := s.mutate("delete transaction", func(doc *document) error {
		for i, t := range doc.Transactions {
			if t.ID == id && t.UserID == ownerID {
				doc.Transactions = append(doc.Transactions[:i], doc.Transactions[i+1:]...)
				deleted = true
				return nil
			}
		}
		return errUnchanged
	})
	return deleted, err
}

// Close stops the file watcher, if any.
func (s *Store) Close() error {
	if s.watcher == nil {
		return nil
	}
	err := s.watcher.Close()
	<-s.done
	s.watcher = nil
	return err
}

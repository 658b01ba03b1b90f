package imports

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xelth-com/eckcutgo/internal/config"
	"github.com/xelth-com/eckcutgo/internal/importer"
	"github.com/xelth-com/eckcutgo/internal/metrics"
	"github.com/xelth-com/eckcutgo/internal/services/printer"
	"github.com/xelth-com/eckcutgo/internal/store"
)

const defaultSessionTTL = 30 * time.Minute

var (
	ErrSessionNotFound = errors.New("import session not found or expired")
	ErrEmptyImport     = errors.New("import contains no products")
)

// Session is a parsed export waiting for the user's selection
type Session struct {
	ID        string               `json:"sessionId"`
	FileName  string               `json:"fileName,omitempty"`
	CreatedAt time.Time            `json:"createdAt"`
	ExpiresAt time.Time            `json:"expiresAt"`
	Data      *importer.ImportData `json:"data"`
}

// Service runs the two-step import: parse into a session, then convert a selection
type Service struct {
	store     store.Store
	builder   *importer.TreeBuilder
	converter *importer.Converter
	config    config.ImportConfig
	labels    printer.LabelConfig
	log       *zap.Logger
	now       func() time.Time

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewService creates the import service. Field mapping overrides are read
// from cfg.Import.FieldMapFile when set.
func NewService(st store.Store, cfg *config.Config, categorizer importer.Categorizer, log *zap.Logger) (*Service, error) {
	var overrides importer.FieldMappings
	if cfg.Import.FieldMapFile != "" {
		var err error
		if overrides, err = importer.LoadFieldMappings(cfg.Import.FieldMapFile); err != nil {
			return nil, err
		}
		log.Info("Field map overrides loaded", zap.String("file", cfg.Import.FieldMapFile))
	}

	labels := printer.DefaultLabelConfig()
	if cfg.Labels.Cols > 0 {
		labels.Cols = cfg.Labels.Cols
	}
	if cfg.Labels.Rows > 0 {
		labels.Rows = cfg.Labels.Rows
	}

	importCfg := cfg.Import
	if importCfg.SessionTTL <= 0 {
		importCfg.SessionTTL = defaultSessionTTL
	}

	fields := importer.NewFieldResolver(log, overrides)
	return &Service{
		store:     st,
		builder:   importer.NewTreeBuilder(fields, log),
		converter: importer.NewConverter(st, categorizer, log),
		config:    importCfg,
		labels:    labels,
		log:       log,
		now:       time.Now,
		sessions:  make(map[string]*Session),
	}, nil
}

// Parse builds the import tree of a bundle and keeps it in a new session
func (s *Service) Parse(bundle *importer.Bundle, fileName string) (*Session, error) {
	if bundle == nil || bundle.Empty() {
		return nil, ErrEmptyImport
	}
	data := s.builder.Build(bundle)

	now := s.now()
	session := &Session{
		ID:        uuid.NewString(),
		FileName:  fileName,
		CreatedAt: now,
		ExpiresAt: now.Add(s.config.SessionTTL),
		Data:      data,
	}

	s.mu.Lock()
	s.evictExpired(now)
	s.sessions[session.ID] = session
	metrics.ImportSessionsActive.Set(float64(len(s.sessions)))
	s.mu.Unlock()

	s.log.Info("Import parsed",
		zap.String("session_id", session.ID),
		zap.String("file", fileName),
		zap.Any("counts", data.Counts()),
		zap.Int("warnings", len(data.Warnings)))
	return session, nil
}

// ParseWorkbook loads an exported workbook and parses it
func (s *Service) ParseWorkbook(r io.Reader, fileName string) (*Session, error) {
	bundle, err := importer.LoadWorkbook(r)
	if err != nil {
		return nil, err
	}
	return s.Parse(bundle, fileName)
}

// Get returns a live session
func (s *Service) Get(id string) (*Session, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || !s.now().Before(session.ExpiresAt) {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Convert persists the selection of a session. A successful conversion ends the session.
func (s *Service) Convert(ctx context.Context, sessionID string, req importer.SelectionRequest) (*importer.ConversionResult, error) {
	session, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if s.config.AllowDuplicates {
		req.AllowDuplicates = true
	}

	result := s.converter.Convert(ctx, session.Data, req)
	if result.Success {
		s.mu.Lock()
		delete(s.sessions, sessionID)
		metrics.ImportSessionsActive.Set(float64(len(s.sessions)))
		s.mu.Unlock()
	}
	return result, nil
}

// ConvertAll persists every entity of the data under the given name
func (s *Service) ConvertAll(ctx context.Context, data *importer.ImportData, name string, allowDuplicates bool) *importer.ConversionResult {
	return s.converter.Convert(ctx, data, importer.SelectionRequest{
		WorkOrderName:   name,
		SelectedItems:   importer.SelectAll(data),
		AllowDuplicates: allowDuplicates || s.config.AllowDuplicates,
	})
}

// Build parses a bundle without opening a session
func (s *Service) Build(bundle *importer.Bundle) *importer.ImportData {
	return s.builder.Build(bundle)
}

// Labels renders the nest sheet labels of a persisted work order
func (s *Service) Labels(ctx context.Context, workOrderID string) ([]byte, error) {
	wo, err := s.store.LoadWorkOrder(ctx, workOrderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load work order %s: %w", workOrderID, err)
	}
	return printer.GenerateNestSheetLabels(wo, s.labels)
}

// Cleanup drops expired sessions and returns how many were removed
func (s *Service) Cleanup() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := s.evictExpired(s.now())
	metrics.ImportSessionsActive.Set(float64(len(s.sessions)))
	return removed
}

// RunJanitor calls Cleanup every interval until ctx is done
func (s *Service) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Cleanup(); n > 0 {
				s.log.Debug("Expired import sessions removed", zap.Int("count", n))
			}
		}
	}
}

// evictExpired must be called with mu held
func (s *Service) evictExpired(now time.Time) int {
	removed := 0
	for id, session := range s.sessions {
		if !now.Before(session.ExpiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

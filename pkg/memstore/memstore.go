// Package memstore is an in-memory implementation of the identity, embedding,
// review and report stores, used by tests and local runs without PostgreSQL.
package memstore

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectolinq"
	"github.com/google/uuid"

	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/normalizers"
)

// Store bundles the four in-memory stores
type Store struct {
	Players       *Players
	Embeddings    *Embeddings
	PendingLinks  *PendingLinks
	ReportPlayers *ReportPlayers
}

// New creates an empty store
func New() *Store {
	players := &Players{byID: make(map[string]*models.Player)}
	return &Store{
		Players:       players,
		Embeddings:    &Embeddings{players: players, byOwner: make(map[string]models.IdentityEmbedding)},
		PendingLinks:  &PendingLinks{byID: make(map[string]*models.PendingLink)},
		ReportPlayers: &ReportPlayers{byReport: make(map[string][]models.ReportPlayer)},
	}
}

// =============================================================================
// Players
// =============================================================================

// Players is the in-memory identity store
type Players struct {
	mu   sync.RWMutex
	byID map[string]*models.Player
}

func (s *Players) Get(_ context.Context, id string) (*models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.byID[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("player %s not found", id))
	}
	clone := *p
	return &clone, nil
}

func (s *Players) FindBySourceID(_ context.Context, sourceID string) (*models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.sorted() {
		if p.SourceID != nil && *p.SourceID == sourceID {
			return &p, nil
		}
	}
	return nil, nil
}

func (s *Players) FindByExactKey(_ context.Context, name, team string, classYear int) (*models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p := s.findKey(normalizers.NameKey(name), normalizers.TeamKey(team), classYear); p != nil {
		clone := *p
		return &clone, nil
	}
	return nil, nil
}

func (s *Players) ListCandidates(_ context.Context, filter models.CandidateFilter) ([]models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return ectolinq.Filter(s.sorted(), func(p models.Player) bool {
		if filter.TeamKey != nil && p.TeamKey != *filter.TeamKey {
			return false
		}
		return filter.Position == nil || (p.Position != nil && *p.Position == *filter.Position)
	}), nil
}

func (s *Players) ListAll(_ context.Context, afterID string, limit int) ([]models.Player, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Player
	for _, p := range s.sorted() {
		if afterID != "" && p.ID <= afterID {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Upsert mirrors the SQL merge: null incoming fields keep stored values
func (s *Players) Upsert(_ context.Context, req *models.UpsertPlayerRequest) (*models.Player, error) {
	first, last := normalizers.SplitName(req.Name)
	if first == "" {
		return nil, &models.InvalidMentionError{Reason: "name is empty"}
	}
	team := normalizers.CollapseWhitespace(req.Team)
	if team == "" {
		return nil, httperror.NewHTTPError(http.StatusBadRequest, "team is required")
	}

	var position *string
	if req.Position != nil {
		if p := normalizers.Position(*req.Position); p != "" {
			position = &p
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	nameKey := normalizers.NameKey(req.Name)
	teamKey := normalizers.TeamKey(team)

	if existing := s.findKey(nameKey, teamKey, req.ClassYear); existing != nil {
		changed := merge(&existing.Position, position)
		changed = merge(&existing.Hometown, req.Hometown) || changed
		changed = merge(&existing.SourceSystem, req.SourceSystem) || changed
		changed = merge(&existing.SourceID, req.SourceID) || changed
		if changed {
			existing.UpdatedAt = now
		}
		clone := *existing
		return &clone, nil
	}

	p := &models.Player{
		ID:           uuid.New().String(),
		FirstName:    first,
		LastName:     last,
		NameKey:      nameKey,
		Team:         team,
		TeamKey:      teamKey,
		Position:     position,
		ClassYear:    req.ClassYear,
		Hometown:     copyPtr(req.Hometown),
		SourceSystem: copyPtr(req.SourceSystem),
		SourceID:     copyPtr(req.SourceID),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	s.byID[p.ID] = p

	clone := *p
	return &clone, nil
}

// Len returns the number of stored players
func (s *Players) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *Players) findKey(nameKey, teamKey string, classYear int) *models.Player {
	for _, p := range s.byID {
		if p.NameKey == nameKey && p.TeamKey == teamKey && p.ClassYear == classYear {
			return p
		}
	}
	return nil
}

// sorted returns copies ordered by id. Callers hold the lock.
func (s *Players) sorted() []models.Player {
	out := make([]models.Player, 0, len(s.byID))
	for _, p := range s.byID {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func merge(stored **string, incoming *string) bool {
	if incoming == nil {
		return false
	}
	if *stored != nil && **stored == *incoming {
		return false
	}
	*stored = copyPtr(incoming)
	return true
}

func copyPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// =============================================================================
// Embeddings
// =============================================================================

// Embeddings is the in-memory embedding store and cosine index
type Embeddings struct {
	mu      sync.RWMutex
	players *Players
	byOwner map[string]models.IdentityEmbedding
}

func (s *Embeddings) Get(_ context.Context, ownerID string) (*models.IdentityEmbedding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.byOwner[ownerID]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *Embeddings) Replace(_ context.Context, embedding *models.IdentityEmbedding) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	embedding.CreatedAt = time.Now().UTC()
	stored := *embedding
	stored.Vector = append([]float32(nil), embedding.Vector...)
	s.byOwner[embedding.OwnerID] = stored
	return nil
}

// Nearest ranks every stored embedding by cosine similarity
func (s *Embeddings) Nearest(ctx context.Context, vector []float32, k int) ([]models.SimilarIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]models.SimilarIdentity, 0, len(s.byOwner))
	for ownerID, e := range s.byOwner {
		p, err := s.players.Get(ctx, ownerID)
		if err != nil {
			continue
		}
		results = append(results, models.SimilarIdentity{
			Player:       *p,
			IdentityText: e.IdentityText,
			TeamKey:      e.TeamKey,
			Similarity:   CosineSimilarity(vector, e.Vector),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Similarity != results[j].Similarity {
			return results[i].Similarity > results[j].Similarity
		}
		return results[i].Player.ID < results[j].Player.ID
	})
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Len returns the number of stored embeddings
func (s *Embeddings) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byOwner)
}

// CosineSimilarity returns 0 for mismatched or zero vectors
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// =============================================================================
// Pending links
// =============================================================================

// PendingLinks is the in-memory review queue
type PendingLinks struct {
	mu   sync.Mutex
	byID map[string]*models.PendingLink
	seq  int64
	seen map[string]int64
}

func (s *PendingLinks) Enqueue(_ context.Context, link *models.PendingLink) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seen == nil {
		s.seen = make(map[string]int64)
	}
	s.seq++

	link.ID = uuid.New().String()
	link.Status = models.PendingLinkStatusPending
	link.CreatedAt = time.Now().UTC()
	link.ReviewedAt = nil

	stored := *link
	s.byID[link.ID] = &stored
	s.seen[link.ID] = s.seq
	return link.ID, nil
}

func (s *PendingLinks) Get(_ context.Context, id string) (*models.PendingLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.byID[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("pending link %s not found", id))
	}
	clone := *link
	return &clone, nil
}

// List returns links newest first. limit is clamped to 1..500, default 100.
func (s *PendingLinks) List(_ context.Context, status *models.PendingLinkStatus, limit int) ([]models.PendingLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case limit < 1:
		limit = 100
	case limit > 500:
		limit = 500
	}

	all := make([]models.PendingLink, 0, len(s.byID))
	for _, link := range s.byID {
		all = append(all, *link)
	}
	out := ectolinq.Filter(all, func(link models.PendingLink) bool {
		return status == nil || link.Status == *status
	})
	sort.Slice(out, func(i, j int) bool { return s.seen[out[i].ID] > s.seen[out[j].ID] })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *PendingLinks) SetStatus(_ context.Context, id string, status models.PendingLinkStatus) (*models.PendingLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	link, ok := s.byID[id]
	if !ok {
		return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("pending link %s not found", id))
	}
	if link.Status != models.PendingLinkStatusPending ||
		(status != models.PendingLinkStatusApproved && status != models.PendingLinkStatusRejected) {
		return nil, &models.InvalidTransitionError{ID: id, From: link.Status, To: status}
	}

	now := time.Now().UTC()
	link.Status = status
	link.ReviewedAt = &now

	clone := *link
	return &clone, nil
}

// =============================================================================
// Report players
// =============================================================================

// ReportPlayers records report attachments
type ReportPlayers struct {
	mu       sync.Mutex
	byReport map[string][]models.ReportPlayer
}

func (s *ReportPlayers) Attach(_ context.Context, link *models.ReportPlayer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.byReport[link.ReportID] {
		if existing.PlayerID == link.PlayerID {
			return nil
		}
	}
	link.CreatedAt = time.Now().UTC()
	s.byReport[link.ReportID] = append(s.byReport[link.ReportID], *link)
	return nil
}

func (s *ReportPlayers) ListByReport(_ context.Context, reportID string) ([]models.ReportPlayer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]models.ReportPlayer(nil), s.byReport[reportID]...), nil
}

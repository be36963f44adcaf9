// Package memstore is an in-memory implementation of the repository interfaces,
// used by tests and by the "memory" storage driver for local development.
// One mutex guards every collection, so pairing and account deletion are atomic
// exactly like their transactional Postgres counterparts.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"closer-backend/internal/models"
	"closer-backend/internal/repository"
)

// Store holds all collections behind one lock
type Store struct {
	mu        sync.RWMutex
	now       func() time.Time
	users     map[string]models.User
	moods     map[string]models.Mood   // userID|day
	answers   map[string]models.Answer // userID|questionID|day
	questions map[string]models.Question
	memories  map[string]models.Memory
	seq       int64 // insertion order for memories created in the same instant
	order     map[string]int64
}

type (
	userRepo     struct{ s *Store }
	accountRepo  struct{ s *Store }
	moodRepo     struct{ s *Store }
	answerRepo   struct{ s *Store }
	questionRepo struct{ s *Store }
	memoryRepo   struct{ s *Store }
)

var (
	_ repository.UserRepository     = userRepo{}
	_ repository.AccountRepository  = accountRepo{}
	_ repository.MoodRepository     = moodRepo{}
	_ repository.AnswerRepository   = answerRepo{}
	_ repository.QuestionRepository = questionRepo{}
	_ repository.MemoryRepository   = memoryRepo{}
)

// New creates an empty store
func New() *Store {
	return &Store{
		now:       time.Now,
		users:     make(map[string]models.User),
		moods:     make(map[string]models.Mood),
		answers:   make(map[string]models.Answer),
		questions: make(map[string]models.Question),
		memories:  make(map[string]models.Memory),
		order:     make(map[string]int64),
	}
}

// NewRepositories returns a repository bundle backed by a fresh in-memory store
func NewRepositories() *repository.Store {
	return New().Repositories()
}

// Repositories exposes the store through the repository bundle
func (s *Store) Repositories() *repository.Store {
	return &repository.Store{
		Users:     userRepo{s},
		Accounts:  accountRepo{s},
		Moods:     moodRepo{s},
		Answers:   answerRepo{s},
		Questions: questionRepo{s},
		Memories:  memoryRepo{s},
	}
}

// Users

func (r userRepo) Create(_ context.Context, user *models.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == user.Email {
			return models.ErrDuplicateEmail
		}
	}
	user.UpdatedAt = user.CreatedAt
	s.users[user.ID] = cloneUser(*user)
	return nil
}

func (r userRepo) DeleteUnverified(_ context.Context, id string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if u, ok := s.users[id]; ok && !u.IsVerified {
		delete(s.users, id)
	}
	return nil
}

func (r userRepo) PurgeUnverified(_ context.Context, cutoff time.Time) (int64, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for id, u := range s.users {
		if !u.IsVerified && u.CreatedAt.Before(cutoff) {
			delete(s.users, id)
			n++
		}
	}
	return n, nil
}

func (r userRepo) GetByID(_ context.Context, id string) (*models.User, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, models.ErrUserNotFound
	}
	out := cloneUser(u)
	return &out, nil
}

func (r userRepo) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			out := cloneUser(u)
			return &out, nil
		}
	}
	return nil, models.ErrUserNotFound
}

func (r userRepo) ConsumeVerifyToken(_ context.Context, token string) (*models.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, u := range s.users {
		if u.EmailVerifyToken != nil && *u.EmailVerifyToken == token {
			u.IsVerified = true
			u.EmailVerifyToken = nil
			u.UpdatedAt = s.now()
			s.users[id] = u
			out := cloneUser(u)
			return &out, nil
		}
	}
	return nil, models.ErrInvalidToken
}

func (r userRepo) InviteCodeExists(_ context.Context, code string) (bool, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.holderOf(code)
	return ok, nil
}

func (r userRepo) SetInviteCode(_ context.Context, userID, code string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return models.ErrUserNotFound
	}
	if u.IsPaired() {
		return models.ErrAlreadyPaired
	}
	if holder, taken := s.holderOf(code); taken && holder != userID {
		return repository.ErrInviteCodeTaken
	}
	u.InviteCode = strPtr(code)
	u.UpdatedAt = s.now()
	s.users[userID] = u
	return nil
}

func (r userRepo) Pair(_ context.Context, requesterID, code string) (*models.User, *models.User, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	holderID, ok := s.holderOf(code)
	if !ok {
		return nil, nil, models.ErrInvalidCode
	}
	if holderID == requesterID {
		return nil, nil, models.ErrSelfRedemption
	}
	requester, ok := s.users[requesterID]
	if !ok {
		return nil, nil, models.ErrUserNotFound
	}
	holder := s.users[holderID]
	if requester.IsPaired() || requester.PartnerID != nil {
		return nil, nil, models.ErrAlreadyPaired
	}
	if holder.IsPaired() || holder.PartnerID != nil {
		return nil, nil, models.ErrPairingInvariant
	}

	now := s.now()
	coupleID := holder.ID
	requester.PartnerID, requester.CoupleID, requester.InviteCode = strPtr(holderID), strPtr(coupleID), nil
	holder.PartnerID, holder.CoupleID, holder.InviteCode = strPtr(requesterID), strPtr(coupleID), nil
	requester.UpdatedAt, holder.UpdatedAt = now, now
	s.users[requesterID] = requester
	s.users[holderID] = holder

	a, b := cloneUser(requester), cloneUser(holder)
	return &a, &b, nil
}

// holderOf must be called with s.mu held
func (s *Store) holderOf(code string) (string, bool) {
	for id, u := range s.users {
		if u.InviteCode != nil && *u.InviteCode == code {
			return id, true
		}
	}
	return "", false
}

// Accounts

func (r accountRepo) DeleteAccount(_ context.Context, userID string) (*string, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, models.ErrUserNotFound
	}

	if u.PartnerID != nil {
		partner, ok := s.users[*u.PartnerID]
		if !ok || partner.PartnerID == nil || *partner.PartnerID != userID {
			return nil, models.ErrPairingInvariant
		}
		partner.PartnerID, partner.CoupleID = nil, nil
		partner.UpdatedAt = s.now()
		s.users[partner.ID] = partner
	}

	for k, m := range s.moods {
		if m.UserID == userID {
			delete(s.moods, k)
		}
	}
	for k, a := range s.answers {
		if a.UserID == userID {
			delete(s.answers, k)
		}
	}
	for k, m := range s.memories {
		if m.UserID == userID {
			delete(s.memories, k)
			delete(s.order, k)
		}
	}
	delete(s.users, userID)

	return clonePtr(u.PartnerID), nil
}

// Moods

func (r moodRepo) Upsert(_ context.Context, mood *models.Mood) (*models.Mood, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	key := mood.UserID + "|" + repository.DayKey(mood.Date)
	saved := *mood
	saved.CoupleID = clonePtr(mood.CoupleID)
	saved.UpdatedAt = mood.CreatedAt
	if existing, ok := s.moods[key]; ok {
		saved.ID = existing.ID
		saved.CreatedAt = existing.CreatedAt
	}
	s.moods[key] = saved

	out := saved
	out.CoupleID = clonePtr(saved.CoupleID)
	return &out, nil
}

func (r moodRepo) GetForDay(_ context.Context, userID string, day time.Time) (*models.Mood, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.moods[userID+"|"+repository.DayKey(day)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	m.CoupleID = clonePtr(m.CoupleID)
	return &m, nil
}

// Answers

func (r answerRepo) Upsert(_ context.Context, answer *models.Answer) (*models.Answer, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	key := answer.UserID + "|" + answer.QuestionID + "|" + repository.DayKey(answer.Date)
	saved := *answer
	saved.UpdatedAt = answer.CreatedAt
	if existing, ok := s.answers[key]; ok {
		saved.ID = existing.ID
		saved.CreatedAt = existing.CreatedAt
	}
	s.answers[key] = saved

	out := saved
	return &out, nil
}

func (r answerRepo) GetForDay(_ context.Context, userID string, day time.Time) (*models.Answer, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	dayKey := repository.DayKey(day)
	var latest *models.Answer
	for _, a := range s.answers {
		if a.UserID != userID || repository.DayKey(a.Date) != dayKey {
			continue
		}
		if latest == nil || a.UpdatedAt.After(latest.UpdatedAt) {
			a := a
			latest = &a
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return latest, nil
}

// Questions

func (r questionRepo) ListActive(_ context.Context) ([]models.Question, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Question
	for _, q := range s.questions {
		if q.IsActive {
			out = append(out, q)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func (r questionRepo) GetByID(_ context.Context, id string) (*models.Question, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	q, ok := s.questions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &q, nil
}

func (r questionRepo) Sync(_ context.Context, questions []models.Question) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	byPosition := make(map[int]string, len(s.questions))
	for id, q := range s.questions {
		byPosition[q.Position] = id
	}
	keep := make(map[int]bool, len(questions))
	for _, q := range questions {
		if id, ok := byPosition[q.Position]; ok {
			q.ID = id
		}
		s.questions[q.ID] = q
		keep[q.Position] = true
	}
	for id, q := range s.questions {
		if !keep[q.Position] {
			q.IsActive = false
			s.questions[id] = q
		}
	}
	return nil
}

// Memories

func (r memoryRepo) Create(_ context.Context, memory *models.Memory) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	m := *memory
	m.PhotoURL = clonePtr(memory.PhotoURL)
	m.AuthorEmail = ""
	s.seq++
	s.memories[m.ID] = m
	s.order[m.ID] = s.seq
	return nil
}

func (r memoryRepo) ListByCouple(_ context.Context, coupleID string, limit, offset int) ([]models.Memory, int, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	var all []models.Memory
	for _, m := range s.memories {
		if m.CoupleID != coupleID {
			continue
		}
		m.PhotoURL = clonePtr(m.PhotoURL)
		if author, ok := s.users[m.UserID]; ok {
			m.AuthorEmail = author.Email
		}
		all = append(all, m)
	}
	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return s.order[all[i].ID] > s.order[all[j].ID]
	})

	total := len(all)
	if offset < 0 || offset >= total {
		return nil, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (r memoryRepo) DeleteOwned(_ context.Context, id, userID string) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	m, ok := s.memories[id]
	if !ok || m.UserID != userID {
		return models.ErrMemoryNotFound
	}
	delete(s.memories, id)
	delete(s.order, id)
	return nil
}

func cloneUser(u models.User) models.User {
	u.EmailVerifyToken = clonePtr(u.EmailVerifyToken)
	u.InviteCode = clonePtr(u.InviteCode)
	u.PartnerID = clonePtr(u.PartnerID)
	u.CoupleID = clonePtr(u.CoupleID)
	return u
}

func clonePtr(p *string) *string {
	if p == nil {
		return nil
	}
	return strPtr(*p)
}

func strPtr(s string) *string {
	return &s
}

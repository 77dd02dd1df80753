package storage

import (
	"context"
	"sort"
	"sync"

	"JournalEngine/internal/domain"
	"JournalEngine/internal/ports"
)

// MemStore is the zero-configuration Store: everything lives in process
// memory behind one RWMutex. It backs tests and DSN-less deployments.
type MemStore struct {
	mu            sync.RWMutex
	articles      map[uint64]domain.Article
	profiles      map[domain.Principal]domain.Profile
	notifications map[uint64]domain.Notification

	nextArticleID      uint64
	nextNotificationID uint64
	version            uint64
}

var _ ports.Store = (*MemStore)(nil)

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		articles:      make(map[uint64]domain.Article),
		profiles:      make(map[domain.Principal]domain.Profile),
		notifications: make(map[uint64]domain.Notification),
	}
}

// GetArticle returns a deep copy of the article.
func (s *MemStore) GetArticle(ctx context.Context, id uint64) (domain.Article, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.articles[id]
	if !ok {
		return domain.Article{}, domain.Errorf(domain.KindNotFound, "article %d not found", id)
	}
	return a.Clone(), nil
}

func (s *MemStore) ListArticles(ctx context.Context) ([]domain.Article, uint64, error) {
	return s.listArticles(func(domain.Article) bool { return true })
}

func (s *MemStore) ListArticlesByAuthor(ctx context.Context, author domain.Principal) ([]domain.Article, uint64, error) {
	return s.listArticles(func(a domain.Article) bool { return a.Author == author })
}

func (s *MemStore) ListReviewTasks(ctx context.Context, reviewer domain.Principal) ([]domain.Article, uint64, error) {
	return s.listArticles(func(a domain.Article) bool { return a.PendingActionBy(reviewer) })
}

func (s *MemStore) ListPublishedArticles(ctx context.Context) ([]domain.Article, uint64, error) {
	return s.listArticles(func(a domain.Article) bool { return a.Status == domain.StatusPublished })
}

func (s *MemStore) listArticles(keep func(domain.Article) bool) ([]domain.Article, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Article, 0, len(s.articles))
	for _, a := range s.articles {
		if keep(a) {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, s.version, nil
}

func (s *MemStore) GetProfile(ctx context.Context, principal domain.Principal) (domain.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[principal]
	if !ok {
		return domain.Profile{}, domain.Errorf(domain.KindNotFound, "profile %s not found", principal)
	}
	return p.Clone(), nil
}

func (s *MemStore) ListProfiles(ctx context.Context) ([]domain.Profile, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Profile, 0, len(s.profiles))
	for _, p := range s.profiles {
		out = append(out, p.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Principal < out[j].Principal })
	return out, s.version, nil
}

// ListNotifications returns the recipient's notifications newest first.
// Notification ids are monotonic, so id order is creation order.
func (s *MemStore) ListNotifications(ctx context.Context, recipient domain.Principal) ([]domain.Notification, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Notification
	for _, n := range s.notifications {
		if n.Recipient == recipient {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, s.version, nil
}

func (s *MemStore) CountUnreadNotifications(ctx context.Context, recipient domain.Principal) (int, uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, n := range s.notifications {
		if n.Recipient == recipient && !n.IsRead {
			count++
		}
	}
	return count, s.version, nil
}

func (s *MemStore) Version(ctx context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version, nil
}

// Update stages all mutations and applies them together with the version
// bump, so a failing closure leaves no trace.
func (s *MemStore) Update(ctx context.Context, fn func(tx ports.UpdateTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		store:    s,
		articles: make(map[uint64]domain.Article),
		profiles: make(map[domain.Principal]domain.Profile),
	}

	if err := fn(tx); err != nil {
		if err == ports.ErrNoChange {
			return nil
		}
		return err
	}

	for id, a := range tx.articles {
		s.articles[id] = a
	}
	for principal, p := range tx.profiles {
		s.profiles[principal] = p
	}
	for _, n := range tx.notifications {
		s.notifications[n.ID] = n
	}
	s.version++
	return nil
}

func (s *MemStore) Close() error { return nil }

// memTx buffers writes until commit. Reads inside the transaction consult the
// buffer first, then the base maps. Id counters advance eagerly; a rolled
// back transaction leaves an id gap, which is fine for monotonic ids.
type memTx struct {
	store         *MemStore
	articles      map[uint64]domain.Article
	profiles      map[domain.Principal]domain.Profile
	notifications []domain.Notification
}

var _ ports.UpdateTx = (*memTx)(nil)

func (tx *memTx) InsertArticle(article *domain.Article) error {
	tx.store.nextArticleID++
	article.ID = tx.store.nextArticleID
	tx.articles[article.ID] = article.Clone()
	return nil
}

func (tx *memTx) SaveArticle(article domain.Article) error {
	if _, staged := tx.articles[article.ID]; !staged {
		if _, ok := tx.store.articles[article.ID]; !ok {
			return domain.Errorf(domain.KindNotFound, "article %d not found", article.ID)
		}
	}
	tx.articles[article.ID] = article.Clone()
	return nil
}

func (tx *memTx) InsertProfile(profile domain.Profile) error {
	if _, staged := tx.profiles[profile.Principal]; staged {
		return domain.Errorf(domain.KindAlreadyRegistered, "profile %s already exists", profile.Principal)
	}
	if _, ok := tx.store.profiles[profile.Principal]; ok {
		return domain.Errorf(domain.KindAlreadyRegistered, "profile %s already exists", profile.Principal)
	}
	tx.profiles[profile.Principal] = profile.Clone()
	return nil
}

func (tx *memTx) getProfile(principal domain.Principal) (domain.Profile, bool) {
	if p, ok := tx.profiles[principal]; ok {
		return p, true
	}
	p, ok := tx.store.profiles[principal]
	return p.Clone(), ok
}

func (tx *memTx) AdjustReviewingCount(principal domain.Principal, delta int) (bool, error) {
	p, ok := tx.getProfile(principal)
	if !ok {
		return false, domain.Errorf(domain.KindNotFound, "profile %s not found", principal)
	}

	p.ReviewingCount += delta
	clamped := p.ReviewingCount < 0
	if clamped {
		p.ReviewingCount = 0
	}
	tx.profiles[principal] = p
	return clamped, nil
}

func (tx *memTx) AddReputation(principal domain.Principal, delta int) error {
	p, ok := tx.getProfile(principal)
	if !ok {
		return domain.Errorf(domain.KindNotFound, "profile %s not found", principal)
	}
	p.Reputation += delta
	tx.profiles[principal] = p
	return nil
}

func (tx *memTx) InsertNotification(notification *domain.Notification) error {
	tx.store.nextNotificationID++
	notification.ID = tx.store.nextNotificationID
	tx.notifications = append(tx.notifications, *notification)
	return nil
}

func (tx *memTx) MarkNotificationsRead(recipient domain.Principal, ids []uint64) (int, error) {
	flipped := 0
	seen := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		n, ok := tx.store.notifications[id]
		if !ok || n.Recipient != recipient || n.IsRead {
			continue
		}
		n.IsRead = true
		tx.notifications = append(tx.notifications, n)
		flipped++
	}
	return flipped, nil
}

package gamification

import (
	"context"
	"sync"
	"time"

	"github.com/benvon/focus-quest/internal/database"
	"github.com/benvon/focus-quest/internal/models"
	"github.com/google/uuid"
)

type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]models.Profile
	// conflicts makes the next N updates fail with ErrOptimisticLock
	conflicts int
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{profiles: map[uuid.UUID]models.Profile{}}
}

func (f *fakeProfiles) GetOrCreate(_ context.Context, userID uuid.UUID) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[userID]
	if !ok {
		p = *models.NewProfile(userID)
		p.Version = 1
		f.profiles[userID] = p
	}
	return &p, nil
}

func (f *fakeProfiles) GetByUserID(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	return f.GetOrCreate(ctx, userID)
}

func (f *fakeProfiles) Update(_ context.Context, p *models.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.conflicts > 0 {
		f.conflicts--
		return database.ErrOptimisticLock
	}
	stored := f.profiles[p.UserID]
	if stored.Version != p.Version {
		return database.ErrOptimisticLock
	}
	p.Version++
	f.profiles[p.UserID] = *p
	return nil
}

type fakeBadges struct {
	mu     sync.Mutex
	byName map[string]*models.Badge
	awards map[[2]uuid.UUID]time.Time
}

func newFakeBadges() *fakeBadges {
	return &fakeBadges{byName: map[string]*models.Badge{}, awards: map[[2]uuid.UUID]time.Time{}}
}

func (f *fakeBadges) GetOrCreate(_ context.Context, name, description, icon string) (*models.Badge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if b, ok := f.byName[name]; ok {
		return b, nil
	}
	b := &models.Badge{ID: uuid.New(), Name: name, Description: description, Icon: icon}
	f.byName[name] = b
	return b, nil
}

func (f *fakeBadges) Award(_ context.Context, userID, badgeID uuid.UUID, at time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := [2]uuid.UUID{userID, badgeID}
	if _, ok := f.awards[key]; ok {
		return false, nil
	}
	f.awards[key] = at
	return true, nil
}

func (f *fakeBadges) List(_ context.Context) ([]*models.Badge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Badge
	for _, b := range f.byName {
		out = append(out, b)
	}
	return out, nil
}

func (f *fakeBadges) ListAwards(_ context.Context, userID uuid.UUID) ([]*models.UserBadge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.UserBadge
	for key, at := range f.awards {
		if key[0] == userID {
			out = append(out, &models.UserBadge{UserID: userID, BadgeID: key[1], AwardedAt: at})
		}
	}
	return out, nil
}

func (f *fakeBadges) count(userID uuid.UUID) int {
	awards, _ := f.ListAwards(context.Background(), userID)
	return len(awards)
}

type mockCounter struct {
	CountCompletedByDifficultyFunc func(ctx context.Context, userID uuid.UUID, difficulty models.Difficulty) (int, error)
	CountCompletedBetweenFunc      func(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error)
}

func (m *mockCounter) CountCompletedByDifficulty(ctx context.Context, userID uuid.UUID, difficulty models.Difficulty) (int, error) {
	if m.CountCompletedByDifficultyFunc != nil {
		return m.CountCompletedByDifficultyFunc(ctx, userID, difficulty)
	}
	return 0, nil
}

func (m *mockCounter) CountCompletedBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) (int, error) {
	if m.CountCompletedBetweenFunc != nil {
		return m.CountCompletedBetweenFunc(ctx, userID, from, to)
	}
	return 0, nil
}

var (
	_ database.ProfileRepositoryInterface = (*fakeProfiles)(nil)
	_ database.BadgeRepositoryInterface   = (*fakeBadges)(nil)
)

package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/benvon/focus-quest/internal/models"
	"github.com/benvon/focus-quest/internal/services/gamification"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

type mockProfileService struct {
	viewFunc    func(ctx context.Context, userID uuid.UUID) (*gamification.ProfileView, error)
	setMoodFunc func(ctx context.Context, userID uuid.UUID, mood models.Mood) (*models.Profile, error)
}

func (m *mockProfileService) GetProfileView(ctx context.Context, userID uuid.UUID) (*gamification.ProfileView, error) {
	return m.viewFunc(ctx, userID)
}

func (m *mockProfileService) SetMood(ctx context.Context, userID uuid.UUID, mood models.Mood) (*models.Profile, error) {
	return m.setMoodFunc(ctx, userID, mood)
}

type relaxFunc func(ctx context.Context) []string

func (f relaxFunc) RelaxSuggestions(ctx context.Context) []string { return f(ctx) }

func profileRouter(p ProfileService, relax RelaxSuggester) *mux.Router {
	r := mux.NewRouter()
	NewProfileHandler(p, relax, nil).RegisterRoutes(r)
	return r
}

func TestProfileHandler_GetProfile(t *testing.T) {
	t.Parallel()

	actor := uuid.New()
	svc := &mockProfileService{
		viewFunc: func(_ context.Context, id uuid.UUID) (*gamification.ProfileView, error) {
			return &gamification.ProfileView{
				Profile:        &models.Profile{UserID: id, Level: 3, XP: 20},
				Title:          "Apprentice",
				XPForNextLevel: 300,
				Badges:         []*models.Badge{},
			}, nil
		},
	}
	w := serve(profileRouter(svc, nil), authed("GET", "/profile", actor, nil))

	var view gamification.ProfileView
	envelope(t, w, &view)
	if view.Profile.UserID != actor || view.Title != "Apprentice" || view.XPForNextLevel != 300 {
		t.Errorf("view = %+v", view)
	}
}

func TestProfileHandler_SetMood(t *testing.T) {
	t.Parallel()

	actor := uuid.New()
	var got models.Mood
	svc := &mockProfileService{
		setMoodFunc: func(_ context.Context, id uuid.UUID, mood models.Mood) (*models.Profile, error) {
			got = mood
			return &models.Profile{UserID: id, Mood: mood}, nil
		},
	}
	router := profileRouter(svc, nil)

	w := serve(router, authed("PUT", "/profile/mood", actor, map[string]string{"mood": "STRESSED"}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if got != models.MoodStressed {
		t.Errorf("mood = %q", got)
	}

	for _, mood := range []string{"ANGRY", ""} {
		w = serve(router, authed("PUT", "/profile/mood", actor, map[string]string{"mood": mood}))
		if w.Code != http.StatusBadRequest {
			t.Errorf("mood %q status = %d, want 400", mood, w.Code)
		}
	}
}

func TestProfileHandler_Relax(t *testing.T) {
	t.Parallel()

	relax := relaxFunc(func(context.Context) []string { return []string{"Stretch", "Drink water"} })
	w := serve(profileRouter(&mockProfileService{}, relax), authed("GET", "/relax", uuid.New(), nil))

	var res map[string][]string
	envelope(t, w, &res)
	if len(res["suggestions"]) != 2 {
		t.Errorf("suggestions = %v", res)
	}
}

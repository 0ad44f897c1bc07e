package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/storyforge-backend/internal/logger"
	"github.com/yungbote/storyforge-backend/internal/types"
)

func mustTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("development")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	t.Cleanup(log.Sync)
	return log
}

// memoryStore mirrors the Redis store's contract: JSON round-trip per write
// so mutations on returned snapshots never leak into stored state.
type memoryStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
}

func newMemoryStore() *memoryStore {
	return &memoryStore{sessions: map[string][]byte{}}
}

func (m *memoryStore) Create(_ context.Context, session *types.StorybookSession) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := uuid.NewString()
	session.SessionID = id
	now := time.Now().UTC()
	session.CreatedAt = now
	session.UpdatedAt = now
	raw, err := json.Marshal(session)
	if err != nil {
		return "", err
	}
	m.sessions[id] = raw
	return id, nil
}

func (m *memoryStore) Get(_ context.Context, sessionID string) (*types.StorybookSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, sessionID)
	}
	var session types.StorybookSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (m *memoryStore) Update(ctx context.Context, sessionID string, mutate func(*types.StorybookSession) error) (*types.StorybookSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrNotFound, sessionID)
	}
	var session types.StorybookSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, err
	}
	if err := mutate(&session); err != nil {
		return nil, err
	}
	session.UpdatedAt = time.Now().UTC()
	next, err := json.Marshal(&session)
	if err != nil {
		return nil, err
	}
	m.sessions[sessionID] = next
	return &session, nil
}

func (m *memoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

func (m *memoryStore) Close() error { return nil }

type fakeImageProvider struct {
	mu    sync.Mutex
	calls int
	fail  bool
}

func (f *fakeImageProvider) GenerateSceneImage(_ context.Context, sessionID string, sceneIndex int, _, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail {
		return "", fmt.Errorf("%w: upstream says no", types.ErrGenerationFailed)
	}
	return fmt.Sprintf("https://cdn.example.com/%s/scene_%d/%d.png", sessionID, sceneIndex+1, f.calls), nil
}

type fakeAssembler struct{}

func (fakeAssembler) Assemble(_ context.Context, session *types.StorybookSession) ([]byte, error) {
	// deterministic bytes per snapshot, like the real renderer
	raw, err := json.Marshal(session)
	if err != nil {
		return nil, err
	}
	return append([]byte("%PDF-fake\n"), raw...), nil
}

func newTestService(t *testing.T, store *memoryStore, images SceneImageProvider) StorybookService {
	t.Helper()
	return NewStorybookService(mustTestLogger(t), store, images, fakeAssembler{}, nil, nil, types.DefaultStyleConfig())
}

func startTestSession(t *testing.T, svc StorybookService, story string) *types.StorybookSession {
	t.Helper()
	session, err := svc.StartSession(context.Background(), StartSessionInput{
		StoryText:     story,
		CharacterDesc: "a brave fox",
		StyleDesc:     "watercolor",
	})
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	return session
}

const threeSentenceStory = "The fox woke at dawn. She crossed the frozen river. At last she found the hidden garden."

func TestStartSessionDefaultsAndSnapshot(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(t, store, &fakeImageProvider{})

	session := startTestSession(t, svc, threeSentenceStory)
	if session.SessionID == "" {
		t.Fatalf("expected a session id")
	}
	if session.Title != "My Storybook" || session.Author != "Anonymous" {
		t.Fatalf("defaults not applied: title=%q author=%q", session.Title, session.Author)
	}
	if len(session.Scenes) == 0 {
		t.Fatalf("expected at least one scene")
	}
	if session.Styles.FontName != "Helvetica" || session.Styles.FontSize != 14 {
		t.Fatalf("unexpected default styles: %+v", session.Styles)
	}

	got, err := svc.GetState(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if len(got.Scenes) != len(session.Scenes) {
		t.Fatalf("stored scene count %d, want %d", len(got.Scenes), len(session.Scenes))
	}
	for i := range got.Scenes {
		if got.Scenes[i].Text != session.Scenes[i].Text {
			t.Fatalf("scene %d text drifted after store round-trip", i)
		}
	}
}

func TestStartSessionRequiresStoryText(t *testing.T) {
	svc := newTestService(t, newMemoryStore(), nil)
	_, err := svc.StartSession(context.Background(), StartSessionInput{StoryText: "   "})
	if !errors.Is(err, types.ErrInvalidInput) {
		t.Fatalf("want ErrInvalidInput, got %v", err)
	}
}

func TestUpdateSceneTextIsolation(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(t, store, nil)
	session := startTestSession(t, svc, "One. Two. Three.")

	before, err := svc.GetState(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if len(before.Scenes) < 1 {
		t.Fatalf("need at least one scene, got %d", len(before.Scenes))
	}

	if err := svc.UpdateSceneText(context.Background(), session.SessionID, 0, "Rewritten opening."); err != nil {
		t.Fatalf("UpdateSceneText: %v", err)
	}

	after, err := svc.GetState(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("GetState: %v", err)
	}
	if after.Scenes[0].Text != "Rewritten opening." {
		t.Fatalf("scene 0 text = %q", after.Scenes[0].Text)
	}
	for i := 1; i < len(after.Scenes); i++ {
		if after.Scenes[i].Text != before.Scenes[i].Text {
			t.Fatalf("scene %d changed unexpectedly", i)
		}
	}
}

func TestUpdateSceneTextOutOfRangeLeavesSessionUnchanged(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(t, store, nil)
	session := startTestSession(t, svc, threeSentenceStory)

	before, _ := svc.GetState(context.Background(), session.SessionID)

	err := svc.UpdateSceneText(context.Background(), session.SessionID, len(before.Scenes), "nope")
	if !errors.Is(err, types.ErrOutOfRange) {
		t.Fatalf("want ErrOutOfRange, got %v", err)
	}
	err = svc.UpdateSceneText(context.Background(), session.SessionID, -1, "nope")
	if !errors.Is(err, types.ErrOutOfRange) {
		t.Fatalf("negative index: want ErrOutOfRange, got %v", err)
	}

	after, _ := svc.GetState(context.Background(), session.SessionID)
	for i := range after.Scenes {
		if after.Scenes[i].Text != before.Scenes[i].Text {
			t.Fatalf("scene %d mutated by failed update", i)
		}
	}
}

func TestRegenerateSceneImageReplacesURL(t *testing.T) {
	store := newMemoryStore()
	images := &fakeImageProvider{}
	svc := newTestService(t, store, images)
	session := startTestSession(t, svc, threeSentenceStory)

	url, err := svc.RegenerateSceneImage(context.Background(), session.SessionID, 0)
	if err != nil {
		t.Fatalf("RegenerateSceneImage: %v", err)
	}
	if url == "" {
		t.Fatalf("expected a url")
	}

	got, _ := svc.GetState(context.Background(), session.SessionID)
	if got.Scenes[0].ImageURL == nil || *got.Scenes[0].ImageURL != url {
		t.Fatalf("stored url = %v, want %q", got.Scenes[0].ImageURL, url)
	}
}

func TestRegenerateFailureLeavesPreviousImage(t *testing.T) {
	store := newMemoryStore()
	images := &fakeImageProvider{}
	svc := newTestService(t, store, images)
	session := startTestSession(t, svc, threeSentenceStory)

	before, _ := svc.GetState(context.Background(), session.SessionID)

	images.fail = true
	_, err := svc.RegenerateSceneImage(context.Background(), session.SessionID, 0)
	if !errors.Is(err, types.ErrGenerationFailed) {
		t.Fatalf("want ErrGenerationFailed, got %v", err)
	}

	after, _ := svc.GetState(context.Background(), session.SessionID)
	switch {
	case before.Scenes[0].ImageURL == nil:
		if after.Scenes[0].ImageURL != nil {
			t.Fatalf("image url appeared despite failed generation")
		}
	case after.Scenes[0].ImageURL == nil || *after.Scenes[0].ImageURL != *before.Scenes[0].ImageURL:
		t.Fatalf("previous image url lost after failed generation")
	}
}

func TestRegenerateOutOfRange(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(t, store, &fakeImageProvider{})
	session := startTestSession(t, svc, threeSentenceStory)

	_, err := svc.RegenerateSceneImage(context.Background(), session.SessionID, 99)
	if !errors.Is(err, types.ErrOutOfRange) {
		t.Fatalf("want ErrOutOfRange, got %v", err)
	}
}

func TestUpdateDetailsRequiresBothFields(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(t, store, nil)
	session := startTestSession(t, svc, threeSentenceStory)

	cases := []struct {
		name   string
		title  string
		author string
		wantOK bool
	}{
		{"both set", "The Fox", "Jamie", true},
		{"missing author", "The Fox", "", false},
		{"missing title", "", "Jamie", false},
		{"both missing", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.UpdateDetails(context.Background(), session.SessionID, tc.title, tc.author)
			if tc.wantOK && err != nil {
				t.Fatalf("UpdateDetails: %v", err)
			}
			if !tc.wantOK && !errors.Is(err, types.ErrInvalidInput) {
				t.Fatalf("want ErrInvalidInput, got %v", err)
			}
		})
	}

	got, _ := svc.GetState(context.Background(), session.SessionID)
	if got.Title != "The Fox" || got.Author != "Jamie" {
		t.Fatalf("details not persisted: title=%q author=%q", got.Title, got.Author)
	}
}

func TestUpdateStylesValidation(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(t, store, nil)
	session := startTestSession(t, svc, threeSentenceStory)

	if err := svc.UpdateStyles(context.Background(), session.SessionID, "Times", 18); err != nil {
		t.Fatalf("UpdateStyles: %v", err)
	}
	got, _ := svc.GetState(context.Background(), session.SessionID)
	if got.Styles.FontName != "Times" || got.Styles.FontSize != 18 {
		t.Fatalf("styles not persisted: %+v", got.Styles)
	}

	err := svc.UpdateStyles(context.Background(), session.SessionID, "Comic Sans", 18)
	if !errors.Is(err, types.ErrInvalidStyle) {
		t.Fatalf("disallowed font: want ErrInvalidStyle, got %v", err)
	}
	err = svc.UpdateStyles(context.Background(), session.SessionID, "Times", 37)
	if !errors.Is(err, types.ErrInvalidStyle) {
		t.Fatalf("oversize font: want ErrInvalidStyle, got %v", err)
	}

	got, _ = svc.GetState(context.Background(), session.SessionID)
	if got.Styles.FontName != "Times" || got.Styles.FontSize != 18 {
		t.Fatalf("failed updates mutated styles: %+v", got.Styles)
	}
}

func TestPreviewIsIdempotentAndNonMutating(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(t, store, nil)
	session := startTestSession(t, svc, threeSentenceStory)

	before, _ := svc.GetState(context.Background(), session.SessionID)

	first, err := svc.Preview(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	second, err := svc.Preview(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("Preview (second): %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("previews of an unchanged session differ")
	}

	after, _ := svc.GetState(context.Background(), session.SessionID)
	if !after.UpdatedAt.Equal(before.UpdatedAt) {
		t.Fatalf("preview mutated the session")
	}
}

func TestFinalizeDeletesSession(t *testing.T) {
	store := newMemoryStore()
	svc := newTestService(t, store, nil)
	session := startTestSession(t, svc, threeSentenceStory)

	pdfBytes, err := svc.Finalize(context.Background(), session.SessionID)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if len(pdfBytes) == 0 {
		t.Fatalf("finalize returned no bytes")
	}

	if _, err := svc.GetState(context.Background(), session.SessionID); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("get after finalize: want ErrNotFound, got %v", err)
	}
	if err := svc.UpdateSceneText(context.Background(), session.SessionID, 0, "ghost"); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("update after finalize: want ErrNotFound, got %v", err)
	}
	if _, err := svc.Preview(context.Background(), session.SessionID); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("preview after finalize: want ErrNotFound, got %v", err)
	}
}

func TestGetStateUnknownSession(t *testing.T) {
	svc := newTestService(t, newMemoryStore(), nil)
	if _, err := svc.GetState(context.Background(), uuid.NewString()); !errors.Is(err, types.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

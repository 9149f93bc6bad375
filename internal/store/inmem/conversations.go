package inmem

import (
	"context"

	"github.com/google/uuid"

	"github.com/convoflow/workflow-engine/internal/store"
)

// Conversations returns the store.Conversations view of this Store.
func (s *Store) Conversations() store.Conversations { return conversationsView{s} }

type conversationsView struct{ s *Store }

func (v conversationsView) EnsureConversation(ctx context.Context, tenantID, participant, channel string) (string, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	key := tenantID + ":" + participant
	if id, ok := v.s.conversations[key]; ok {
		return id, nil
	}
	id := uuid.NewString()
	v.s.conversations[key] = id
	return id, nil
}

func (v conversationsView) StoreMessage(ctx context.Context, conversationID, role, body string) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	v.s.messages[conversationID] = append(v.s.messages[conversationID], message{role: role, body: body})
	return nil
}

var _ store.Conversations = conversationsView{}

// Messages returns the stored (role, body) pairs for a conversation, for
// test assertions.
func (s *Store) Messages(conversationID string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.messages[conversationID]))
	for i, m := range s.messages[conversationID] {
		out[i] = m.body
	}
	return out
}

// BusinessSettings returns the store.BusinessSettings view of this Store.
func (s *Store) BusinessSettings() store.BusinessSettings { return settingsView{s} }

type settingsView struct{ s *Store }

func (v settingsView) Get(ctx context.Context, tenantID string) (map[string]any, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	settings, ok := v.s.settings[tenantID]
	if !ok {
		return map[string]any{}, nil
	}
	return settings, nil
}

// SetBusinessSettings seeds a tenant's business profile for tests.
func (s *Store) SetBusinessSettings(tenantID string, settings map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings[tenantID] = settings
}

var _ store.BusinessSettings = settingsView{}

// KnowledgeDocs returns the store.KnowledgeDocs view of this Store.
func (s *Store) KnowledgeDocs() store.KnowledgeDocs { return knowledgeDocsView{s} }

type knowledgeDocsView struct{ s *Store }

func (v knowledgeDocsView) List(ctx context.Context, tenantID string) ([]store.KnowledgeDoc, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()
	return v.s.docs[tenantID], nil
}

// AddKnowledgeDoc seeds a knowledge-base excerpt for tests.
func (s *Store) AddKnowledgeDoc(tenantID string, doc store.KnowledgeDoc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[tenantID] = append(s.docs[tenantID], doc)
}

var _ store.KnowledgeDocs = knowledgeDocsView{}

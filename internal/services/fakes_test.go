package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/service-auth/service-auth/internal/db/models"
	"github.com/service-auth/service-auth/internal/db/repositories"
)

// In-memory store fakes. They mirror the repository contracts the services
// rely on: not-found returns (nil, nil), duplicate inserts return
// repositories.ErrDuplicate, and Rotate revokes prior active rows.

type fakeClientStore struct {
	clients map[string]*models.Client // by id
}

func newFakeClientStore() *fakeClientStore {
	return &fakeClientStore{clients: make(map[string]*models.Client)}
}

func (f *fakeClientStore) Create(_ context.Context, client *models.Client) error {
	for _, c := range f.clients {
		if c.EmailAddress == client.EmailAddress {
			return repositories.ErrDuplicate
		}
	}
	client.ID = uuid.New().String()
	client.CreatedAt = time.Now()
	client.UpdatedAt = client.CreatedAt
	f.clients[client.ID] = client
	return nil
}

func (f *fakeClientStore) GetByEmail(_ context.Context, email string) (*models.Client, error) {
	for _, c := range f.clients {
		if c.EmailAddress == email {
			return c, nil
		}
	}
	return nil, nil
}

func (f *fakeClientStore) GetByID(_ context.Context, clientID string) (*models.Client, error) {
	return f.clients[clientID], nil
}

func (f *fakeClientStore) MarkEmailVerified(_ context.Context, clientID string) error {
	if c, ok := f.clients[clientID]; ok {
		c.EmailVerified = true
	}
	return nil
}

type fakeUserStore struct {
	users map[string]*models.ServiceUser // by id
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[string]*models.ServiceUser)}
}

func (f *fakeUserStore) Create(_ context.Context, user *models.ServiceUser) error {
	for _, u := range f.users {
		if u.ClientID == user.ClientID && u.Email == user.Email {
			return repositories.ErrDuplicate
		}
	}
	user.ID = uuid.New().String()
	if user.CustomFields == nil {
		user.CustomFields = map[string]any{}
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, clientID, email string) (*models.ServiceUser, error) {
	for _, u := range f.users {
		if u.ClientID == clientID && u.Email == email {
			return u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserStore) GetByID(_ context.Context, clientID, userID string) (*models.ServiceUser, error) {
	u, ok := f.users[userID]
	if !ok || u.ClientID != clientID {
		return nil, nil
	}
	return u, nil
}

func (f *fakeUserStore) MarkEmailVerified(_ context.Context, clientID, userID string) error {
	if u, ok := f.users[userID]; ok && u.ClientID == clientID {
		u.EmailVerified = true
	}
	return nil
}

type fakeTokenStore struct {
	tokens []*models.Token
}

func (f *fakeTokenStore) Create(_ context.Context, token *models.Token) error {
	token.ID = uuid.New().String()
	token.CreatedAt = time.Now()
	f.tokens = append(f.tokens, token)
	return nil
}

func (f *fakeTokenStore) Rotate(ctx context.Context, token *models.Token) error {
	for _, t := range f.tokens {
		if t.UserID == token.UserID && t.ClientID == token.ClientID && t.TokenType == token.TokenType && !t.Revoked {
			t.Revoked = true
		}
	}
	return f.Create(ctx, token)
}

func (f *fakeTokenStore) RevokeByHash(_ context.Context, userID, clientID, tokenHash, tokenType string) (bool, error) {
	for _, t := range f.tokens {
		if t.UserID == userID && t.ClientID == clientID && t.TokenHash == tokenHash && t.TokenType == tokenType && !t.Revoked {
			t.Revoked = true
			return true, nil
		}
	}
	return false, nil
}

// activeFor returns the non-revoked tokens of a type for a subject.
func (f *fakeTokenStore) activeFor(userID, clientID, tokenType string) []*models.Token {
	var out []*models.Token
	for _, t := range f.tokens {
		if t.UserID == userID && t.ClientID == clientID && t.TokenType == tokenType && !t.Revoked {
			out = append(out, t)
		}
	}
	return out
}

type fakeKeyStore struct {
	keys map[string]*models.ServiceAccessKey // by record id
}

func newFakeKeyStore() *fakeKeyStore {
	return &fakeKeyStore{keys: make(map[string]*models.ServiceAccessKey)}
}

func (f *fakeKeyStore) Create(_ context.Context, key *models.ServiceAccessKey) error {
	key.ID = uuid.New().String()
	key.CreatedAt = time.Now()
	key.UpdatedAt = key.CreatedAt
	f.keys[key.ID] = key
	return nil
}

func (f *fakeKeyStore) GetActiveByAccessKeyID(_ context.Context, accessKeyID string) (*models.ServiceAccessKey, error) {
	for _, k := range f.keys {
		if k.AccessKeyID == accessKeyID && k.Active && k.RevokedAt == nil {
			return k, nil
		}
	}
	return nil, nil
}

func (f *fakeKeyStore) GetByAccessKeyIDAndClient(_ context.Context, accessKeyID, clientID string) (*models.ServiceAccessKey, error) {
	for _, k := range f.keys {
		if k.AccessKeyID == accessKeyID && k.ClientID == clientID {
			return k, nil
		}
	}
	return nil, nil
}

func (f *fakeKeyStore) Delete(_ context.Context, id string) error {
	delete(f.keys, id)
	return nil
}

func (f *fakeKeyStore) ListActiveByClient(_ context.Context, clientID string) ([]*models.ServiceAccessKey, error) {
	var out []*models.ServiceAccessKey
	for _, k := range f.keys {
		if k.ClientID == clientID && k.Active && k.RevokedAt == nil {
			out = append(out, k)
		}
	}
	return out, nil
}

type fakeVerificationStore struct {
	tokens map[string]*models.EmailVerificationToken // by id
}

func newFakeVerificationStore() *fakeVerificationStore {
	return &fakeVerificationStore{tokens: make(map[string]*models.EmailVerificationToken)}
}

func (f *fakeVerificationStore) Create(_ context.Context, token *models.EmailVerificationToken) error {
	token.ID = uuid.New().String()
	token.CreatedAt = time.Now()
	f.tokens[token.ID] = token
	return nil
}

func (f *fakeVerificationStore) FindActiveBySubject(_ context.Context, userID, clientID, subjectType string) (*models.EmailVerificationToken, error) {
	for _, t := range f.tokens {
		if t.UserID == userID && t.ClientID == clientID && t.SubjectType == subjectType &&
			!t.Used && t.VerifiedAt == nil && t.ExpiresAt.After(time.Now()) {
			return t, nil
		}
	}
	return nil, nil
}

func (f *fakeVerificationStore) FindUnusedByToken(_ context.Context, token, subjectType string) (*models.EmailVerificationToken, error) {
	for _, t := range f.tokens {
		if t.Token == token && t.SubjectType == subjectType && !t.Used {
			return t, nil
		}
	}
	return nil, nil
}

func (f *fakeVerificationStore) MarkUsed(_ context.Context, id string) error {
	if t, ok := f.tokens[id]; ok {
		now := time.Now()
		t.Used = true
		t.VerifiedAt = &now
	}
	return nil
}

type fakeAuditor struct {
	entries []*models.AuditLog
}

func (f *fakeAuditor) Record(_ context.Context, entry *models.AuditLog) {
	f.entries = append(f.entries, entry)
}

func (f *fakeAuditor) lastAction() string {
	if len(f.entries) == 0 {
		return ""
	}
	return f.entries[len(f.entries)-1].Action
}

type sentMail struct {
	to   string
	link string
	name string
}

type fakeMailer struct {
	sent []sentMail
}

func (f *fakeMailer) SendVerificationEmail(_ context.Context, to, link, name string) error {
	f.sent = append(f.sent, sentMail{to: to, link: link, name: name})
	return nil
}

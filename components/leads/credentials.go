package leads

import (
	"crypto/subtle"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// Credential is one accepted login. Either Password or PasswordHash (bcrypt) is set.
type Credential struct {
	Email        string `json:"email" yaml:"email"`
	Password     string `json:"-" yaml:"password,omitempty"`
	PasswordHash string `json:"-" yaml:"password_hash,omitempty"`
	ID           int    `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Role         string `json:"role" yaml:"role"`
}

// DefaultCredentials is the built-in operator account.
func DefaultCredentials() []Credential {
	return []Credential{{
		Email:    "admin@example.com",
		Password: "password",
		ID:       1,
		Name:     "Admin User",
		Role:     "Administrator",
	}}
}

// CredentialList checks logins against a fixed list that can be swapped at runtime.
type CredentialList struct {
	mu      sync.RWMutex
	entries []Credential
}

// NewCredentialList builds a checker from the given entries.
func NewCredentialList(entries []Credential) *CredentialList {
	list := &CredentialList{}
	list.Replace(entries)
	return list
}

// Replace swaps the accepted credentials.
func (l *CredentialList) Replace(entries []Credential) {
	cp := append([]Credential(nil), entries...)
	l.mu.Lock()
	l.entries = cp
	l.mu.Unlock()
}

// Len reports the number of accepted credentials.
func (l *CredentialList) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Authenticate requires an exact match of both email and password.
func (l *CredentialList) Authenticate(email, password string) (Identity, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, entry := range l.entries {
		if entry.Email != email {
			continue
		}
		if !entry.matches(password) {
			continue
		}
		return entry.identity(), true
	}
	return Identity{}, false
}

func (c Credential) matches(password string) bool {
	if c.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(c.Password), []byte(password)) == 1
}

func (c Credential) identity() Identity {
	name := c.Name
	if strings.TrimSpace(name) == "" {
		name = c.Email
	}
	return Identity{
		ID:    c.ID,
		Email: c.Email,
		Name:  name,
		Role:  c.Role,
	}
}

// HashPassword returns a bcrypt hash suitable for Credential.PasswordHash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

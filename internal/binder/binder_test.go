package binder

import (
	"errors"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zaqqye/gradebot_v1/internal/models"
	"github.com/zaqqye/gradebot_v1/internal/store"
	"github.com/zaqqye/gradebot_v1/internal/utils"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(&models.Group{}, &models.Identity{}, &models.Submission{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store.New(db)
}

func provisionIdentity(t *testing.T, s *store.Store, groupName, name, number, secret string) *models.Identity {
	t.Helper()
	grp, err := s.GetOrCreateGroup(groupName)
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	hash, err := utils.HashPassword(secret)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	identity := &models.Identity{
		DisplayName:  name,
		RosterNumber: &number,
		GroupID:      grp.ID,
		SecretHash:   &hash,
	}
	if err := s.CreateIdentity(identity); err != nil {
		t.Fatalf("identity: %v", err)
	}
	return identity
}

func TestClaimGroup(t *testing.T) {
	s := newTestStore(t)
	b := New(s)

	res, err := b.ClaimGroup("P1", "Alice", "G1")
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if !res.Created {
		t.Fatal("claim should create a fresh identity")
	}
	if !res.Identity.Bound() || *res.Identity.PlatformUserID != "P1" {
		t.Fatalf("identity not bound to P1: %+v", res.Identity)
	}
	if res.Identity.RosterNumber == nil || *res.Identity.RosterNumber == "" {
		t.Fatal("claimed identity should carry a minted roster code")
	}
	if res.Identity.Group.Name != "G1" {
		t.Fatalf("group: got %q, want G1", res.Identity.Group.Name)
	}

	// The same user cannot claim twice, in any group.
	if _, err := b.ClaimGroup("P1", "Alice", "G2"); !errors.Is(err, ErrAlreadyClaimed) {
		t.Fatalf("second claim: got %v, want ErrAlreadyClaimed", err)
	}
}

func TestSecretLoginBindsOnce(t *testing.T) {
	s := newTestStore(t)
	b := New(s)
	provisionIdentity(t, s, "G1", "Alice", "12345678", "abcd")

	res, err := b.SecretLogin("P1", "12345678", "abcd", "G1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.AlreadyBound {
		t.Fatal("first login must be a fresh bind")
	}

	bound, err := s.FindByPlatformID("P1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	firstUpdated := bound.UpdatedAt

	// Same platform id, same credentials: idempotent success, zero writes.
	res, err = b.SecretLogin("P1", "12345678", "abcd", "G1")
	if err != nil {
		t.Fatalf("repeat login: %v", err)
	}
	if !res.AlreadyBound {
		t.Fatal("repeat login should report the existing bind")
	}
	again, err := s.FindByPlatformID("P1")
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !again.UpdatedAt.Equal(firstUpdated) {
		t.Fatalf("updated_at changed on idempotent bind: %v -> %v", firstUpdated, again.UpdatedAt)
	}
}

func TestSecretLoginBoundElsewhere(t *testing.T) {
	s := newTestStore(t)
	b := New(s)
	provisionIdentity(t, s, "G1", "Alice", "12345678", "abcd")

	if _, err := b.SecretLogin("P1", "12345678", "abcd", "G1"); err != nil {
		t.Fatalf("first login: %v", err)
	}
	if _, err := b.SecretLogin("P2", "12345678", "abcd", "G1"); !errors.Is(err, ErrAlreadyBound) {
		t.Fatalf("second login: got %v, want ErrAlreadyBound", err)
	}

	// Store state unchanged: P1 keeps the row, P2 has nothing.
	if _, err := s.FindByPlatformID("P2"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("P2 should stay unbound: %v", err)
	}
}

func TestSecretLoginFailsClosed(t *testing.T) {
	s := newTestStore(t)
	b := New(s)
	provisionIdentity(t, s, "G1", "Alice", "12345678", "abcd")
	provisionIdentity(t, s, "G2", "Bob", "12345678", "wxyz")

	tests := []struct {
		name    string
		number  string
		secret  string
		group   string
		wantErr error
	}{
		{name: "ambiguous without group", number: "12345678", secret: "abcd", wantErr: ErrAmbiguous},
		{name: "wrong secret", number: "12345678", secret: "nope", group: "G1", wantErr: ErrBadSecret},
		{name: "unknown number", number: "00000000", secret: "abcd", group: "G1", wantErr: ErrBadSecret},
		{name: "unknown group", number: "12345678", secret: "abcd", group: "G9", wantErr: ErrBadSecret},
		{name: "scoped login works", number: "12345678", secret: "wxyz", group: "G2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := b.SecretLogin("PX", tt.number, tt.secret, tt.group)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("got %v, want success", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSecretLoginWithoutSecretOnRecord(t *testing.T) {
	s := newTestStore(t)
	b := New(s)

	grp, err := s.GetOrCreateGroup("G1")
	if err != nil {
		t.Fatalf("group: %v", err)
	}
	number := "12345678"
	identity := &models.Identity{DisplayName: "Alice", RosterNumber: &number, GroupID: grp.ID}
	if err := s.CreateIdentity(identity); err != nil {
		t.Fatalf("identity: %v", err)
	}

	if _, err := b.SecretLogin("P1", number, "anything", "G1"); !errors.Is(err, ErrBadSecret) {
		t.Fatalf("login without secret on record: got %v, want ErrBadSecret", err)
	}
}

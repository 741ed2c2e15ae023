// Package binder resolves an ephemeral chat-platform identity to exactly one
// roster Identity. Two entry protocols exist: claiming a group outright
// (creates a fresh roster row) and logging in with a roster number plus
// secret (links an imported row).
package binder

import (
	"errors"
	"fmt"

	"github.com/zaqqye/gradebot_v1/internal/models"
	"github.com/zaqqye/gradebot_v1/internal/store"
	"github.com/zaqqye/gradebot_v1/internal/utils"
)

var (
	// ErrAlreadyClaimed: the platform user already owns a roster row.
	ErrAlreadyClaimed = errors.New("platform user already claimed an identity")
	// ErrAlreadyBound: the targeted roster row belongs to someone else.
	ErrAlreadyBound = errors.New("identity is bound to another platform user")
	// ErrAmbiguous: the roster number matches rows in several groups and no
	// group scope was given. The binder fails closed rather than guess.
	ErrAmbiguous = errors.New("roster number is ambiguous without a group")
	// ErrBadSecret covers both unknown roster numbers and wrong secrets, so
	// the reply does not leak which of the two was wrong.
	ErrBadSecret = errors.New("roster number or secret is incorrect")
)

const claimedCodeLen = 8

type Binder struct {
	store *store.Store
}

func New(s *store.Store) *Binder {
	return &Binder{store: s}
}

// BindResult reports what a successful bind actually did.
type BindResult struct {
	Identity *models.Identity
	// Created is true when a fresh roster row was minted (group claim).
	Created bool
	// AlreadyBound is true for the idempotent case: the caller was bound to
	// this row before the call and nothing was written.
	AlreadyBound bool
}

// ClaimGroup creates a fresh identity in the named group and binds it to the
// platform user in one step. Precondition: the user holds no binding yet.
func (b *Binder) ClaimGroup(platformID, displayName, groupName string) (*BindResult, error) {
	if _, err := b.store.FindByPlatformID(platformID); err == nil {
		return nil, ErrAlreadyClaimed
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	grp, err := b.store.GetOrCreateGroup(groupName)
	if err != nil {
		return nil, err
	}

	code, err := utils.GenerateCode(claimedCodeLen)
	if err != nil {
		return nil, err
	}

	pid := platformID
	identity := &models.Identity{
		DisplayName:    displayName,
		RosterNumber:   &code,
		PlatformUserID: &pid,
		GroupID:        grp.ID,
	}
	if err := b.store.CreateIdentity(identity); err != nil {
		if errors.Is(err, store.ErrConflict) {
			// Lost a race against another claim by the same user.
			return nil, ErrAlreadyClaimed
		}
		return nil, err
	}
	identity.Group = *grp
	return &BindResult{Identity: identity, Created: true}, nil
}

// SecretLogin links the platform user to an imported roster row identified by
// (rosterNumber, secret), optionally scoped to a group known from the user's
// current role. Binding the same user to the same row twice is an idempotent
// success with zero writes.
func (b *Binder) SecretLogin(platformID, rosterNumber, secret, groupName string) (*BindResult, error) {
	groupID := ""
	if groupName != "" {
		grp, err := b.store.FindGroup(groupName)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, ErrBadSecret
			}
			return nil, err
		}
		groupID = grp.ID
	}

	identity, err := b.resolveCandidate(platformID, rosterNumber, secret, groupID)
	if err != nil {
		return nil, err
	}

	if identity.Bound() {
		if *identity.PlatformUserID == platformID {
			return &BindResult{Identity: identity, AlreadyBound: true}, nil
		}
		return nil, ErrAlreadyBound
	}

	if err := b.store.BindPlatformID(identity.ID, platformID); err != nil {
		switch {
		case errors.Is(err, store.ErrAlreadyBound), errors.Is(err, store.ErrConflict):
			// Race: somebody bound this row (or this user bound another row)
			// between our read and the write. Re-read once and re-judge.
			return b.reconcileRace(platformID, identity.ID, err)
		default:
			return nil, err
		}
	}

	return b.reload(identity.ID, platformID)
}

func (b *Binder) resolveCandidate(platformID, rosterNumber, secret, groupID string) (*models.Identity, error) {
	candidates, err := b.store.FindByRosterNumber(rosterNumber, groupID)
	if err != nil {
		return nil, err
	}
	switch len(candidates) {
	case 0:
		return nil, ErrBadSecret
	case 1:
	default:
		if groupID == "" {
			return nil, ErrAmbiguous
		}
		// Same number twice inside one group is a roster import defect; the
		// row cannot be bound safely either way.
		return nil, ErrAmbiguous
	}

	identity := candidates[0]
	if identity.SecretHash == nil || !utils.CheckPassword(*identity.SecretHash, secret) {
		return nil, ErrBadSecret
	}
	return &identity, nil
}

// reconcileRace re-reads state after a bind conflict. If the caller ended up
// bound to the row after all, treat it as idempotent success; otherwise the
// row went to someone else.
func (b *Binder) reconcileRace(platformID, identityID string, cause error) (*BindResult, error) {
	current, err := b.store.FindByPlatformID(platformID)
	if err == nil && current.ID == identityID {
		return &BindResult{Identity: current, AlreadyBound: true}, nil
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	return nil, fmt.Errorf("%w (after bind race: %v)", ErrAlreadyBound, cause)
}

func (b *Binder) reload(identityID, platformID string) (*BindResult, error) {
	identity, err := b.store.FindByPlatformID(platformID)
	if err != nil {
		return nil, err
	}
	if identity.ID != identityID {
		return nil, ErrAlreadyBound
	}
	return &BindResult{Identity: identity}, nil
}

package store

import (
	"context"
	"errors"

	"identity-merge-go/internal/models"
)

// Sentinel errors shared by every backend
var (
	ErrIdentityNotFound = errors.New("identity not found")
	ErrDuplicateKey     = errors.New("duplicate key")
	ErrTransient        = errors.New("transient store failure")
)

// CreateIdentityParams contains the parameters for signing up a new identity.
type CreateIdentityParams struct {
	Id       string
	Username string
	Email    string
	FullName string
}

// ContactLinkParams describes one contact address link.
type ContactLinkParams struct {
	Email      string
	IdentityId string
	IsPrimary  bool
}

// IdentityStore covers identities and their contact address links.
type IdentityStore interface {
	GetIdentities(ctx context.Context) ([]models.Identity, error)
	GetIdentityById(ctx context.Context, identityId string) (*models.Identity, error)
	GetIdentityByUsername(ctx context.Context, username string) (*models.Identity, error)
	ResolveIdentityByContact(ctx context.Context, address string) (*models.Identity, error)
	ResolveCanonical(ctx context.Context, identityId string) (*models.Identity, error)
	CreateIdentity(ctx context.Context, params CreateIdentityParams) (*models.Identity, error)
	UpdateIdentityContact(ctx context.Context, identityId, email string, hasLinkedIdentities bool) error
	MarkIdentityMerged(ctx context.Context, sourceId, targetId string) error
	SetProgression(ctx context.Context, identityId string, progression models.Progression) error
	DefaultNullProgression(ctx context.Context, defaults models.Progression) (int64, error)

	GetContactLink(ctx context.Context, email string) (*models.ContactLink, error)
	GetContactLinks(ctx context.Context, identityId string) ([]models.ContactLink, error)
	InsertContactLink(ctx context.Context, params ContactLinkParams) error
	ReassignContactLink(ctx context.Context, params ContactLinkParams) error
	DemotePrimaryContacts(ctx context.Context, identityId, keepEmail string) (int64, error)
}

// RecordStore covers the records owned by an identity.
type RecordStore interface {
	GetCreatorProfile(ctx context.Context, identityId string) (*models.CreatorProfile, error)
	CreateCreatorProfile(ctx context.Context, identityId, displayName, bio string) (*models.CreatorProfile, error)
	ReassignCreatorProfile(ctx context.Context, profileId, fromId, toId string) (int64, error)

	GetApplications(ctx context.Context, identityId string) ([]models.Application, error)
	CreateApplication(ctx context.Context, identityId, kind, status string) (*models.Application, error)
	TransferApplications(ctx context.Context, fromId, toId string) (int64, error)

	GetExternalAccounts(ctx context.Context, identityId string) ([]models.ExternalAccount, error)
	CreateExternalAccount(ctx context.Context, identityId, provider, externalId string) (*models.ExternalAccount, error)
	ReassignExternalAccount(ctx context.Context, accountId, fromId, toId string) (int64, error)

	GetWalletLinks(ctx context.Context, identityId string) ([]models.WalletLink, error)
	CreateWalletLink(ctx context.Context, identityId, address, chain string) (*models.WalletLink, error)
	ReassignWalletLink(ctx context.Context, walletId, fromId, toId string) (int64, error)
}

// AchievementStore covers the achievement catalog and grants.
type AchievementStore interface {
	GetAchievements(ctx context.Context) ([]models.Achievement, error)
	FindAchievement(ctx context.Context, achievementId, key, name string) (*models.Achievement, error)
	InsertAchievement(ctx context.Context, achievement models.Achievement) error

	GetGrants(ctx context.Context, identityId string) ([]models.AchievementGrant, error)
	InsertGrant(ctx context.Context, grant models.AchievementGrant) error
	TransferGrants(ctx context.Context, fromId, toId string) (int64, error)
}

// Store is the contract every backend (SQLite, Postgres) must satisfy.
type Store interface {
	IdentityStore
	RecordStore
	AchievementStore

	Ping(ctx context.Context) error
	Close()
}

package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// StampID identifies a stamp
type StampID string

// UserID identifies a user
type UserID string

// CollectionID identifies a collection
type CollectionID string

// NewStampID generates a new random stamp ID
func NewStampID() StampID {
	return StampID(uuid.NewString())
}

// NewUserID generates a new random user ID
func NewUserID() UserID {
	return UserID(uuid.NewString())
}

// NewCollectionID generates a new random collection ID
func NewCollectionID() CollectionID {
	return CollectionID(uuid.NewString())
}

// ParseStampID validates and normalizes a stamp ID
func ParseStampID(s string) (StampID, error) {
	id, err := parseID("stamp", s)
	return StampID(id), err
}

// ParseUserID validates and normalizes a user ID
func ParseUserID(s string) (UserID, error) {
	id, err := parseID("user", s)
	return UserID(id), err
}

// ParseCollectionID validates and normalizes a collection ID
func ParseCollectionID(s string) (CollectionID, error) {
	id, err := parseID("collection", s)
	return CollectionID(id), err
}

func parseID(kind, s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("%w: empty %s id", ErrInvalidArgument, kind)
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: malformed %s id %q", ErrInvalidArgument, kind, s)
	}
	return id.String(), nil
}

// EntityKind identifies an entity family that carries engagement counters
type EntityKind string

const (
	EntityKindStamp      EntityKind = "stamp"
	EntityKindCollection EntityKind = "collection"
)

// Valid checks if the entity kind is known
func (k EntityKind) Valid() bool {
	return k == EntityKindStamp || k == EntityKindCollection
}

// Metric is an engagement counter. It doubles as the trending metric.
type Metric string

const (
	MetricViewCount      Metric = "view_count"
	MetricFavouriteCount Metric = "favourite_count"
)

// Valid checks if the metric is known
func (m Metric) Valid() bool {
	return m == MetricViewCount || m == MetricFavouriteCount
}

// VerifyStatus is the curation state of a stamp
type VerifyStatus string

const (
	VerifyStatusUnverified VerifyStatus = "unverified"
	VerifyStatusPending    VerifyStatus = "pending"
	VerifyStatusVerified   VerifyStatus = "verified"
	VerifyStatusRejected   VerifyStatus = "rejected"
)

// Valid checks if the verify status is known
func (s VerifyStatus) Valid() bool {
	switch s {
	case VerifyStatusUnverified, VerifyStatusPending, VerifyStatusVerified, VerifyStatusRejected:
		return true
	default:
		return false
	}
}

// CollectionStatus is the publication state of a collection
type CollectionStatus string

const (
	CollectionStatusDraft     CollectionStatus = "draft"
	CollectionStatusPublished CollectionStatus = "published"
	CollectionStatusArchived  CollectionStatus = "archived"
)

// Valid checks if the collection status is known
func (s CollectionStatus) Valid() bool {
	switch s {
	case CollectionStatusDraft, CollectionStatusPublished, CollectionStatusArchived:
		return true
	default:
		return false
	}
}

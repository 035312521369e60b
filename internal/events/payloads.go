// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package events

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/swipedeck/internal/validation"
)

// ErrMalformedPayload wraps decode and validation failures.
var ErrMalformedPayload = errors.New("malformed event payload")

// ChangeType classifies a profile update.
type ChangeType string

const (
	// ChangePreferences means the owner changed their own search filter.
	ChangePreferences ChangeType = "PREFERENCES"

	// ChangeCriticalFields means age or gender changed.
	ChangeCriticalFields ChangeType = "CRITICAL_FIELDS"

	// ChangeProfile covers every other visible field (bio, photos, interests).
	ChangeProfile ChangeType = "PROFILE"
)

// SwipeCreated is published when a viewer decides on a candidate.
type SwipeCreated struct {
	SwiperID  string    `json:"swiper_id" validate:"required"`
	SwipedID  string    `json:"swiped_id" validate:"required,nefield=SwiperID"`
	Decision  string    `json:"decision,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
}

// ProfileUpdated is published after a profile change.
type ProfileUpdated struct {
	ProfileID     string     `json:"profile_id" validate:"required"`
	ChangeType    ChangeType `json:"change_type"`
	ChangedFields []string   `json:"changed_fields,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at,omitempty"`
}

// ProfileDeleted is published after a profile is removed.
type ProfileDeleted struct {
	ProfileID string    `json:"profile_id" validate:"required"`
	DeletedAt time.Time `json:"deleted_at,omitempty"`
}

// NormalizedChangeType returns the upper-cased change type. An empty type
// is treated as a generic profile change.
func (e *ProfileUpdated) NormalizedChangeType() ChangeType {
	ct := ChangeType(strings.ToUpper(strings.TrimSpace(string(e.ChangeType))))
	if ct == "" {
		return ChangeProfile
	}
	return ct
}

// decode unmarshals and validates a payload into v.
func decode(payload []byte, v interface{}) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	if verr := validation.ValidateStruct(v); verr != nil {
		return fmt.Errorf("%w: %w", ErrMalformedPayload, verr)
	}
	return nil
}

// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package models

import (
	"errors"
	"testing"

	"github.com/tomtom215/swipedeck/internal/validation"
)

func TestParseGender(t *testing.T) {
	tests := []struct {
		in   string
		want Gender
	}{
		{"female", GenderFemale},
		{" Male ", GenderMale},
		{"", GenderAny},
		{"any", GenderAny},
		{"NONBINARY", GenderNonBinary},
	}
	for _, tt := range tests {
		if got := ParseGender(tt.in); got != tt.want {
			t.Errorf("ParseGender(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestGender_Matches(t *testing.T) {
	if !GenderAny.Matches(GenderMale) {
		t.Error("ANY should match MALE")
	}
	if !GenderFemale.Matches(GenderFemale) {
		t.Error("FEMALE should match FEMALE")
	}
	if GenderFemale.Matches(GenderMale) {
		t.Error("FEMALE should not match MALE")
	}
}

func TestProfile_EffectivePreferences(t *testing.T) {
	t.Run("nil preferences use defaults", func(t *testing.T) {
		p := Profile{ID: "v1"}
		got := p.EffectivePreferences()
		if got != DefaultPreferences() {
			t.Errorf("EffectivePreferences() = %+v, want defaults", got)
		}
	})

	t.Run("partial preferences are completed and normalized", func(t *testing.T) {
		p := Profile{ID: "v1", Preferences: &Preferences{MinAge: 21, Gender: "female"}}
		got := p.EffectivePreferences()
		if got.MinAge != 21 || got.MaxAge != DefaultMaxAge {
			t.Errorf("age range = %d-%d, want 21-%d", got.MinAge, got.MaxAge, DefaultMaxAge)
		}
		if got.Gender != GenderFemale {
			t.Errorf("Gender = %q, want FEMALE", got.Gender)
		}
		if got.MaxDistanceKM != DefaultMaxDistanceKM {
			t.Errorf("MaxDistanceKM = %v, want %v", got.MaxDistanceKM, float64(DefaultMaxDistanceKM))
		}
	})

	t.Run("does not mutate the snapshot", func(t *testing.T) {
		prefs := &Preferences{MinAge: 30, MaxAge: 40, Gender: "male"}
		p := Profile{ID: "v1", Preferences: prefs}
		_ = p.EffectivePreferences()
		if prefs.Gender != "male" {
			t.Errorf("snapshot preferences mutated: %q", prefs.Gender)
		}
	})
}

func TestNewPreferenceBucket(t *testing.T) {
	tests := []struct {
		name    string
		min     int
		max     int
		gender  string
		want    string
		wantErr bool
	}{
		{name: "normalizes gender", min: 18, max: 25, gender: "female", want: "18:25:FEMALE"},
		{name: "empty gender is any", min: 18, max: 99, gender: "", want: "18:99:ANY"},
		{name: "inverted range", min: 30, max: 20, gender: "MALE", wantErr: true},
		{name: "under age", min: 16, max: 20, gender: "MALE", wantErr: true},
		{name: "unknown gender", min: 18, max: 20, gender: "cat", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewPreferenceBucket(tt.min, tt.max, tt.gender)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("NewPreferenceBucket() = %v, want error", b)
				}
				var verr *validation.RequestValidationError
				if !errors.As(err, &verr) {
					t.Errorf("error %v should wrap *validation.RequestValidationError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewPreferenceBucket() error = %v", err)
			}
			if b.String() != tt.want {
				t.Errorf("String() = %q, want %q", b.String(), tt.want)
			}
		})
	}
}

func TestScoredCandidate_Entry(t *testing.T) {
	sc := ScoredCandidate{Profile: Profile{ID: "c1"}, Score: -0.5}
	if got := sc.Entry(); got.CandidateID != "c1" || got.Score != -0.5 {
		t.Errorf("Entry() = %+v", got)
	}
}

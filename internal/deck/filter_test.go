// Swipedeck - Ranked Swipe Deck Builder and Cache
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/swipedeck

package deck

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/swipedeck/internal/models"
)

func candidates(idList ...string) []models.Profile {
	out := make([]models.Profile, len(idList))
	for i, id := range idList {
		out[i] = profile(id, 25, models.GenderFemale)
	}
	return out
}

func TestFilterStage(t *testing.T) {
	boom := errors.New("swipes unavailable")

	tests := []struct {
		name        string
		input       []string
		batchSize   int
		decided     map[string]bool
		failBatches map[int]bool
		want        []string
		wantBatches []int
	}{
		{
			name:        "removes decided and keeps order",
			input:       []string{"a", "b", "c", "d"},
			batchSize:   10,
			decided:     map[string]bool{"b": true, "d": true},
			want:        []string{"a", "c"},
			wantBatches: []int{4},
		},
		{
			name:        "splits into sequential batches",
			input:       []string{"a", "b", "c", "d", "e"},
			batchSize:   2,
			decided:     map[string]bool{"e": true},
			want:        []string{"a", "b", "c", "d"},
			wantBatches: []int{2, 2, 1},
		},
		{
			name:        "failed batch passes unfiltered",
			input:       []string{"a", "b", "c", "d"},
			batchSize:   2,
			decided:     map[string]bool{"a": true, "c": true},
			failBatches: map[int]bool{0: true},
			want:        []string{"a", "b", "d"},
			wantBatches: []int{2, 2},
		},
		{
			name:        "every candidate decided",
			input:       []string{"a", "b"},
			batchSize:   10,
			decided:     map[string]bool{"a": true, "b": true},
			want:        []string{},
			wantBatches: []int{2},
		},
		{
			name:        "empty ids are dropped",
			input:       []string{"a", "", "b"},
			batchSize:   10,
			want:        []string{"a", "b"},
			wantBatches: []int{2},
		},
		{
			name:        "no candidates makes no calls",
			input:       nil,
			batchSize:   10,
			want:        []string{},
			wantBatches: []int{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			swipes := &mockSwipes{decided: tt.decided, failBatches: tt.failBatches, err: boom}
			stage := NewFilterStage(swipes, nil, tt.batchSize)

			got := stage.Filter(context.Background(), "v1", candidates(tt.input...))

			if !equalStrings(ids(got), tt.want) {
				t.Errorf("Filter() = %v, want %v", ids(got), tt.want)
			}
			sizes := swipes.batchSizes()
			if len(sizes) != len(tt.wantBatches) {
				t.Fatalf("batches = %v, want %v", sizes, tt.wantBatches)
			}
			for i := range sizes {
				if sizes[i] != tt.wantBatches[i] {
					t.Errorf("batch %d size = %d, want %d", i, sizes[i], tt.wantBatches[i])
				}
			}
		})
	}
}

func TestNewFilterStage_DefaultBatchSize(t *testing.T) {
	stage := NewFilterStage(&mockSwipes{}, nil, 0)
	if stage.batchSize != DefaultFilterBatchSize {
		t.Errorf("batchSize = %d, want %d", stage.batchSize, DefaultFilterBatchSize)
	}
}

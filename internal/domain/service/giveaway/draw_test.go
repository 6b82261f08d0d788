package giveaway_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"gift_market/internal/domain/service/giveaway"
)

func TestDistribute(t *testing.T) {
	testCases := []struct {
		name         string
		participants []int64
		gifts        []int64
		want         []int64
	}{
		{
			name:         "Fewer gifts than participants",
			participants: []int64{10, 11, 12, 13, 14},
			gifts:        []int64{1, 2, 3},
			want:         []int64{10, 11, 12},
		},
		{
			name:         "More gifts than participants",
			participants: []int64{10, 11, 12},
			gifts:        []int64{1, 2, 3, 4, 5},
			want:         []int64{10, 11, 12, 10, 11},
		},
		{
			name:         "No participants",
			participants: nil,
			gifts:        []int64{1},
			want:         nil,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, giveaway.Distribute(tc.participants, tc.gifts))
		})
	}
}

func TestChances(t *testing.T) {
	testCases := []struct {
		name         string
		participants []int64
		referrers    []int64
		gifts        int
		want         []float64
	}{
		{
			name:         "Gifts cover everyone",
			participants: []int64{1, 2, 3},
			referrers:    []int64{0, 0, 0},
			gifts:        3,
			want:         []float64{100, 100, 100},
		},
		{
			name:         "Equal chances without referrals",
			participants: []int64{1, 2, 3, 4},
			referrers:    []int64{0, 0, 0, 0},
			gifts:        1,
			want:         []float64{25, 25, 25, 25},
		},
		{
			name:         "Referral boost",
			participants: []int64{1, 2, 3, 4},
			referrers:    []int64{0, 1, 1, 0},
			gifts:        1,
			want:         []float64{50, 25, 25, 25},
		},
		{
			name:         "Two participants, one referral",
			participants: []int64{1, 2},
			referrers:    []int64{0, 1},
			gifts:        1,
			want:         []float64{75, 50},
		},
		{
			name:         "Capped at 95",
			participants: []int64{1},
			referrers:    []int64{0},
			gifts:        0,
			want:         []float64{95},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := giveaway.Chances(tc.participants, tc.referrers, tc.gifts)
			require.InDeltaSlice(t, tc.want, got, 1e-9)
			for _, c := range got {
				require.LessOrEqual(t, c, 100.0)
			}
		})
	}
}

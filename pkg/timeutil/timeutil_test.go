package timeutil

import (
	"math/rand"
	"testing"
	"time"
)

func TestMaxDuration(t *testing.T) {
	tests := []struct {
		name      string
		durations []time.Duration
		want      time.Duration
	}{
		{
			name:      "multiple values returns maximum",
			durations: []time.Duration{100 * time.Millisecond, 500 * time.Millisecond, 200 * time.Millisecond},
			want:      500 * time.Millisecond,
		},
		{
			name:      "single value returns that value",
			durations: []time.Duration{300 * time.Millisecond},
			want:      300 * time.Millisecond,
		},
		{
			name:      "empty slice returns zero",
			durations: []time.Duration{},
			want:      0,
		},
		{
			name:      "all negative returns least negative",
			durations: []time.Duration{-100 * time.Millisecond, -50 * time.Millisecond, -200 * time.Millisecond},
			want:      -50 * time.Millisecond,
		},
		{
			name:      "zero in mix returns positive max",
			durations: []time.Duration{0, 100 * time.Millisecond, 0},
			want:      100 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MaxDuration(tt.durations)
			if got != tt.want {
				t.Errorf("MaxDuration() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestComputeJitter(t *testing.T) {
	tests := []struct {
		name string
		max  time.Duration
		rng  *rand.Rand
	}{
		{name: "max=0 returns 0", max: 0, rng: rand.New(rand.NewSource(1))},
		{name: "negative max returns 0", max: -100 * time.Millisecond, rng: rand.New(rand.NewSource(1))},
		{name: "nil rng returns 0", max: time.Second, rng: nil},
		{name: "positive max returns value within range", max: time.Second, rng: rand.New(rand.NewSource(42))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeJitter(tt.max, tt.rng)

			if tt.max <= 0 || tt.rng == nil {
				if got != 0 {
					t.Errorf("ComputeJitter() = %v, want 0", got)
				}
				return
			}

			if got < 0 || got >= tt.max {
				t.Errorf("ComputeJitter() = %v, want in [0, %v)", got, tt.max)
			}
		})
	}
}

func TestExponentialBackoffDelay(t *testing.T) {
	tests := []struct {
		name         string
		backoffCount int
		jitter       time.Duration
		backoffParam BackoffParam
		wantMin      time.Duration
		wantMax      time.Duration
	}{
		{
			name:         "first backoff with no jitter",
			backoffCount: 1,
			backoffParam: NewBackoffParam(time.Second, 2.0, 30*time.Second),
			wantMin:      time.Second,
			wantMax:      time.Second,
		},
		{
			name:         "third backoff quadruples",
			backoffCount: 3,
			backoffParam: NewBackoffParam(time.Second, 2.0, 30*time.Second),
			wantMin:      4 * time.Second,
			wantMax:      4 * time.Second,
		},
		{
			name:         "backoff hits max cap",
			backoffCount: 10,
			backoffParam: NewBackoffParam(time.Second, 2.0, 10*time.Second),
			wantMin:      10 * time.Second,
			wantMax:      10 * time.Second,
		},
		{
			name:         "jitter adds positive variance",
			backoffCount: 2,
			jitter:       100 * time.Millisecond,
			backoffParam: NewBackoffParam(time.Second, 2.0, 30*time.Second),
			wantMin:      2 * time.Second,
			wantMax:      2*time.Second + 100*time.Millisecond,
		},
		{
			name:         "zero backoff count behaves like first",
			backoffCount: 0,
			backoffParam: NewBackoffParam(time.Second, 2.0, 30*time.Second),
			wantMin:      time.Second,
			wantMax:      time.Second,
		},
		{
			name:         "fractional multiplier",
			backoffCount: 2,
			backoffParam: NewBackoffParam(time.Second, 1.5, 30*time.Second),
			wantMin:      1500 * time.Millisecond,
			wantMax:      1500 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rng := rand.New(rand.NewSource(42))
			got := ExponentialBackoffDelay(tt.backoffCount, tt.jitter, rng, tt.backoffParam)

			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("ExponentialBackoffDelay() = %v, want between %v and %v", got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

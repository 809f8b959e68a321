package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestGetLoadsOnceWithinTTL(t *testing.T) {
	now := time.Now()
	s := New(time.Minute, func() time.Time { return now })

	loads := 0
	load := func(context.Context) (interface{}, error) {
		loads++
		return "v1", nil
	}

	for i := 0; i < 5; i++ {
		v, err := s.Get(context.Background(), load)
		if err != nil {
			t.Fatalf("unexpected err: %v", err)
		}
		if v != "v1" {
			t.Fatalf("expected v1, got %v", v)
		}
	}
	if loads != 1 {
		t.Fatalf("expected 1 load within TTL, got %d", loads)
	}
}

func TestGetReloadsAfterTTL(t *testing.T) {
	now := time.Now()
	s := New(time.Minute, func() time.Time { return now })

	loads := 0
	load := func(context.Context) (interface{}, error) {
		loads++
		return loads, nil
	}

	if _, err := s.Get(context.Background(), load); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	now = now.Add(2 * time.Minute)
	v, err := s.Get(context.Background(), load)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v != 2 {
		t.Fatalf("expected reloaded value 2, got %v", v)
	}
}

func TestGetServesStaleOnFailure(t *testing.T) {
	now := time.Now()
	s := New(time.Minute, func() time.Time { return now })

	if _, err := s.Get(context.Background(), func(context.Context) (interface{}, error) {
		return "good", nil
	}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	now = now.Add(2 * time.Minute)
	v, err := s.Get(context.Background(), func(context.Context) (interface{}, error) {
		return nil, errors.New("backend down")
	})
	if err != nil {
		t.Fatalf("expected stale value, got err: %v", err)
	}
	if v != "good" {
		t.Fatalf("expected stale value good, got %v", v)
	}
}

func TestGetPropagatesFirstLoadFailure(t *testing.T) {
	s := New(time.Minute, nil)
	wantErr := errors.New("backend down")

	_, err := s.Get(context.Background(), func(context.Context) (interface{}, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected load error with nothing cached, got %v", err)
	}
}

func TestInvalidateForcesReload(t *testing.T) {
	s := New(time.Hour, nil)

	loads := 0
	load := func(context.Context) (interface{}, error) {
		loads++
		return loads, nil
	}

	if _, err := s.Get(context.Background(), load); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	s.Invalidate()
	v, err := s.Get(context.Background(), load)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if v != 2 {
		t.Fatalf("expected reload after invalidate, got %v", v)
	}
}

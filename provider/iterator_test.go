package provider

import (
	"context"
	"errors"
	"strconv"
	"testing"
)

func TestSliceIterator(t *testing.T) {
	got, err := Collect[int](context.Background(), FromSlice(1, 2, 3))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 || got[2] != 3 {
		t.Fatalf("unexpected %v", got)
	}
}

func TestSliceIteratorCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := FromSlice(1).Next(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMapIterator(t *testing.T) {
	it := MapIterator[int, string](FromSlice(1, 2), func(v int) (string, error) {
		return strconv.Itoa(v * 10), nil
	})
	got, err := Collect(context.Background(), it)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "10" || got[1] != "20" {
		t.Fatalf("unexpected %v", got)
	}
}

func TestMapIteratorError(t *testing.T) {
	boom := errors.New("boom")
	it := MapIterator[int, int](FromSlice(1), func(int) (int, error) { return 0, boom })
	if _, err := Collect(context.Background(), it); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
}

func TestFuncIteratorCloseOnce(t *testing.T) {
	calls := 0
	it := IteratorFunc(func(context.Context) (int, bool, error) { return 0, false, nil }, func() error {
		calls++
		return nil
	})
	_ = it.Close()
	_ = it.Close()
	if calls != 1 {
		t.Fatalf("expected close to run once, ran %d", calls)
	}
}

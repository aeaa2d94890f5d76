package query

import (
	"context"
	"errors"
	"testing"
)

func TestMutationSuccessHookOrder(t *testing.T) {
	var order []string

	m := NewMutation(
		func(ctx context.Context, title string) (post, error) {
			return post{ID: 1, Title: title}, nil
		},
		MutationOptions[post]{
			OnSuccess: func(p post) { order = append(order, "success:"+p.Title) },
			OnError:   func(err error) { order = append(order, "error") },
			OnSettled: func() { order = append(order, "settled") },
		},
	)

	result, err := m.Mutate(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Mutate() returned error: %v", err)
	}
	if result.ID != 1 {
		t.Errorf("Expected result ID 1, got %d", result.ID)
	}

	if len(order) != 2 || order[0] != "success:hello" || order[1] != "settled" {
		t.Errorf("Expected [success settled] hook order, got %v", order)
	}

	state := m.State()
	if state.Status != StatusSuccess {
		t.Errorf("Expected success state, got %s", state.Status)
	}
	if state.Data.Title != "hello" {
		t.Errorf("Expected recorded data, got %+v", state.Data)
	}
}

func TestMutationErrorHookOrder(t *testing.T) {
	var order []string

	m := NewMutation(
		func(ctx context.Context, arg int) (string, error) {
			return "", errors.New("write failed")
		},
		MutationOptions[string]{
			OnSuccess: func(string) { order = append(order, "success") },
			OnError:   func(err error) { order = append(order, "error:"+err.Error()) },
			OnSettled: func() { order = append(order, "settled") },
		},
	)

	if _, err := m.Mutate(context.Background(), 1); err == nil {
		t.Fatal("Expected the mutation error to propagate")
	}

	if len(order) != 2 || order[0] != "error:write failed" || order[1] != "settled" {
		t.Errorf("Expected [error settled] hook order, got %v", order)
	}

	state := m.State()
	if state.Status != StatusError {
		t.Errorf("Expected error state, got %s", state.Status)
	}
	if state.Error != "write failed" {
		t.Errorf("Expected recorded error message, got %q", state.Error)
	}
}

func TestMutationWithoutHooks(t *testing.T) {
	m := NewMutation(
		func(ctx context.Context, arg string) (string, error) {
			return arg + "!", nil
		},
		MutationOptions[string]{},
	)

	if m.State().Status != StatusIdle {
		t.Errorf("Expected idle before Mutate, got %s", m.State().Status)
	}

	result, err := m.Mutate(context.Background(), "done")
	if err != nil {
		t.Fatalf("Mutate() returned error: %v", err)
	}
	if result != "done!" {
		t.Errorf("Expected 'done!', got %q", result)
	}
}

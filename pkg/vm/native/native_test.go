// Copyright 2025 Certen Protocol

package native

import (
	"context"
	"testing"

	"github.com/OakenKnight/left-curve/pkg/store"
	"github.com/OakenKnight/left-curve/pkg/types"
	"github.com/OakenKnight/left-curve/pkg/vm"
)

type noopQuerier struct{}

func (noopQuerier) Query(ctx context.Context, req types.QueryRequest) (types.QueryResponse, error) {
	return types.QueryResponse{}, nil
}

func TestRegistryBuildUnknownCodeHash(t *testing.T) {
	r := NewRegistry()
	_, err := r.Build(nil, noopQuerier{}, types.Hash{1}, nil)
	if err == nil {
		t.Errorf("expected error building unregistered code hash")
	}
}

func TestInstanceDispatchesExecute(t *testing.T) {
	r := NewRegistry()
	codeHash := types.Hash{9}
	r.Register(codeHash, EntryPoints{
		Execute: func(ctx context.Context, c *types.Context, s store.ReadWriter, q vm.Querier, msg []byte) ([]byte, error) {
			return append([]byte("echo:"), msg...), nil
		},
	})

	v, err := r.Build(nil, noopQuerier{}, codeHash, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	out, err := v.CallIn1Out1(context.Background(), "execute", &types.Context{}, []byte("hi"))
	if err != nil {
		t.Fatalf("CallIn1Out1: %v", err)
	}
	if string(out) != "echo:hi" {
		t.Errorf("expected 'echo:hi', got %q", out)
	}
}

func TestInstanceUnknownEntryPointReturnsError(t *testing.T) {
	r := NewRegistry()
	codeHash := types.Hash{3}
	r.Register(codeHash, EntryPoints{})

	v, _ := r.Build(nil, noopQuerier{}, codeHash, nil)

	if _, err := v.CallIn1Out1(context.Background(), "execute", &types.Context{}, nil); err != vm.ErrUnknownEntryPoint {
		t.Errorf("expected ErrUnknownEntryPoint, got %v", err)
	}
	if _, err := v.CallIn1Out1(context.Background(), "not_a_real_entry_point", &types.Context{}, nil); err != vm.ErrIncorrectNumberOfInputs {
		t.Errorf("expected ErrIncorrectNumberOfInputs, got %v", err)
	}
}

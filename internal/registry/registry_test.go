package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PoolKeeper/internal/model"
)

func constant(v string) Handler {
	return func(context.Context, Request) (any, error) { return v, nil }
}

func TestCutLifecycle(t *testing.T) {
	r := New("owner")
	ctx := context.Background()

	require.NoError(t, r.Apply("owner", Cut{Action: Add, Module: Module{
		Name: "core", Version: "1", Ops: map[string]Handler{"totalValue": constant("v1"), "deposit": constant("d")},
	}}))

	out, err := r.Call(ctx, "totalValue", Request{})
	require.NoError(t, err)
	assert.Equal(t, "v1", out)

	// replace moves the operation to the new module version
	require.NoError(t, r.Apply("owner", Cut{Action: Replace, Module: Module{
		Name: "core-v2", Version: "2", Ops: map[string]Handler{"totalValue": constant("v2")},
	}}))
	out, err = r.Call(ctx, "totalValue", Request{})
	require.NoError(t, err)
	assert.Equal(t, "v2", out)

	want := []ModuleInfo{
		{Name: "core", Version: "1", Ops: []string{"deposit"}},
		{Name: "core-v2", Version: "2", Ops: []string{"totalValue"}},
	}
	if diff := cmp.Diff(want, r.Modules()); diff != "" {
		t.Errorf("modules mismatch (-want +got):\n%s", diff)
	}

	require.NoError(t, r.Apply("owner", Cut{Action: Remove, Module: Module{Name: "core-v2"}}))
	_, err = r.Call(ctx, "totalValue", Request{})
	assert.Equal(t, model.CodeFunctionNotFound, model.CodeOf(err))
	assert.Len(t, r.Modules(), 1)
}

func TestApplyValidation(t *testing.T) {
	r := New("owner")
	core := Module{Name: "core", Version: "1", Ops: map[string]Handler{"a": constant("a")}}
	require.NoError(t, r.Apply("owner", Cut{Action: Add, Module: core}))

	err := r.Apply("mallory", Cut{Action: Add, Module: Module{Name: "x", Ops: map[string]Handler{"b": constant("b")}}})
	assert.True(t, errors.Is(err, model.ErrAuthorization))

	err = r.Apply("owner", Cut{Action: Add, Module: core})
	assert.Equal(t, model.CodeInvalidParameter, model.CodeOf(err))

	err = r.Apply("owner", Cut{Action: Replace, Module: Module{Name: "core", Ops: map[string]Handler{"zz": constant("")}}})
	assert.Equal(t, model.CodeFunctionNotFound, model.CodeOf(err))

	// a failing cut leaves earlier cuts in the batch unapplied
	err = r.Apply("owner",
		Cut{Action: Add, Module: Module{Name: "extra", Ops: map[string]Handler{"b": constant("b")}}},
		Cut{Action: Remove, Module: Module{Name: "core"}, Ops: []string{"missing"}},
	)
	require.Error(t, err)
	_, ok := r.ModuleOf("b")
	assert.False(t, ok)
}

func TestCallWrapsHandlerError(t *testing.T) {
	r := New("owner")
	boom := model.NewError(model.KindValidation, model.CodeInvalidAmount, "bad")
	require.NoError(t, r.Apply("owner", Cut{Action: Add, Module: Module{Name: "core", Ops: map[string]Handler{
		"deposit": func(context.Context, Request) (any, error) { return nil, boom },
	}}}))

	_, err := r.Call(context.Background(), "deposit", Request{Caller: "alice"})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "core.deposit")
}

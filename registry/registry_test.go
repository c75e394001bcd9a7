package registry

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-statemachine"
)

func ticketDefinition() statemachine.Definition {
	return statemachine.Definition{
		Resource:      "ticket",
		InitialStates: []string{"pending"},
		Transitions: []statemachine.TransitionDefinition{
			{ID: "approve-pending", Action: "approve", From: statemachine.States("pending"), To: statemachine.States("approved")},
		},
	}
}

func orderDefinition() statemachine.Definition {
	return statemachine.Definition{
		Resource:      "order",
		InitialStates: []string{"draft"},
		Transitions: []statemachine.TransitionDefinition{
			{ID: "submit-draft", Action: "submit", From: statemachine.States("draft"), To: statemachine.States("submitted")},
		},
	}
}

type recordingRecorder struct {
	mu         sync.Mutex
	authorized []string
	rejected   []string
}

func (r *recordingRecorder) RecordDuration(resource, action string, elapsed time.Duration) {}

func (r *recordingRecorder) RecordAuthorized(resource, action string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.authorized = append(r.authorized, resource+"/"+action)
}

func (r *recordingRecorder) RecordRejected(resource, action, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejected = append(r.rejected, resource+"/"+action+"/"+code)
}

func TestRegistryLifecycle(t *testing.T) {
	reg := New()

	require.NoError(t, reg.Register(ticketDefinition()))
	require.NoError(t, reg.Register(orderDefinition()))
	assert.False(t, reg.Initialized())

	require.NoError(t, reg.Initialize())
	assert.True(t, reg.Initialized())

	m, err := reg.Lookup("ticket")
	require.NoError(t, err)
	assert.Equal(t, "ticket", m.Resource())

	m, err = reg.Lookup("  Order ")
	require.NoError(t, err)
	assert.Equal(t, "order", m.Resource())

	assert.Equal(t, []string{"order", "ticket"}, reg.Resources())
}

func TestRegistryLookupBeforeInitialize(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Register(ticketDefinition()))

	_, err := reg.Lookup("ticket")
	assert.Error(t, err)
	assert.Equal(t, ErrCodeNotInitialized, statemachine.ErrorCode(err))
}

func TestRegistryLookupUnknownResource(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Register(ticketDefinition()))
	require.NoError(t, reg.Initialize())

	_, err := reg.Lookup("invoice")
	assert.Error(t, err)
	assert.Equal(t, ErrCodeResourceNotConfigured, statemachine.ErrorCode(err))
	assert.Contains(t, err.Error(), "invoice")
}

func TestRegistryRegisterAfterInitialize(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Initialize())

	err := reg.Register(ticketDefinition())
	assert.Error(t, err)
	assert.Equal(t, ErrCodeAlreadyInitialized, statemachine.ErrorCode(err))
	assert.Contains(t, err.Error(), "cannot register machines after registry has been initialized")
}

func TestRegistryInitializeTwice(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Initialize())

	err := reg.Initialize()
	assert.Error(t, err)
	assert.Equal(t, ErrCodeAlreadyInitialized, statemachine.ErrorCode(err))
}

func TestRegistryInitializeReportsEveryCompileFailure(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Register(statemachine.Definition{Resource: "broken"}))
	require.NoError(t, reg.Register(statemachine.Definition{
		Resource:      "dangling",
		InitialStates: []string{"a", "b"},
		Transitions: []statemachine.TransitionDefinition{
			{Action: "go", From: statemachine.States("a"), To: statemachine.States("b")},
		},
	}))
	require.NoError(t, reg.Register(ticketDefinition()))

	err := reg.Initialize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least one initial state")
	assert.Contains(t, err.Error(), "must set a default initial state")

	assert.True(t, reg.Initialized())
	m, lookupErr := reg.Lookup("ticket")
	require.NoError(t, lookupErr)
	assert.Equal(t, "ticket", m.Resource())
}

func TestRegistryDuplicateResource(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Register(ticketDefinition()))
	require.NoError(t, reg.Register(ticketDefinition()))

	err := reg.Initialize()
	require.Error(t, err)
	assert.Equal(t, ErrCodeDuplicateResource, statemachine.ErrorCode(err))

	_, lookupErr := reg.Lookup("ticket")
	assert.NoError(t, lookupErr)
}

func TestRegistryRegisterMachine(t *testing.T) {
	m, err := statemachine.Compile(ticketDefinition())
	require.NoError(t, err)

	reg := New()
	require.NoError(t, reg.RegisterMachine(m))
	require.NoError(t, reg.Initialize())

	got, err := reg.Lookup("ticket")
	require.NoError(t, err)
	assert.Same(t, m, got)
}

func TestRegistryRegisterMachineNil(t *testing.T) {
	reg := New()
	err := reg.RegisterMachine(nil)
	assert.Error(t, err)
	assert.Equal(t, ErrCodeNilMachine, statemachine.ErrorCode(err))
}

func TestRegistryRegisterMachineDuplicate(t *testing.T) {
	m, err := statemachine.Compile(ticketDefinition())
	require.NoError(t, err)

	reg := New()
	require.NoError(t, reg.RegisterMachine(m))
	err = reg.RegisterMachine(m)
	assert.Error(t, err)
	assert.Equal(t, ErrCodeDuplicateResource, statemachine.ErrorCode(err))
}

func TestRegistryConfigureAppliesMachineOptions(t *testing.T) {
	rec := &recordingRecorder{}
	reg := New()
	reg.Configure(statemachine.WithRecorder(rec))

	require.NoError(t, reg.Register(ticketDefinition()))
	require.NoError(t, reg.Initialize())

	m, err := reg.Lookup("ticket")
	require.NoError(t, err)
	require.NoError(t, m.Authorize(statemachine.TransitionRequest{
		CurrentState: "pending",
		Action:       "approve",
		Kind:         statemachine.ActionUpdate,
		Target:       "approved",
	}))

	assert.Equal(t, []string{"ticket/approve"}, rec.authorized)
}

func TestRegistryConcurrentLookups(t *testing.T) {
	reg := New()
	require.NoError(t, reg.Register(ticketDefinition()))
	require.NoError(t, reg.Register(orderDefinition()))
	require.NoError(t, reg.Initialize())

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				m, err := reg.Lookup("ticket")
				if err != nil || m == nil {
					t.Errorf("lookup failed: %v", err)
					return
				}
				_ = reg.Resources()
				_ = reg.Initialized()
			}
		}()
	}
	wg.Wait()
}

func TestGlobalRegistryLifecycle(t *testing.T) {
	WithTestRegistry(func() {
		require.NoError(t, Register(ticketDefinition()))
		require.NoError(t, RegisterSet(statemachine.DefinitionSet{
			Machines: []statemachine.Definition{orderDefinition()},
		}))

		require.NoError(t, Start(context.Background()))

		m, err := Lookup("ticket")
		require.NoError(t, err)
		assert.Equal(t, "ticket", m.Resource())
		assert.Equal(t, []string{"order", "ticket"}, Resources())

		require.NoError(t, Stop(context.Background()))
		_, err = Lookup("ticket")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "registry not initialized")
	})
}

func TestGlobalRegistryLateRegistration(t *testing.T) {
	WithTestRegistry(func() {
		require.NoError(t, Register(ticketDefinition()))
		require.NoError(t, Start(context.Background()))

		err := Register(orderDefinition())
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "cannot register machines after registry has been initialized")
	})
}

func TestGlobalRegistryIsolation(t *testing.T) {
	WithTestRegistry(func() {
		require.NoError(t, Register(ticketDefinition()))
		require.NoError(t, Start(context.Background()))
		assert.Equal(t, []string{"ticket"}, Resources())
	})

	WithTestRegistry(func() {
		require.NoError(t, Register(orderDefinition()))
		require.NoError(t, Start(context.Background()))
		assert.Equal(t, []string{"order"}, Resources())
	})
}

func TestGlobalRegistryConfigure(t *testing.T) {
	WithTestRegistry(func() {
		rec := &recordingRecorder{}
		Configure(statemachine.WithRecorder(rec))

		require.NoError(t, Register(ticketDefinition()))
		require.NoError(t, Start(context.Background()))

		m, err := Lookup("ticket")
		require.NoError(t, err)
		m.Authorize(statemachine.TransitionRequest{
			CurrentState: "approved",
			Action:       "approve",
			Kind:         statemachine.ActionUpdate,
			Target:       "pending",
		})

		require.Len(t, rec.rejected, 1)
		assert.Contains(t, rec.rejected[0], statemachine.ErrCodeNoMatchingTransition)
	})
}

package scripting

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntime_Run(t *testing.T) {
	t.Parallel()

	rt, err := NewRuntime(context.Background(), nil)
	require.NoError(t, err)
	defer rt.Close()

	require.True(t, rt.IsRunning())
	require.NotNil(t, rt.Registry())

	var got int64
	err = rt.Run(context.Background(), func(vm *goja.Runtime) error {
		v, err := vm.RunString(`typeof setTimeout === "function" && typeof console === "object" ? 2 + 3 : -1`)
		if err != nil {
			return err
		}
		got = v.ToInteger()
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(5), got)

	sentinel := errors.New("sentinel")
	assert.ErrorIs(t, rt.Run(context.Background(), func(*goja.Runtime) error { return sentinel }), sentinel)
}

func TestRuntime_Reentrant(t *testing.T) {
	t.Parallel()

	rt, err := NewRuntime(context.Background(), nil)
	require.NoError(t, err)
	defer rt.Close()

	done := make(chan error, 1)
	go func() {
		done <- rt.Run(context.Background(), func(vm *goja.Runtime) error {
			require.True(t, rt.onLoop())
			return rt.Run(context.Background(), func(inner *goja.Runtime) error {
				if inner != vm {
					return errors.New("different runtime")
				}
				return nil
			})
		})
	}()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("nested Run deadlocked")
	}
	assert.False(t, rt.onLoop())
}

func TestRuntime_Interrupt(t *testing.T) {
	t.Parallel()

	rt, err := NewRuntime(context.Background(), nil)
	require.NoError(t, err)
	defer rt.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = rt.Run(ctx, func(vm *goja.Runtime) error {
		_, err := vm.RunString(`for (;;) {}`)
		return err
	})
	var interrupted *goja.InterruptedError
	require.ErrorAs(t, err, &interrupted)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// an already-done context never starts the job
	ran := false
	err = rt.Run(ctx, func(*goja.Runtime) error { ran = true; return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ran)

	// the runtime is reusable afterwards
	require.NoError(t, rt.Run(context.Background(), func(vm *goja.Runtime) error {
		_, err := vm.RunString(`1 + 1`)
		return err
	}))
}

func TestRuntime_Close(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	rt, err := NewRuntime(ctx, nil)
	require.NoError(t, err)

	cancel()
	select {
	case <-rt.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("runtime not closed by context")
	}
	assert.False(t, rt.IsRunning())
	assert.NoError(t, rt.Close())
	assert.ErrorIs(t, rt.Run(context.Background(), func(*goja.Runtime) error { return nil }), ErrRuntimeStopped)
}

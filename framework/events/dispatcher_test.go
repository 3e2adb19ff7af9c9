package events

import (
	"errors"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type userCreated struct{ Name string }

type userDeleted struct{ Name string }

func TestEventDispatcher_Post(t *testing.T) {
	var d EventDispatcher

	var got []string
	d.AddListener(reflect.TypeFor[userCreated](), ListenerFunc(func(event any) (bool, error) {
		got = append(got, "first:"+event.(userCreated).Name)
		return false, nil
	}))
	d.AddListener(reflect.TypeFor[userCreated](), ListenerFunc(func(event any) (bool, error) {
		got = append(got, "second:"+event.(userCreated).Name)
		return false, nil
	}))

	require.NoError(t, d.Post(userCreated{Name: "ada"}))
	require.NoError(t, d.Post(userDeleted{Name: "ada"}))
	require.Equal(t, []string{"first:ada", "second:ada"}, got)
}

func TestEventDispatcher_RemoveAfterDelivery(t *testing.T) {
	d := NewEventDispatcher()
	calls := 0
	d.AddListener(reflect.TypeFor[userCreated](), ListenerFunc(func(any) (bool, error) {
		calls++
		return true, nil
	}))
	require.Equal(t, 1, d.ListenerCount(reflect.TypeFor[userCreated]()))

	require.NoError(t, d.Post(userCreated{}))
	require.NoError(t, d.Post(userCreated{}))

	require.Equal(t, 1, calls)
	require.Equal(t, 0, d.ListenerCount(reflect.TypeFor[userCreated]()))
}

func TestEventDispatcher_ErrorsAreJoined(t *testing.T) {
	d := NewEventDispatcher()
	errA := errors.New("a failed")
	errB := errors.New("b failed")
	reached := false

	d.AddListener(reflect.TypeFor[userCreated](), ListenerFunc(func(any) (bool, error) { return false, errA }))
	d.AddListener(reflect.TypeFor[userCreated](), ListenerFunc(func(any) (bool, error) { return false, errB }))
	d.AddListener(reflect.TypeFor[userCreated](), ListenerFunc(func(any) (bool, error) {
		reached = true
		return false, nil
	}))

	err := d.Post(userCreated{})
	require.ErrorIs(t, err, errA)
	require.ErrorIs(t, err, errB)
	require.True(t, reached, "a failing listener must not stop delivery")
}

func TestEventDispatcher_PostNil(t *testing.T) {
	d := NewEventDispatcher()
	require.Error(t, d.Post(nil))
}

func TestEventDispatcher_Clear(t *testing.T) {
	d := NewEventDispatcher()
	d.AddListener(reflect.TypeFor[userCreated](), ListenerFunc(func(any) (bool, error) { return false, nil }))
	d.Clear()
	require.Equal(t, 0, d.ListenerCount(reflect.TypeFor[userCreated]()))
	require.NoError(t, d.Post(userCreated{}))
}

func TestEventDispatcher_ConcurrentPost(t *testing.T) {
	d := NewEventDispatcher()
	var mu sync.Mutex
	count := 0
	d.AddListener(reflect.TypeFor[userCreated](), ListenerFunc(func(any) (bool, error) {
		mu.Lock()
		count++
		mu.Unlock()
		return false, nil
	}))

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = d.Post(userCreated{})
		}()
	}
	wg.Wait()
	require.Equal(t, 20, count)
}

func TestMessageDispatcher_Post(t *testing.T) {
	var d MessageDispatcher

	var payloads []any
	d.AddListener("reload", MessageListenerFunc(func(message string, payload any) (bool, error) {
		require.Equal(t, "reload", message)
		payloads = append(payloads, payload)
		return false, nil
	}))
	once := 0
	d.AddListener("reload", MessageListenerFunc(func(string, any) (bool, error) {
		once++
		return true, nil
	}))

	require.NoError(t, d.Post("reload", 1))
	require.NoError(t, d.Post("reload", 2))
	require.NoError(t, d.Post("unknown", 3))

	require.Equal(t, []any{1, 2}, payloads)
	require.Equal(t, 1, once)
	require.Equal(t, 1, d.ListenerCount("reload"))
}

func TestMessageDispatcher_AddListenerPanicsOnEmptyMessage(t *testing.T) {
	d := NewMessageDispatcher()
	require.Panics(t, func() {
		d.AddListener("", MessageListenerFunc(func(string, any) (bool, error) { return false, nil }))
	})
}

package entity

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/osa030/ytlounge/internal/app/lounge"
	"github.com/osa030/ytlounge/internal/domain/snapshot"
)

const waitFor = 2 * time.Second

// start runs e in the background and returns a function that stops it.
func start(t *testing.T, e *Entity) func() {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx) }()
	require.Eventually(t, func() bool { return e.started.Load() }, waitFor, time.Millisecond)

	return func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(waitFor):
			t.Fatal("entity did not stop")
		}
	}
}

func TestEntity_MetadataAndTimestamps(t *testing.T) {
	client := &fakeClient{connected: true}
	client.subscribe = func(ctx context.Context, fn lounge.SnapshotFunc) error {
		fn(nil)
		fn(&snapshot.Snapshot{State: snapshot.StatePlaying, MediaID: "v1", Position: 0, Duration: 100})
		fn(&snapshot.Snapshot{State: snapshot.StatePlaying, MediaID: "v1", Position: 5, Duration: 100})
		<-ctx.Done()
		return ctx.Err()
	}
	svc := &fakeService{}
	log := &statusLog{}

	e := New("Living Room", client, WithClock(newTickClock()), WithObserver(log.observe))
	e.SetMetadataService(context.Background(), svc)

	stop := start(t, e)
	defer stop()

	require.Eventually(t, func() bool { return len(log.All()) == 3 }, waitFor, time.Millisecond)
	statuses := log.All()

	assert.Equal(t, []string{"v1"}, svc.Calls())

	assert.Equal(t, StateOff, statuses[0].State)
	assert.Nil(t, statuses[0].Position)
	assert.Nil(t, statuses[0].PositionUpdatedAt)

	require.NotNil(t, statuses[1].Position)
	require.NotNil(t, statuses[2].Position)
	assert.Equal(t, StatePlaying, statuses[1].State)
	assert.Equal(t, 0, *statuses[1].Position)
	assert.Equal(t, 5, *statuses[2].Position)
	assert.Equal(t, 100, *statuses[2].Duration)
	assert.Equal(t, "Title v1", statuses[2].Title)
	assert.Equal(t, "Channel v1", statuses[2].Channel)

	require.NotNil(t, statuses[1].PositionUpdatedAt)
	require.NotNil(t, statuses[2].PositionUpdatedAt)
	assert.True(t, statuses[2].PositionUpdatedAt.After(*statuses[1].PositionUpdatedAt))
}

func TestEntity_ManualReconnectReplacesTask(t *testing.T) {
	client := &fakeClient{connected: true}
	e := New("Living Room", client, WithClock(newTickClock()))

	stop := start(t, e)
	defer stop()

	require.Eventually(t, func() bool { return client.count("subscribe") == 1 }, waitFor, time.Millisecond)

	require.NoError(t, e.ManualReconnect(context.Background()))

	require.Eventually(t, func() bool { return client.count("subscribe") == 2 }, waitFor, time.Millisecond)
	assert.Equal(t, []string{"subscribe", "subscribe-end", "refresh", "connect", "subscribe"}, client.Calls())
	assert.Equal(t, 1, client.MaxActive())
}

func TestEntity_ConcurrentManualReconnect(t *testing.T) {
	client := &fakeClient{connected: true}
	e := New("Living Room", client, WithClock(newTickClock()))

	stop := start(t, e)
	defer stop()

	require.Eventually(t, func() bool { return client.count("subscribe") == 1 }, waitFor, time.Millisecond)

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, e.ManualReconnect(context.Background()))
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool { return client.count("subscribe") == 3 }, waitFor, time.Millisecond)
	assert.Equal(t, 2, client.count("refresh"))
	assert.Equal(t, 2, client.count("connect"))
	assert.Equal(t, 1, client.MaxActive())
}

func TestEntity_ManualReconnectRestartsOnError(t *testing.T) {
	refreshErr := errors.New("refresh rejected")
	client := &fakeClient{connected: true, refreshErr: refreshErr}
	e := New("Living Room", client, WithClock(newTickClock()))

	stop := start(t, e)
	defer stop()

	require.Eventually(t, func() bool { return client.count("subscribe") == 1 }, waitFor, time.Millisecond)

	err := e.ManualReconnect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, refreshErr)

	require.Eventually(t, func() bool { return client.count("subscribe") == 2 }, waitFor, time.Millisecond)
	assert.Equal(t, 1, client.count("connect"))
}

func TestEntity_NotRunning(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	e := New("Living Room", &fakeClient{connected: true}, WithClock(newTickClock()))
	assert.ErrorIs(t, e.ManualReconnect(context.Background()), ErrNotRunning)

	stop := start(t, e)
	assert.ErrorIs(t, e.Run(context.Background()), ErrAlreadyRunning)
	stop()

	assert.ErrorIs(t, e.ManualReconnect(context.Background()), ErrNotRunning)
}

func TestEntity_MetadataBackfill(t *testing.T) {
	client := &fakeClient{connected: true}
	client.subscribe = func(ctx context.Context, fn lounge.SnapshotFunc) error {
		fn(&snapshot.Snapshot{State: snapshot.StatePaused, MediaID: "v9", Position: 42, Duration: 300})
		<-ctx.Done()
		return ctx.Err()
	}
	log := &statusLog{}
	e := New("Bedroom", client, WithClock(newTickClock()))
	e.AddObserver(log.observe)

	stop := start(t, e)
	defer stop()

	require.Eventually(t, func() bool { return len(log.All()) == 1 }, waitFor, time.Millisecond)
	assert.Empty(t, log.All()[0].Title)
	assert.False(t, e.HasMetadataService())

	svc := &fakeService{}
	e.SetMetadataService(context.Background(), svc)

	statuses := log.All()
	require.Len(t, statuses, 2)
	assert.Equal(t, "Title v9", statuses[1].Title)
	assert.Equal(t, StatePaused, statuses[1].State)
	assert.Equal(t, []string{"v9"}, svc.Calls())
	assert.True(t, e.HasMetadataService())
}

func TestEntity_StatusProjection(t *testing.T) {
	e := New("Kitchen", &fakeClient{}, WithClock(newTickClock()))
	ctx := context.Background()

	st := e.Status()
	assert.Equal(t, "screen-1", st.UniqueID)
	assert.Equal(t, "Kitchen", st.Name)
	assert.Equal(t, StateOff, st.State)
	assert.Equal(t, "stopped", st.Phase)
	assert.Nil(t, st.Position)
	assert.Nil(t, st.Duration)
	assert.Empty(t, st.ImageURL)

	e.onSnapshot(ctx, &snapshot.Snapshot{State: snapshot.StatePlaying, MediaID: "abc", Position: 12.9, Duration: 240.5})
	st = e.Status()
	assert.Equal(t, StatePlaying, st.State)
	require.NotNil(t, st.Position)
	assert.Equal(t, 12, *st.Position)
	assert.Equal(t, 240, *st.Duration)
	assert.Equal(t, "abc", st.MediaID)
	assert.Equal(t, "https://img.youtube.com/vi/abc/0.jpg", st.ImageURL)
	assert.Equal(t, "https://www.youtube.com/watch?v=abc", st.MediaURL)
	assert.Empty(t, st.Title, "no metadata service attached")

	e.onSnapshot(ctx, &snapshot.Snapshot{State: snapshot.StateStopped})
	st = e.Status()
	assert.Equal(t, StateOn, st.State)
	assert.Empty(t, st.ImageURL)
	assert.Empty(t, st.MediaURL)

	e.onSnapshot(ctx, nil)
	assert.Equal(t, StateOff, e.Status().State)
}

func TestStateOf(t *testing.T) {
	tests := []struct {
		name string
		snap *snapshot.Snapshot
		want State
	}{
		{"none", nil, StateOff},
		{"idle", &snapshot.Snapshot{State: snapshot.StateIdle}, StateOff},
		{"starting", &snapshot.Snapshot{State: snapshot.StateStarting}, StatePlaying},
		{"buffering", &snapshot.Snapshot{State: snapshot.StateBuffering}, StatePlaying},
		{"playing", &snapshot.Snapshot{State: snapshot.StatePlaying}, StatePlaying},
		{"advertisement", &snapshot.Snapshot{State: snapshot.StateAdvertisement}, StatePlaying},
		{"paused", &snapshot.Snapshot{State: snapshot.StatePaused}, StatePaused},
		{"stopped", &snapshot.Snapshot{State: snapshot.StateStopped}, StateOn},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stateOf(tt.snap))
		})
	}
}

func TestEntity_Commands(t *testing.T) {
	ctx := context.Background()
	client := &fakeClient{}
	e := New("Kitchen", client)

	tests := []struct {
		name string
		run  func() error
	}{
		{"play", func() error { return e.Play(ctx) }},
		{"pause", func() error { return e.Pause(ctx) }},
		{"previous", func() error { return e.Previous(ctx) }},
		{"next", func() error { return e.Next(ctx) }},
		{"seek", func() error { return e.Seek(ctx, 93.5) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.run())
			calls := client.Calls()
			assert.Equal(t, tt.name, calls[len(calls)-1])
		})
	}
	assert.Equal(t, []float64{93.5}, client.seek)

	client.commandErr = errors.New("screen offline")
	err := e.Pause(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "screen offline")
	assert.Equal(t, 2, client.count("pause"), "commands are not retried")
}

func TestEntity_DeviceInfo(t *testing.T) {
	e := New("Living Room", &fakeClient{})
	info := e.DeviceInfo()
	assert.Equal(t, "screen-1", info.Identifier)
	assert.Equal(t, "YouTube", info.Manufacturer)
	assert.Equal(t, "YouTube on Living Room", info.Name)
	assert.Len(t, SupportedFeatures(), 5)
}

func TestEntity_SetTitle(t *testing.T) {
	log := &statusLog{}
	e := New("Living Room", &fakeClient{}, WithObserver(log.observe))

	e.SetTitle("Den")

	assert.Equal(t, "Den", e.Title())
	assert.Equal(t, "YouTube on Den", e.DeviceInfo().Name)
	assert.Equal(t, "Den", e.Status().Name)
	statuses := log.All()
	require.Len(t, statuses, 1)
	assert.Equal(t, "Den", statuses[0].Name)
}

package snowscene

import (
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockResource1 struct {
	name string
}
type MockResource2 struct {
	name string
}

func NewMockResource1(name string) *MockResource1 {
	return &MockResource1{name: name}
}
func NewMockResource2(name string) *MockResource2 {
	return &MockResource2{name: name}
}

func TestApp_changeState(t *testing.T) {
	app := &App{
		stateful:     true,
		initialState: 1,
		state:        1,
		finalState:   2,
	}

	app.changeState(2)
	assert.Equal(t, State(2), app.nextState)
	assert.True(t, app.stateTransitioning)

	app.executeChangeState(2)
	assert.Equal(t, State(2), app.state)
}

func TestApp_addResources(t *testing.T) {
	app := &App{
		resources: make(map[reflect.Type]any),
	}

	resource1 := NewMockResource1("Resource1")
	app.addResources(resource1)
	assert.Contains(t, app.resources, reflect.TypeOf(resource1).Elem(), "Resource1 should be in resources map.")

	require.PanicsWithValue(t, fmt.Sprintf("%s is already in resources", reflect.TypeOf(resource1)), func() {
		app.addResources(resource1)
	})

	resource2 := NewMockResource2("Resource2")
	app.addResources(resource2)
	assert.Contains(t, app.resources, reflect.TypeOf(resource2).Elem(), "Resource2 should be in resources map.")

	got, ok := Resource[MockResource2](app)
	require.True(t, ok)
	assert.Same(t, resource2, got)
}

func TestApp_addResources_RejectsValues(t *testing.T) {
	app := &App{resources: make(map[reflect.Type]any)}
	assert.Panics(t, func() { app.addResources(MockResource1{}) })
}

type counterModule struct{}

type frameCounter struct {
	calls  []string
	frames int
}

func (counterModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&frameCounter{})
	app.UseSystem(System(func(c *frameCounter) { c.calls = append(c.calls, "update") }))
	app.UseSystem(System(func(c *frameCounter) { c.calls = append(c.calls, "prelude") }).InStage(Prelude))
	app.UseSystem(System(func(c *frameCounter, cmd *Commands) {
		c.frames++
		if c.frames == 3 {
			cmd.Quit()
		}
	}).InStage(Finale))
}

func TestApp_RunStagesInOrderUntilQuit(t *testing.T) {
	app := NewAppBuilder().UseModule(counterModule{}).Build()

	require.NoError(t, app.Run())

	counter, _ := Resource[frameCounter](app)
	assert.Equal(t, 3, counter.frames)
	assert.Equal(t, uint64(3), app.Frame())
	assert.Equal(t, []string{"prelude", "update", "prelude", "update", "prelude", "update"}, counter.calls)
	assert.False(t, app.Step(), "a stopped app does not step again")
}

func TestApp_FailRecordsFirstError(t *testing.T) {
	boom := errors.New("boom")
	app := NewAppBuilder().Build()
	app.UseSystem(System(func(cmd *Commands) {
		cmd.Fail(boom)
		cmd.Fail(errors.New("second"))
	}))

	err := app.Run()

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, boom, app.Err())
	assert.Equal(t, uint64(1), app.Frame())
}

type teardownLog struct {
	calls []string
}

type teardownModule struct{}

func (teardownModule) Install(app *App, cmd *Commands) {
	cmd.AddResources(&teardownLog{})
	app.UseSystem(System(func(l *teardownLog) { l.calls = append(l.calls, "update") }))
	app.UseSystem(System(func(l *teardownLog) { l.calls = append(l.calls, "release") }).InStage(PostRender))
	app.UseSystem(System(func(l *teardownLog) { l.calls = append(l.calls, "close") }).InStage(Finale))
}

type failingModule struct{ err error }

func (mod failingModule) Install(_ *App, cmd *Commands) {
	cmd.Fail(mod.err)
}

func TestApp_RunTearsDownAfterInstallFailure(t *testing.T) {
	boom := errors.New("no device")
	app := NewAppBuilder().UseModule(teardownModule{}, failingModule{err: boom}).Build()

	err := app.Run()

	assert.ErrorIs(t, err, boom)
	assert.Zero(t, app.Frame())
	l, ok := Resource[teardownLog](app)
	require.True(t, ok)
	assert.Equal(t, []string{"release", "close"}, l.calls, "no frame runs, teardown runs once")
}

func TestApp_CommandsAreFlushedBetweenStages(t *testing.T) {
	type Marker struct{ n int }

	app := NewAppBuilder().Build()
	seen := 0
	app.UseSystem(System(func(cmd *Commands) {
		cmd.AddEntity(&Marker{n: 1})
	}).InStage(PreUpdate))
	app.UseSystem(System(func(cmd *Commands) {
		seen = MakeQuery1[Marker](cmd).Count()
		cmd.Quit()
	}))

	require.NoError(t, app.Run())
	assert.Equal(t, 1, seen)
}

func TestApp_UnresolvedDependencyPanics(t *testing.T) {
	app := NewAppBuilder().Build()
	app.UseSystem(System(func(*MockResource1) {}))

	assert.Panics(t, func() { app.Step() })
}

func TestApp_StatefulLifecycle(t *testing.T) {
	const (
		loading State = iota
		running
	)

	var log []string
	app := NewAppBuilder().UseStates(loading, running).Build()
	app.UseSystem(System(func() { log = append(log, "enter loading") }).InState(OnEnter(loading)))
	app.UseSystem(System(func(cmd *Commands) {
		log = append(log, "loading")
		cmd.ChangeState(running)
	}).InState(OnExecute(loading)))
	app.UseSystem(System(func() { log = append(log, "exit loading") }).InState(OnExit(loading)))
	app.UseSystem(System(func() { log = append(log, "enter running") }).InState(OnEnter(running)))
	app.UseSystem(System(func() { log = append(log, "exit running") }).InState(OnExit(running)))

	require.NoError(t, app.Run())
	assert.Equal(t, []string{"enter loading", "loading", "exit loading", "enter running", "exit running"}, log)
}

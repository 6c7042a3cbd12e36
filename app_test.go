package gekko2d

import (
	"bytes"
	"fmt"
	"reflect"
	"testing"
	"time"

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

func TestApp_addResources(t *testing.T) {
	// Test setup
	app := &App{
		resources: make(map[reflect.Type]any),
	}

	// Add a resource
	resource1 := NewMockResource1("Resource1")
	app.addResources(resource1)

	// Check that the resource was added
	assert.Contains(t, app.resources, reflect.TypeOf(resource1).Elem(), "Resource1 should be in resources map.")

	// Expect panic when trying to add the same type of resource again
	require.PanicsWithValue(t, fmt.Sprintf("%s is already in resources", reflect.TypeOf(resource1)), func() {
		app.addResources(resource1) // Try adding resource1 again, should panic
	})

	// Add a resource
	resource2 := NewMockResource2("Resource2")
	app.addResources(resource2)

	// Check that the resource was added
	assert.Contains(t, app.resources, reflect.TypeOf(resource2).Elem(), "Resource2 should be in resources map.")

	// Values are rejected
	require.Panics(t, func() { app.addResources(MockResource1{}) })

	got, ok := Resource[MockResource2](app)
	require.True(t, ok)
	assert.Same(t, resource2, got)
}

func TestApp_SystemInjection(t *testing.T) {
	app := newApp()
	res := NewMockResource1("injected")
	app.addResources(res)

	var seen *MockResource1
	var sawCommands bool
	app.UseSystem(System(func(cmd *Commands, r *MockResource1) {
		seen = r
		sawCommands = cmd != nil
	}))
	app.Step()

	assert.Same(t, res, seen)
	assert.True(t, sawCommands)
}

func TestApp_UnresolvedDependencyPanics(t *testing.T) {
	app := newApp()
	app.UseSystem(System(func(*MockResource2) {}))

	assert.Panics(t, app.Step)
}

func TestApp_StagesRunInOrder(t *testing.T) {
	app := newApp()
	custom := Stage{Name: "Custom", UpdateType: DynamicUpdate}
	app.UseStage(custom, BeforeStage(Update))

	var order []string
	record := func(name string) func() { return func() { order = append(order, name) } }
	app.UseSystem(System(record("finale")).InStage(Finale))
	app.UseSystem(System(record("update")))
	app.UseSystem(System(record("custom")).InStage(custom))
	app.UseSystem(System(record("prelude")).InStage(Prelude))

	app.Step()

	assert.Equal(t, []string{"prelude", "custom", "update", "finale"}, order)
	assert.Panics(t, func() { app.UseStage(custom, AfterStage(Update)) })
	assert.Panics(t, func() { app.UseStage(Stage{Name: "Other"}, AfterStage(Stage{Name: "Missing"})) })
	assert.Panics(t, func() { app.UseSystem(System(record("x")).InStage(Stage{Name: "Missing"})) })
}

func TestApp_CommandsApplyAfterStage(t *testing.T) {
	type Pos struct{ x int }

	count := func(cmd *Commands) int {
		n := 0
		MakeQuery1[Pos](cmd).Map(func(EntityId, *Pos) bool {
			n++
			return true
		})
		return n
	}

	app := newApp()
	var countInUpdate, countInPostUpdate int
	app.UseSystem(System(func(cmd *Commands) {
		cmd.AddEntity(Pos{x: 1})
		countInUpdate = count(cmd)
	}))
	app.UseSystem(System(func(cmd *Commands) {
		countInPostUpdate = count(cmd)
	}).InStage(PostUpdate))

	app.Step()

	assert.Equal(t, 0, countInUpdate)
	assert.Equal(t, 1, countInPostUpdate)
}

func TestApp_FlushCommandsOrder(t *testing.T) {
	type Pos struct{ x int }
	type Vel struct{ dx int }

	app := newApp()
	cmd := app.Commands()

	// Components added to a removed entity are dropped, not resurrected.
	doomed := cmd.AddEntity(Pos{x: 1})
	cmd.AddComponents(doomed, Vel{dx: 1})
	cmd.RemoveEntity(doomed)

	kept := cmd.AddEntity(Pos{x: 2})
	cmd.AddComponents(kept, Vel{dx: 2})
	cmd.RemoveComponents(kept, Pos{})
	app.FlushCommands()

	assert.False(t, app.ecs.hasEntity(doomed))
	require.True(t, app.ecs.hasEntity(kept))
	comps := cmd.GetAllComponents(kept)
	assert.Equal(t, []any{Vel{dx: 2}}, comps)
	assert.Nil(t, cmd.GetAllComponents(doomed))
}

func TestApp_RunUntilExit(t *testing.T) {
	app := newApp()
	steps := 0
	app.UseSystem(System(func(cmd *Commands) {
		steps++
		if steps == 3 {
			cmd.Exit()
		}
	}))
	finales := 0
	app.UseSystem(System(func(cmd *Commands) {
		if cmd.Exiting() {
			finales++
		}
	}).InStage(Finale))

	app.Run()

	assert.Equal(t, 3, steps)
	assert.Equal(t, 1, finales)
	assert.True(t, app.Exiting())
}

func TestTimeModule(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	app := NewAppBuilder().
		UseModule(TimeModule{Now: func() time.Time { return now }}).
		Build()

	now = now.Add(16 * time.Millisecond)
	app.Step()
	now = now.Add(20 * time.Millisecond)
	app.Step()

	tm, ok := Resource[Time](app)
	require.True(t, ok)
	assert.Equal(t, uint64(2), tm.Frame)
	assert.Equal(t, 20*time.Millisecond, tm.Dt)
	assert.Equal(t, now, tm.Time)
}

func TestLoggingModule(t *testing.T) {
	app := newApp()
	_, isNop := app.Logger().(*nopLogger)
	assert.True(t, isNop)

	app.UseModules(LoggingModule{Prefix: "test"})
	_, isDefault := app.Logger().(*DefaultLogger)
	assert.True(t, isDefault)
}

func TestWriterLogger(t *testing.T) {
	var out, errOut bytes.Buffer
	logger := NewWriterLogger("gekko", false, &out, &errOut)

	logger.Debugf("hidden %d", 1)
	logger.Infof("shown %d", 2)
	logger.Warnf("careful")
	logger.Errorf("broken")
	logger.SetDebug(true)
	logger.Debugf("visible")

	assert.NotContains(t, out.String(), "hidden")
	assert.Contains(t, out.String(), "[gekko] INFO: shown 2")
	assert.Contains(t, out.String(), "[gekko] DEBUG: visible")
	assert.Contains(t, errOut.String(), "[gekko] WARN: careful")
	assert.Contains(t, errOut.String(), "[gekko] ERROR: broken")
	assert.True(t, logger.DebugEnabled())
}

func TestWindowState_TakeResize(t *testing.T) {
	ws := &WindowState{FramebufferWidth: 640, FramebufferHeight: 480}

	_, _, changed := ws.TakeResize()
	assert.False(t, changed)

	ws.setFramebufferSize(640, 480)
	_, _, changed = ws.TakeResize()
	assert.False(t, changed, "same size is not a resize")

	ws.setFramebufferSize(1280, 720)
	w, h, changed := ws.TakeResize()
	assert.True(t, changed)
	assert.Equal(t, 1280, w)
	assert.Equal(t, 720, h)

	_, _, changed = ws.TakeResize()
	assert.False(t, changed)
	assert.False(t, ws.ShouldClose())
}

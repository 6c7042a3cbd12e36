package gekko2d

import "testing"

type MockModule struct {
	installed bool
}

func (m *MockModule) Install(app *App, commands *Commands) {
	m.installed = true
}

type spawningModule struct{}

func (spawningModule) Install(app *App, commands *Commands) {
	type Marker struct{}
	commands.AddEntity(Marker{})
}

func TestAppBuilder_DefaultStages(t *testing.T) {
	builder := NewAppBuilder()
	app := builder.Build()

	if len(app.stages) != len(defaultStages()) {
		t.Errorf("Expected %v stages, got %v", len(defaultStages()), len(app.stages))
	}
	if app.Exiting() {
		t.Errorf("A fresh app should not be exiting")
	}
}

func TestAppBuilder_UseModule(t *testing.T) {
	builder := NewAppBuilder()
	mockModule := &MockModule{}
	builder.UseModule(mockModule)

	if len(builder.modules) != 1 {
		t.Errorf("Expected modules to contain 1 module, got %v", len(builder.modules))
	}
}
func TestAppBuilder_Build_WithModules(t *testing.T) {
	builder := NewAppBuilder()
	module := &MockModule{}
	builder.UseModule(module)

	builder.Build()

	if len(builder.modules) != 1 {
		t.Errorf("Expected modules to contain 1 module, got %v", len(builder.modules))
	}
	if !module.installed {
		t.Errorf("Expected Install to be called on the module, but it was not")
	}
}

func TestAppBuilder_Build_WithMultipleModules(t *testing.T) {
	module1 := &MockModule{}
	module2 := &MockModule{}

	builder := NewAppBuilder()
	builder.UseModule(module1)
	builder.UseModule(module2)

	builder.Build()

	if len(builder.modules) != 2 {
		t.Errorf("Expected 2 modules, got %v", len(builder.modules))
	}
	if !module1.installed {
		t.Errorf("Expected Install to be called on the module 1, but it was not")
	}
	if !module2.installed {
		t.Errorf("Expected Install to be called on the module 2, but it was not")
	}
}

func TestAppBuilder_Build_FlushesSpawnedEntities(t *testing.T) {
	app := NewAppBuilder().UseModule(spawningModule{}).Build()

	if app.ecs.EntityCount() != 1 {
		t.Errorf("Expected the module's entity to exist after Build, got %v entities", app.ecs.EntityCount())
	}
}

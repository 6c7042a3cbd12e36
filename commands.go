package gekko2d

// Commands is handed to modules and systems. Entity changes are buffered and
// applied when the current stage finishes.
type Commands struct {
	app *App
}

func (cmd *Commands) AddResources(resources ...any) *Commands {
	cmd.app.addResources(resources...)
	return cmd
}

func (cmd *Commands) UseSystem(system systemScheduleBuilder) *Commands {
	cmd.app.UseSystem(system)
	return cmd
}

func (cmd *Commands) AddEntity(components ...any) EntityId {
	eid := cmd.app.ecs.nextEntityId()
	cmd.app.pendingAdditions = append(cmd.app.pendingAdditions, pendingComponents{
		eid:        eid,
		components: components,
	})
	return eid
}

func (cmd *Commands) AddComponents(entityId EntityId, components ...any) {
	cmd.app.pendingCompAdds = append(cmd.app.pendingCompAdds, pendingComponents{
		eid:        entityId,
		components: components,
	})
}

func (cmd *Commands) RemoveComponents(entityId EntityId, components ...any) {
	cmd.app.pendingCompRemovals = append(cmd.app.pendingCompRemovals, pendingComponents{
		eid:        entityId,
		components: components,
	})
}

func (cmd *Commands) RemoveEntity(entityId EntityId) {
	cmd.app.pendingRemovals = append(cmd.app.pendingRemovals, entityId)
}

// Exit stops App.Run after the current step.
func (cmd *Commands) Exit() {
	cmd.app.exiting = true
}

// Exiting reports whether Exit was requested. Shutdown systems check it.
func (cmd *Commands) Exiting() bool {
	return cmd.app.exiting
}

func (cmd *Commands) GetAllComponents(entityId EntityId) []any {
	arch, r, ok := cmd.app.ecs.locate(entityId)
	if !ok {
		return nil
	}

	res := make([]any, 0, len(arch.key))
	for _, componentId := range arch.key {
		val := reflectSliceGet(arch.componentData[componentId], int(r))
		res = append(res, val.Interface())
	}
	return res
}

func (cmd *Commands) Logger() Logger {
	return cmd.app.Logger()
}

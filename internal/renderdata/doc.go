// Package renderdata keeps live, named render-context values for registered entity types.
//
// Entity types are registered as slots at start-up: singleton and collection
// slots are cached in a SnapshotStore and refreshed whenever the entity is
// written; required slots are request scoped and must be supplied to
// Factory.Build on every call. After Initialize the registry is frozen.
//
// Typical wiring:
//
//	reg := renderdata.NewRegistry()
//	_ = renderdata.Register[*content.SiteSettings](reg)
//	_ = renderdata.Register[*content.FAQPoint](reg)
//	_ = renderdata.Require[*content.Page](reg)
//	_ = reg.Initialize(ctx, renderdata.Options{Reader: store, Notifier: signal})
//
//	rc, err := renderdata.NewFactory(reg).Build(ctx, map[string]any{"page": page})
package renderdata

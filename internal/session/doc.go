// Package session holds the live session handles of both wire bindings.
//
// The Store keeps one table per Binding. Ids are generated by the store
// (random UUIDs) and registered in a separate step, so a binding can build its
// handle around an id before the handle becomes routable:
//
//	id := store.CreateSession()
//	h := transport.NewSSEHandle(id, engine, opts)
//	h.OnClose(func() { store.Remove(session.BindingSSE, id) })
//	if err := store.Register(session.BindingSSE, id, h); err != nil {
//		...
//	}
//
// At most one handle exists per (binding, id). The same id may be registered
// in both tables; the tables never consult each other.
package session

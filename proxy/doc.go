// Package proxy implements the admin-gated upgrade gateway and the
// administrator binding shared by every component.
//
// A Gateway is a stable address in front of a component. It persists three
// things next to the component's own state: the administrator, the tag of the
// implementation currently dispatched to, and the highest initializer version
// that has run. An upgrade swaps the tag and nothing else, so stored records
// and the administrator survive it untouched.
//
// Implementations are registered as a catalogue when the gateway is created:
//
//	gw := proxy.New(c, addr, "registry", state,
//	    proxy.Implementation[State, API]{Tag: "V1", Bind: bindV1},
//	    proxy.Implementation[State, API]{Tag: "V2", Bind: bindV2},
//	)
//	gw.Current().DoSomething(caller)
//
// Each Bind receives the shared state and a Binding through which it can check
// the administrator and run versioned reinitializers. Operation sets can differ
// between implementations; callers discover them with type assertions on
// Current().
package proxy

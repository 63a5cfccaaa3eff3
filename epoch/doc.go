// Package epoch provides epoch-based memory reclamation for lock-free
// collections.
//
// A goroutine pins itself before touching shared nodes and unpins when it is
// done. Nodes detached from a structure are retired into a garbage bag tagged
// with the global epoch, and their destructors only run once the global epoch
// has moved two generations past that tag. The epoch only advances when every
// pinned participant has observed the current one, so a retired node can never
// be reclaimed while a pinned goroutine may still hold a reference to it.
//
// The Go runtime frees the memory itself. What reclamation guards here is reuse:
// collections recycle nodes through free lists and run value destructors, and
// both are only safe once no concurrent reader can observe the node.
//
//	epoch.Pin(func(s *epoch.Scope) {
//		head := top.Load(s)
//		...
//		epoch.Retire(s, head, recycle)
//	})
package epoch

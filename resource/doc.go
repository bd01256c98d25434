// Package resource provides the handle table the native store uses as its
// ownership ledger.
//
// Every entry has exactly one owner. The owner either releases it
// (destroying it) or detaches it (handing it to something outside the
// table, such as an aggregate that adopts a member):
//
//	table := resource.NewTable[*Cell]()
//
//	h, err := table.Insert(cell)
//	cell, ok := table.Get(h)
//
//	table.Release(h) // destroyed, EventReleased
//	table.Detach(h)  // moved elsewhere, EventDetached
//
// A second Release or Detach of the same handle reports false. Slots are
// reused, but each reuse bumps the slot's generation, so a stale handle
// never reaches the new occupant.
//
// Observers see every transition in order:
//
//	table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//		if e.Type == resource.EventReleased {
//			log.Printf("entry %s released", e.Handle)
//		}
//	}))
package resource

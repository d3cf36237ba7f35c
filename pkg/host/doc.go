// ABOUTME: Host collaborator contracts for router modules
// ABOUTME: Sinks, modules, proplists and priority-ordered hooks
// Package host defines the contract between the audio router and the modules
// loaded into it.
//
// A module never owns the router's registries. It receives a Core, connects
// callbacks to hooks and reads snapshots of sinks and modules. Every call on a
// Core and every hook callback runs on the router's single dispatch context,
// so modules need no locking of their own.
//
// Example:
//
//	slot := core.HookConnect(host.HookSinkPut, host.PriorityLate, func(s host.Sink) host.HookResult {
//	    log.Printf("sink %d (%s) is ready", s.Index, s.Name)
//	    return host.HookOK
//	})
//	defer slot.Disconnect()
package host

// ABOUTME: Per-hardware-sink companion module manager
// ABOUTME: Loads a companion for every hardware sink and steers the default sink to it
// Package companion loads a companion module (an echo canceller, a resampler,
// any module that creates a virtual sink on top of a master) for every
// hardware sink that appears in the router.
//
// For each hardware sink put, the configured module is loaded with its
// argument template, every "%m" replaced by the hardware sink's name. The
// pairing is written into both proplists:
//
//	sink   X-load-module-per-hardware-sink-assoc-module = <module index>
//	module X-load-module-per-hardware-sink-assoc-sink   = <sink index>
//
// With switch_on_connect the first sink owned by the new module becomes the
// default sink. With steal_default, whenever the default moves to a hardware
// sink carrying an association, it is moved on to the first sink owned by the
// associated module.
//
// Lookups never index by id. They scan the router's sinks in ascending index
// order and take the first sink whose owner matches, so an association that
// outlived its module simply finds nothing.
//
// The manager holds only its configuration and two hook slots. It runs
// entirely on the router's dispatch context and never blocks.
package companion

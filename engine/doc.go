// Package engine runs core WebAssembly guests under wazero.
//
// A WazeroEngine owns one wazero runtime. Host functions are collected in
// a HostRegistry, either one at a time or from the exported methods of a
// Host struct, and bound as host modules before the first guest is
// instantiated. Each guest gets a unique instance name so several guests
// can share the host modules.
//
// Guests that hand the host a function-table slot are called back through
// a Dispatcher, a small synthesized module that imports the guest's
// exported table and performs a typed call_indirect.
package engine

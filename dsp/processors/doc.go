// Package processors provides the reference sound processors of the rack,
// the registry that builds them by type name, and [Host], the owner of all
// live processor instances.
//
// Slots in the engine only reference processors. Instances are created,
// looked up and released through a Host, which refuses to release an
// instance that is still bound.
//
// Built-in types:
//
//   - "vca":   mono voltage-controlled amplifier
//   - "vcf":   mono voltage-controlled ladder low-pass
//   - "delay": stereo ping-pong delay, a trigger clears the lines
//   - "crush": mono sample-and-hold decimator with bit reduction
//   - "lua":   mono gain computed per block by a Lua function
package processors

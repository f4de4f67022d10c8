// Package history guards the persisted record of a BCG identification
// project.
//
// # Record
//
// Each project owns one JSON document (by default
// history/bcg_ident_proj_save.json). Four fields are written at setup and
// never change afterwards:
//
//   - project_name: base name of the input sample file
//   - chosen_missions: enabled missions, in declaration order
//   - cosmo_repr: canonical string form of the cosmology
//   - side_length: image side length in kpc
//
// Later pipeline stages add their own keys through Guard.Update.
//
// # Guard
//
// A Guard pairs the record path with the configuration the current process
// declares. Guard.Load refuses to return a record whose guarded fields differ
// from the declared ones, so a pipeline cannot silently continue under a
// changed setup. Guard.Update re-validates through Load before merging and
// rewriting the file.
//
// There is no locking. Two processes updating the same record concurrently
// can lose one of the updates.
package history

// Package units provides a small length-quantity type used to declare image
// side lengths in physical units and convert them to kiloparsecs, the unit
// stored in project history records.
package units

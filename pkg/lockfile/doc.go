// Package lockfile pins generated instance identity across runs. A
// lockfile records per-container UUIDs and generated nic hardware
// addresses next to the source document, so regenerating a deployment
// script does not reshuffle identity the target instances already carry.
package lockfile

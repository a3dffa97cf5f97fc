// Package render turns a resolved model into an executable bash script
// of incus commands. The script creates storage pools, networks and
// profiles, then initializes, configures and starts instances in
// start-plan order. Rendering never talks to Incus; running the script
// is the user's choice.
package render

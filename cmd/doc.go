// Package cmd implements the command-line interface for the lockbox
// encrypted vault storage engine. It provides a hierarchical command
// structure operating on a snapshot file that holds all vault state.
//
// The package is organized into several subpackages:
//
//   - vault: Commands for vault lifecycle and subscription tiers
//   - chunk: Commands for storage chunk management
//   - entry: Commands for entry operations (add, get, delete, etc.)
//   - category: Commands for the per-vault category registry
//   - recovery: Commands for the threshold social-recovery protocol
//   - emergency: Commands for dead-man emergency access
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See lockbox -help for a list of all commands.
package cmd

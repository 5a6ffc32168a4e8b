// Package profiles provides the named processing presets and workflows used
// by profile-based job submission.
//
// A profile names one operation plus its parameters. A workflow is an ordered
// list of profile names that fan out into one job per profile. The built-in
// catalog is embedded; a user profiles.toml merges over it entry by entry.
package profiles

// Package version records the release identity reported by the CLI and
// embedded in profile databases.
package version

// Version is the semantic version of the instrain tool. Profile databases
// record the version that produced them so later operations can detect
// incompatible layouts.
const Version = "1.9.0"

// SchemaVersion tracks the profile database layout. Bump it whenever a
// table or column changes shape.
const SchemaVersion = 3

// Package plotting emits figure data for a stored profile. Each figure is
// a tab-separated series under the profile's figures directory, ready for
// any external plotting tool; nothing here draws. Figures with no backing
// data are skipped, not failed, so a profile without genes still plots its
// coverage figures.
package plotting

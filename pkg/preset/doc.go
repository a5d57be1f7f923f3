// Package preset stores named rhythms together with their playback settings.
//
// A preset keeps the rhythm as canonical notation text so that it can be
// exported, diffed and re-imported without a binary schema. Two Store
// implementations are provided: Badger persists presets on disk and Memory
// keeps them in a map for tests and one-shot CLI runs.
package preset

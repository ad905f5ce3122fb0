//go:build ruleguard

// Package gorules defines custom linter rules for motionsort.
package gorules

import "github.com/quasilyte/go-ruleguard/dsl"

// CaptureMutationsThroughStore keeps capture deletes and moves inside the store
// package so dry run and the afero filesystem apply to every mutation.
//
// Old pattern:
//
//	os.Remove(path)
//	os.Rename(src, dst)
//
// New pattern:
//
//	st.Remove(path)
//	st.Move(src, dst)
func CaptureMutationsThroughStore(m dsl.Matcher) {
	m.Match(
		`os.Remove($*_)`,
		`os.RemoveAll($*_)`,
		`os.Rename($*_)`,
	).
		Where(!m.File().PkgPath.Matches(`/internal/(store|conf)$`) && !m.File().Name.Matches(`_test\.go$`)).
		Report("mutate capture files through store.Store so dry run is honored")
}

// LabelsThroughPull ensures the listing helpers are not materialized just to
// check for emptiness.
//
//	len(slices.Collect($seq)) == 0
//
// pulls every entry; one iter.Pull step is enough.
func LabelsThroughPull(m dsl.Matcher) {
	m.Match(
		`len(slices.Collect($seq)) == 0`,
		`len(slices.Collect($seq)) > 0`,
		`len(slices.Collect($seq)) != 0`,
	).
		Report("avoid collecting $seq to test emptiness; range once or use iter.Pull")
}

// Package tree provides the dependency tree used to represent a parsed
// sentence.
//
// A Tree is a single top-level relation label (usually "root") bound to
// the root Node. Every Node carries an attribute set (id, form, lemma,
// tags, features...) and an ordered list of labeled edges to its
// children. Node ids are 1-based surface token positions: read in
// ascending order they reproduce the original left-to-right order of the
// sentence.
//
// INVARIANTS:
//   - ids are unique within a tree
//   - after Compact or a DeepReplace that follows the splice contract,
//     ids enumerate 1..Size() with no gaps
//   - children keep insertion order; sibling labels may repeat and are
//     addressed as "label", "label#2", "label#3"...
//
// Trees are never shared across requests. Every operation that produces
// a new tree (Copy, DeepReplace) deep-copies the nodes it touches.
package tree

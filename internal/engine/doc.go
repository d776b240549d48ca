// Package engine resolves a parsed sentence against the trick
// repository.
//
// RESOLUTION:
//
// Link runs a fixpoint search over the tricks whose given pattern the
// sentence matches:
//  1. match the sentence against the default domain
//  2. compile each candidate into an Artifact, in discovery order
//  3. re-match every artifact tree and queue tricks not seen yet
//  4. with no candidates, compile every error-domain trick instead
//  5. with no error tricks either, answer the "600" sentinel
//
// The winner is chosen by Resolve: most tricks used, then the smallest
// status string, then a random pick among what is left.
//
// Compile applies one trick. Its when clause may call a remote service
// or TREAT a branch of the sentence: the branch is re-parsed, resolved
// recursively, and the answer is spliced back into the sentence before
// the sentence is linked again.
//
// BOUNDS:
//
// Each Link call compiles at most MaxIterations candidates and nested
// Link calls (through TREAT) go at most MaxDepth levels deep. Exceeding
// either is a LimitError; a TREAT whose nested resolution hits a limit
// answers "508" instead of failing the whole resolution.
//
// Every Link call works on one repository Snapshot, so tricks added or
// removed while a resolution runs do not affect it.
package engine

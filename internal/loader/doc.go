// Package loader reads trick documents from a rules directory.
//
// Files matching **/*.{json,yaml,yml,cue} are loaded in path order. A
// file holds either one trick or a list of tricks. Every document is
// normalized to JSON and validated the same way as a trick created over
// HTTP, so indices follow file order then list order.
package loader

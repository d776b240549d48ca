// Package parser adapts external natural-language parsers to the engine.
//
// Two parsers are supported: a remote syntax-analysis service answering
// token-array JSON (HTTPParser), and a local parsing command reading
// text on stdin and writing CoNLL-U on stdout (CommandParser).
package parser

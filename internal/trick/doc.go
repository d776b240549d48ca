// Package trick holds the rewrite rules ("tricks") matched against
// parsed sentences, their validation, and the repository that stores
// them.
//
// A trick document has three parts:
//
//	{
//	  "given": {"root": {"form": "repite", "obj": {"form": "*algo"}}},
//	  "when":  {"method": "GET", "uri": "http://api/{d[root][obj]}"},
//	  "then":  {"200": "{r[body][answer]}"}
//	}
//
// given is a tree pattern, when an optional side effect, and then maps
// status codes to answer templates. Tricks whose when.method is ERROR
// form the error domain, consulted only when nothing else matches.
//
// Tricks are validated before they are stored: a schema check over the
// raw document first, then semantic checks on every template (syntax,
// placeholder names, d paths walked against the given pattern, and r
// paths checked against what the method leaves in r).
package trick

// Package template renders answer and URI templates.
//
// A template is text with placeholders of the form {name[key][key]...}.
// The name selects a value from the rendering Context ("d" for the
// source tree, "r" for a side-effect result) and each key walks one
// level down: relation labels and attribute names inside trees, object
// keys and array indexes inside JSON values. Literal braces are written
// doubled: "{{" and "}}".
//
// A placeholder that resolves to a tree or node renders as its
// linearized surface text; scalars render as text; JSON objects and
// arrays render as compact JSON.
package template

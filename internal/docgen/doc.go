// Package docgen turns the Markdown narratives of a temporary specification
// into content blocks, binds them with the form values into the Word template
// and converts the result to PDF.
//
// The pipeline is Extract -> Bind -> Convert. Generator runs all three inside
// a scoped temporary directory that is removed on every exit path.
package docgen
